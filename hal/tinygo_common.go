//go:build tinygo && baremetal

package hal

import (
	"machine"
	"time"
)

// The board has no screen and no keyboard of its own: COM1 on UART0 carries
// the console in both directions and the kernel log on the way out.

type boardDisplay struct {
	fb Framebuffer
}

func (d boardDisplay) Framebuffer() Framebuffer { return d.fb }

type boardInput struct {
	kbd Keyboard
}

func (in boardInput) Keyboard() Keyboard { return in.kbd }

// pitTime plays the programmable interval timer: one tick per millisecond.
// Ticks the kernel has not consumed yet are dropped, so a slow core sees a
// late interrupt rather than a burst.
type pitTime struct {
	ch  chan uint64
	seq uint64
}

func newPITTime(period time.Duration) *pitTime {
	t := &pitTime{ch: make(chan uint64, 64)}
	go t.run(period)
	return t
}

func (t *pitTime) run(period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for range ticker.C {
		t.seq++
		select {
		case t.ch <- t.seq:
		default:
		}
	}
}

func (t *pitTime) Ticks() <-chan uint64 { return t.ch }

// uartLogger writes CRLF-terminated lines to COM1.
type uartLogger struct {
	uart *machine.UART
}

func (l *uartLogger) WriteLineString(s string) {
	l.uart.Write([]byte(s))
	l.uart.Write(crlf)
}

func (l *uartLogger) WriteLineBytes(b []byte) {
	l.uart.Write(b)
	l.uart.Write(crlf)
}

var crlf = []byte{'\r', '\n'}

// uartSerial is the console side of COM1.
type uartSerial struct {
	uart *machine.UART
	poll time.Duration
}

// Read waits for at least one received byte. The UART has no blocking read,
// so an empty receive buffer is polled.
func (s *uartSerial) Read(p []byte) (int, error) {
	if s.uart == nil {
		return 0, ErrNotImplemented
	}
	for s.uart.Buffered() == 0 {
		time.Sleep(s.poll)
	}
	return s.uart.Read(p)
}

func (s *uartSerial) Write(p []byte) (int, error) {
	if s.uart == nil {
		return 0, ErrNotImplemented
	}
	return s.uart.Write(p)
}
