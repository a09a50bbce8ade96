// Package console is the COM1 driver: received bytes arrive through the
// serial interrupt and are handed to processes through a counting semaphore;
// output goes to the serial port and, when the board has a display, to a
// tinyterm terminal.
package console

import (
	"errors"
	"fmt"
	"sync/atomic"

	"pulsar/cpu"
	"pulsar/hal"
	"pulsar/kernel"

	"tinygo.org/x/tinyfont/proggy"
	"tinygo.org/x/tinyterm"
)

const (
	// RingSize is the capacity of the receive ring buffer.
	RingSize = 256
	fifoSize = 64

	maxLine = 128
)

var ErrLineTooLong = errors.New("console: line too long")

// Config configures a console.
type Config struct {
	Serial      hal.Serial
	Framebuffer hal.Framebuffer
	// Logger receives driver faults; nil drops them.
	Logger hal.Logger
	// Echo copies typed characters to the display.
	Echo bool
}

// Console is the serial console device.
type Console struct {
	k      *kernel.Kernel
	serial hal.Serial
	log    hal.Logger

	// fifo is the UART receive FIFO; filled by Feed, drained by the ISR.
	fifo    chan byte
	ring    [RingSize]byte
	head    int
	n       int
	avail   int
	dropped atomic.Uint64
	rxCount uint64

	term *tinyterm.Terminal
	echo bool
	sawCR bool
}

// New installs the console's interrupt handler on k. It must be called before
// the kernel boots.
func New(k *kernel.Kernel, cfg Config) (*Console, error) {
	sem, err := k.SemCreate(0)
	if err != nil {
		return nil, fmt.Errorf("console: %w", err)
	}
	c := &Console{
		k:      k,
		serial: cfg.Serial,
		log:    cfg.Logger,
		fifo:   make(chan byte, fifoSize),
		avail:  sem,
		echo:   cfg.Echo,
	}
	if d := newFBDisplay(cfg.Framebuffer); d != nil {
		cfg.Framebuffer.ClearRGB(0, 0, 0)
		c.term = tinyterm.NewTerminal(d)
		c.term.Configure(&tinyterm.Config{
			Font:              &proggy.TinySZ8pt7b,
			FontHeight:        10,
			FontOffset:        6,
			UseSoftwareScroll: true,
		})
	}
	k.HandleIRQ(cpu.IRQSerial, c.interrupt)
	return c, nil
}

// Feed hands received bytes to the UART. It may be called from any goroutine;
// bytes that do not fit the FIFO are dropped.
func (c *Console) Feed(p []byte) {
	for _, b := range p {
		select {
		case c.fifo <- b:
		default:
			c.dropped.Add(1)
		}
	}
	c.k.Interrupt(cpu.IRQSerial)
}

// interrupt drains the FIFO into the ring, signalling once per stored byte.
func (c *Console) interrupt() {
	defer c.k.AckIRQ(cpu.IRQSerial)
	for {
		select {
		case b := <-c.fifo:
			if c.n == RingSize {
				c.dropped.Add(1)
				continue
			}
			c.ring[(c.head+c.n)%RingSize] = b
			c.n++
			c.rxCount++
			if err := c.k.SemSignal(c.avail); err != nil {
				c.logf("rx signal: %v", err)
			}
		default:
			return
		}
	}
}

func (c *Console) logf(format string, args ...any) {
	if c.log != nil {
		c.log.WriteLineString("console: " + fmt.Sprintf(format, args...))
	}
}

// ReadByte blocks the calling process until a byte has been received.
func (c *Console) ReadByte() (byte, error) {
	if err := c.k.SemWait(c.avail); err != nil {
		return 0, err
	}
	return c.pop(), nil
}

func (c *Console) pop() byte {
	// The ring is shared with the ISR.
	mask := c.k.Disable()
	defer c.k.Restore(mask)
	b := c.ring[c.head]
	c.head = (c.head + 1) % RingSize
	c.n--
	return b
}

// ReadLine reads one line of input without its terminator. Backspace erases
// the previous character and ^U the whole line.
func (c *Console) ReadLine() (string, error) {
	var line []byte
	for {
		b, err := c.ReadByte()
		if err != nil {
			return "", err
		}
		switch b {
		case '\n':
			if c.sawCR {
				c.sawCR = false
				continue
			}
			c.echoBytes("\n")
			return string(line), nil
		case '\r':
			c.sawCR = true
			c.echoBytes("\n")
			return string(line), nil
		case 0x08, 0x7F:
			if len(line) > 0 {
				line = line[:len(line)-1]
				c.echoBytes("\b \b")
			}
		case 0x15:
			for range line {
				c.echoBytes("\b \b")
			}
			line = line[:0]
		default:
			c.sawCR = false
			if b < ' ' {
				continue
			}
			if len(line) >= maxLine {
				return string(line), ErrLineTooLong
			}
			line = append(line, b)
			c.echoBytes(string(b))
		}
	}
}

func (c *Console) echoBytes(s string) {
	if !c.echo || c.term == nil {
		return
	}
	c.term.Write([]byte(s))
	c.term.Display()
}

// Write sends p to the serial port and the display. It must be called by a
// process or before boot.
func (c *Console) Write(p []byte) (int, error) {
	if c.term != nil {
		c.term.Write(p)
		c.term.Display()
	}
	if c.serial == nil {
		return len(p), nil
	}
	return c.serial.Write(p)
}

// Printf formats to the console.
func (c *Console) Printf(format string, args ...any) {
	fmt.Fprintf(c, format, args...)
}

// Stats reports the receive counters.
type Stats struct {
	Received uint64
	Buffered int
	Dropped  uint64
}

func (c *Console) Stats() Stats {
	mask := c.k.Disable()
	defer c.k.Restore(mask)
	return Stats{Received: c.rxCount, Buffered: c.n, Dropped: c.dropped.Load()}
}
