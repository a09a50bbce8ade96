//go:build tinygo && baremetal

package hal

import (
	"machine"
	"time"
)

// boardHAL is a UART-only board: COM1 on UART0, a millisecond timer and no
// display or keyboard.
type boardHAL struct {
	logger *uartLogger
	serial *uartSerial
	fb     Framebuffer
	kbd    Keyboard
	t      *pitTime
}

// New returns the board HAL. COM1 is UART0 on GP0 (TX) / GP1 (RX), 115200 8N1;
// the log shares it.
func New() HAL {
	uart := machine.UART0
	uart.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GP0,
		RX:       machine.GP1,
	})

	return &boardHAL{
		logger: &uartLogger{uart: uart},
		serial: &uartSerial{uart: uart, poll: time.Millisecond},
		fb:     &stubFramebuffer{w: 320, h: 240, format: PixelFormatRGB565},
		kbd:    &stubKeyboard{},
		t:      newPITTime(time.Millisecond),
	}
}

func (h *boardHAL) Logger() Logger   { return h.logger }
func (h *boardHAL) Display() Display { return boardDisplay{fb: h.fb} }
func (h *boardHAL) Input() Input     { return boardInput{kbd: h.kbd} }
func (h *boardHAL) Time() Time       { return h.t }
func (h *boardHAL) Serial() Serial   { return h.serial }
