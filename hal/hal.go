package hal

import "errors"

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

var ErrNotImplemented = errors.New("not implemented")

// PixelFormat defines the framebuffer pixel encoding.
type PixelFormat uint8

const (
	// PixelFormatRGB565 is 16bpp: rrrrrggggggbbbbb.
	PixelFormatRGB565 PixelFormat = iota + 1
)

// Framebuffer is a pixel buffer plus a "present" hook. Drawing goes to Buffer;
// Present publishes it to the screen.
type Framebuffer interface {
	Width() int
	Height() int
	Format() PixelFormat
	StrideBytes() int
	Buffer() []byte
	ClearRGB(r, g, b uint8)
	Present() error
}

// KeyCode identifies the few non-text keys the console understands.
type KeyCode uint16

const (
	KeyUnknown KeyCode = iota
	KeyEnter
	KeyBackspace
	KeyTab
	KeyEscape
)

// KeyEvent is a keyboard event. Text input has Code KeyUnknown and a Rune.
type KeyEvent struct {
	Code  KeyCode
	Press bool
	Rune  rune
}

// Byte returns the console byte for a key press, if it has one.
func (e KeyEvent) Byte() (byte, bool) {
	if !e.Press {
		return 0, false
	}
	switch e.Code {
	case KeyEnter:
		return '\n', true
	case KeyBackspace:
		return 0x08, true
	case KeyTab:
		return '\t', true
	case KeyEscape:
		return 0x1B, true
	}
	if e.Rune > 0 && e.Rune < 0x80 {
		return byte(e.Rune), true
	}
	return 0, false
}

// Keyboard provides key events (best-effort on each platform).
type Keyboard interface {
	Events() <-chan KeyEvent
}

// Display provides access to the framebuffer (if available).
type Display interface {
	Framebuffer() Framebuffer
}

// Input provides access to input devices (if available).
type Input interface {
	Keyboard() Keyboard
}

// Time provides the base tick stream that drives the timer interrupt.
//
// The tick duration is platform-defined.
type Time interface {
	Ticks() <-chan uint64
}

// Serial is the COM1 port: console bytes in, console and log bytes out.
type Serial interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
}

// HAL provides the only contact point between the kernel and the outside world.
type HAL interface {
	Logger() Logger
	Display() Display
	Input() Input
	Time() Time
	Serial() Serial
}
