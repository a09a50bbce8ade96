package cpu

import (
	"math/bits"
	"runtime"
)

// Interrupt lines.
const (
	IRQTimer    = 0
	IRQKeyboard = 1
	IRQSerial   = 4
	NumIRQ      = 16
)

// Handle installs fn as the service routine for line. Handlers run on the
// interrupted process with interrupts disabled and must Ack their line.
func (m *Machine) Handle(line int, fn func()) {
	m.handlers[line] = fn
}

// Raise marks line pending. It may be called from any goroutine; the interrupt
// is delivered by the owning goroutine once interrupts are enabled.
func (m *Machine) Raise(line int) {
	bit := uint32(1) << line
	for {
		old := m.pending.Load()
		if old&bit != 0 || m.pending.CompareAndSwap(old, old|bit) {
			break
		}
	}
	select {
	case m.irq <- struct{}{}:
	default:
	}
}

// Ack ends service of line (EOI) so it can be delivered again.
func (m *Machine) Ack(line int) {
	m.inService &^= 1 << line
}

// Disable masks interrupts (cli) and returns the previous flags.
func (m *Machine) Disable() Flags {
	f := Flags{eflags: m.regs.EFLAGS, owner: m.owner.Load()}
	m.regs.EFLAGS &^= FlagIF
	return f
}

// Restore sets the interrupt flag from f. Pending interrupts are delivered when
// this enables them. A Restore from a goroutine that no longer owns the core is
// ignored.
func (m *Machine) Restore(f Flags) {
	if f.owner != m.owner.Load() {
		return
	}
	m.regs.EFLAGS = m.regs.EFLAGS&^FlagIF | f.eflags&FlagIF
	m.poll()
}

// Enable unmasks interrupts (sti).
func (m *Machine) Enable() {
	m.regs.EFLAGS |= FlagIF
	m.poll()
}

// Enabled reports whether interrupts are currently unmasked.
func (m *Machine) Enabled() bool { return m.regs.EFLAGS&FlagIF != 0 }

// Halt enables interrupts and waits for one (sti; hlt), then services it.
func (m *Machine) Halt() {
	m.regs.EFLAGS |= FlagIF
	for m.pending.Load()&^m.inService == 0 {
		select {
		case <-m.irq:
		case <-m.down:
			runtime.Goexit()
		}
	}
	m.poll()
}

// Preempt is a safe point for long-running process code: it delivers pending
// interrupts if they are enabled.
func (m *Machine) Preempt() {
	select {
	case <-m.down:
		runtime.Goexit()
	default:
	}
	m.poll()
}

func (m *Machine) poll() {
	select {
	case <-m.down:
		return
	default:
	}
	for m.regs.EFLAGS&FlagIF != 0 {
		line, ok := m.nextLine()
		if !ok {
			return
		}
		fn := m.handlers[line]
		if fn == nil {
			continue
		}
		m.inService |= 1 << line
		saved := m.regs.EFLAGS
		m.regs.EFLAGS &^= FlagIF
		fn()
		// iret
		m.regs.EFLAGS = saved
	}
}

func (m *Machine) nextLine() (int, bool) {
	for {
		p := m.pending.Load()
		ready := p &^ m.inService
		if ready == 0 {
			return 0, false
		}
		line := bits.TrailingZeros32(ready)
		if m.pending.CompareAndSwap(p, p&^(1<<line)) {
			return line, true
		}
	}
}
