package cpu

import "fmt"

// General purpose registers, indexed in pusha order.
const (
	EAX = iota
	ECX
	EDX
	EBX
	ESP
	EBP
	ESI
	EDI
	NumRegs
)

// EFLAGS bits.
const (
	// FlagReserved is bit 1, always set on real hardware.
	FlagReserved uint32 = 1 << 1
	// FlagIF enables maskable interrupts.
	FlagIF uint32 = 1 << 9

	// InitialFlags is the EFLAGS image placed in every new activation frame.
	InitialFlags = FlagReserved | FlagIF
)

var regNames = [NumRegs]string{"eax", "ecx", "edx", "ebx", "esp", "ebp", "esi", "edi"}

// Regs is the register file of the single core.
type Regs struct {
	GPR    [NumRegs]uint32
	EFLAGS uint32
}

func (r Regs) String() string {
	s := ""
	for i, v := range r.GPR {
		s += fmt.Sprintf("%s=%08x ", regNames[i], v)
	}
	return s + fmt.Sprintf("eflags=%08x", r.EFLAGS)
}

// Flags is the interrupt state saved by Machine.Disable. It remembers which
// process goroutine took it, so a Restore replayed while that goroutine unwinds
// after losing the core changes nothing.
type Flags struct {
	eflags uint32
	owner  *strand
}

// Enabled reports whether interrupts were enabled in the saved image.
func (f Flags) Enabled() bool { return f.eflags&FlagIF != 0 }
