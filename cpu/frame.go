package cpu

import (
	"encoding/binary"
	"errors"
)

var (
	ErrStackOverflow  = errors.New("cpu: stack overflow")
	ErrStackUnderflow = errors.New("cpu: stack underflow")
)

const wordSize = 4

// frameWords is the size of a saved context: GPRs, EFLAGS and the resumption marker.
const frameWords = NumRegs + 2

// Thread is the saved execution state of one process: its stack memory and the
// stack pointer recorded the last time it was switched out. SP is a byte offset
// into Stack; the stack grows down from len(Stack).
type Thread struct {
	Stack []byte
	SP    uint32
}

func (t *Thread) push(v uint32) {
	if t.SP < wordSize || int(t.SP) > len(t.Stack) {
		panic(ErrStackOverflow)
	}
	t.SP -= wordSize
	binary.LittleEndian.PutUint32(t.Stack[t.SP:], v)
}

func (t *Thread) pop() uint32 {
	v := t.peek(0)
	t.SP += wordSize
	return v
}

func (t *Thread) peek(words int) uint32 {
	off := int(t.SP) + words*wordSize
	if off < 0 || off+wordSize > len(t.Stack) {
		panic(ErrStackUnderflow)
	}
	return binary.LittleEndian.Uint32(t.Stack[off:])
}

// Word returns the 32-bit word at SP + i*4. It is meant for inspection only.
func (t *Thread) Word(i int) uint32 { return t.peek(i) }

// Prepare builds the initial activation frame on t's stack:
//
//	arg, return address (exit), EIP (entry), EFLAGS, eax..edi
//
// so that restoring it with popa/popf/ret enters entry with exit as the
// address an entry return lands on.
func Prepare(t *Thread, entry, exit, arg uint32) {
	t.SP = uint32(len(t.Stack)) &^ 15
	t.push(arg)
	t.push(exit)
	t.push(entry)
	t.push(InitialFlags)
	for i := 0; i < NumRegs; i++ {
		t.push(0)
	}
}

// save pushes the resumption marker, EFLAGS and all GPRs (pushf; pusha).
func (m *Machine) save(t *Thread, marker uint32) {
	t.push(marker)
	t.push(m.regs.EFLAGS)
	sp := t.SP
	for i := 0; i < NumRegs; i++ {
		v := m.regs.GPR[i]
		if i == ESP {
			v = sp
		}
		t.push(v)
	}
}

// restore pops all GPRs and EFLAGS (popa; popf) and returns the word a following
// ret would jump to.
func (m *Machine) restore(t *Thread) uint32 {
	for i := NumRegs - 1; i >= 0; i-- {
		v := t.pop()
		if i != ESP {
			m.regs.GPR[i] = v
		}
	}
	m.regs.EFLAGS = t.pop()
	marker := t.pop()
	m.regs.GPR[ESP] = t.SP
	return marker
}
