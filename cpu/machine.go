// Package cpu models the single 32-bit core the kernel runs on: a register file,
// an interrupt controller, process stacks, and the context-switch primitive.
//
// Every process executes on its own goroutine, but only the goroutine that owns
// the core runs; the others are parked inside Switch. Ownership moves only through
// Start and Switch, so kernel state touched by the owner needs no further locking.
// Raise is the one entry point that may be called from any goroutine.
package cpu

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

// TextBase is the address of the first linked routine.
const TextBase uint32 = 0x0010_0000

const (
	textAlign = 16
	contBase  = 0xC000_0000
)

// Routine is code reachable through a linked address. It receives the word found
// above the return address of its activation frame.
type Routine func(arg uint32)

// strand identifies one process goroutine. It must not be zero-size: the
// runtime hands every zero-size allocation the same address.
type strand struct {
	id uint32
}

type continuation struct {
	ch chan bool
	s  *strand
}

// Machine is the simulated core.
type Machine struct {
	regs    Regs
	text    []Routine
	owner   atomic.Pointer[strand]
	strands uint32

	conts    map[uint32]continuation
	nextCont uint32

	pending   atomic.Uint32
	inService uint32
	handlers  [NumIRQ]func()
	irq       chan struct{}

	down     chan struct{}
	downOnce sync.Once
	live     sync.WaitGroup
}

// New returns a powered-on machine with interrupts disabled.
func New() *Machine {
	m := &Machine{
		conts: make(map[uint32]continuation),
		irq:   make(chan struct{}, 1),
		down:  make(chan struct{}),
	}
	m.regs.EFLAGS = FlagReserved
	return m
}

// Link makes fn reachable at the returned address.
func (m *Machine) Link(fn Routine) uint32 {
	m.text = append(m.text, fn)
	return TextBase + uint32(len(m.text)-1)*textAlign
}

func (m *Machine) routine(addr uint32) (Routine, bool) {
	if addr < TextBase || (addr-TextBase)%textAlign != 0 {
		return nil, false
	}
	i := int((addr - TextBase) / textAlign)
	if i >= len(m.text) {
		return nil, false
	}
	return m.text[i], true
}

// Regs returns the live register file. Only the owning goroutine may use it.
func (m *Machine) Regs() *Regs { return &m.regs }

// Start performs the first activation: it restores t's frame and transfers the
// core to it. The caller does not own the core afterwards and should only Wait.
func (m *Machine) Start(t *Thread) {
	m.resume(t)
}

// Switch saves the caller's context on from, records from.SP, and resumes to.
// It returns when some later Switch resumes from. The caller must have
// interrupts disabled.
func (m *Machine) Switch(from, to *Thread) {
	select {
	case <-m.down:
		runtime.Goexit()
	default:
	}

	m.nextCont++
	marker := contBase | m.nextCont&^contBase
	ch := make(chan bool, 1)
	m.conts[marker] = continuation{ch: ch, s: m.owner.Load()}
	m.save(from, marker)

	m.resume(to)

	// The core now belongs to to's goroutine; touch nothing but ch and down.
	select {
	case ok := <-ch:
		if !ok {
			runtime.Goexit()
		}
	case <-m.down:
		runtime.Goexit()
	}
}

func (m *Machine) resume(t *Thread) {
	marker := m.restore(t)
	if c, ok := m.conts[marker]; ok {
		delete(m.conts, marker)
		m.owner.Store(c.s)
		c.ch <- true
		return
	}
	entry, ok := m.routine(marker)
	if !ok {
		panic(fmt.Sprintf("cpu: bad resume address %#08x", marker))
	}
	exit, _ := m.routine(t.peek(0))
	arg := t.peek(1)
	m.spawn(entry, exit, arg)
}

func (m *Machine) spawn(entry, exit Routine, arg uint32) {
	m.strands++
	m.owner.Store(&strand{id: m.strands})
	m.live.Add(1)
	go func() {
		defer m.live.Done()
		entry(arg)
		if exit != nil {
			exit(arg)
		}
		<-m.down
	}()
}

// Discard releases the goroutine parked in t's saved frame, if any. t must not be
// resumed afterwards.
func (m *Machine) Discard(t *Thread) {
	if len(t.Stack) == 0 || int(t.SP)+frameWords*wordSize > len(t.Stack) {
		return
	}
	marker := t.peek(frameWords - 1)
	if c, ok := m.conts[marker]; ok {
		delete(m.conts, marker)
		c.ch <- false
	}
}

// Shutdown stops the machine. Parked goroutines exit; the running one exits at
// its next Switch, Halt or Preempt. Safe to call from any goroutine.
func (m *Machine) Shutdown() {
	m.downOnce.Do(func() { close(m.down) })
}

// PowerOff stops the machine from the owning goroutine and never returns.
func (m *Machine) PowerOff() {
	m.Shutdown()
	runtime.Goexit()
}

// Done is closed once the machine is shut down.
func (m *Machine) Done() <-chan struct{} { return m.down }

// Wait blocks until the machine is shut down and every process goroutine exited.
func (m *Machine) Wait() {
	<-m.down
	m.live.Wait()
}
