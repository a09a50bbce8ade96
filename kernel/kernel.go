// Package kernel is the multitasking core: a fixed process table, a circular
// ready list, a round-robin scheduler with aging, counting semaphores and
// single-slot mailboxes.
//
// All shared state is guarded the way a single-core kernel guards it: every
// operation runs with interrupts masked on the machine (see cpu.Machine.Disable).
package kernel

import (
	"fmt"

	"pulsar/cpu"
	"pulsar/hal"
	"pulsar/memory"
)

const (
	// NPROC is the size of the process table.
	NPROC = 32
	// NSEM is the size of the semaphore table.
	NSEM = 32

	// DefaultQuantum is the number of timer ticks per time slice.
	DefaultQuantum = 16

	maxName = 15
)

// PID identifies a process table slot.
type PID uint8

const (
	// NoPID means "no process" and marks empty lists.
	NoPID PID = 0xFF
	// IdlePID is the protected idle process created by New.
	IdlePID PID = 0
)

// Valid reports whether p indexes the process table.
func (p PID) Valid() bool { return p < NPROC }

// Config configures a kernel instance.
type Config struct {
	// Quantum is the number of timer ticks between preemptive reschedules.
	Quantum uint32
	// Stacks and StackSize size the process stack pool.
	Stacks    int
	StackSize int

	Logger hal.Logger
	Debug  bool

	// OnPanic is called when a process entry panics. The process is terminated
	// afterwards.
	OnPanic func(PanicInfo)
}

// Kernel is one instance of the multitasking core and the machine it runs on.
type Kernel struct {
	cfg    Config
	m      *cpu.Machine
	stacks *memory.StackPool

	procs   [NPROC]pcb
	nodes   [NPROC]node
	ready   PID
	current PID

	sems [NSEM]sement

	ticks   uint64
	quantum uint32

	entryAddr uint32
	exitAddr  uint32

	booted bool
	halted bool
	status int
}

// New initialises the process and semaphore tables and creates the idle process.
func New(cfg Config) *Kernel {
	if cfg.Quantum == 0 {
		cfg.Quantum = DefaultQuantum
	}
	k := &Kernel{
		cfg:     cfg,
		m:       cpu.New(),
		stacks:  memory.NewStackPool(cfg.Stacks, cfg.StackSize),
		ready:   NoPID,
		current: NoPID,
		quantum: cfg.Quantum,
	}
	k.entryAddr = k.m.Link(k.trampoline)
	k.exitAddr = k.m.Link(k.exitHandler)
	k.m.Handle(cpu.IRQTimer, k.timerInterrupt)

	for i := range k.procs {
		k.procs[i] = pcb{pid: PID(i), state: Free, sem: -1}
		k.nodes[i] = node{before: NoPID, after: NoPID, next: NoPID}
	}
	for i := range k.sems {
		k.sems[i] = sement{head: NoPID, tail: NoPID}
	}

	if _, err := k.Create(idleEntry, nil, "null"); err != nil {
		panic(fmt.Sprintf("kernel: cannot create idle process: %v", err))
	}
	k.debugf("process table ready (%d slots, %d stacks of %d bytes)", NPROC, k.stacks.Cap(), k.stacks.StackSize())
	return k
}

// Interrupt raises an interrupt line. It is safe to call from any goroutine.
func (k *Kernel) Interrupt(line int) { k.m.Raise(line) }

// HandleIRQ installs an interrupt service routine. The routine runs with
// interrupts masked and must call AckIRQ.
func (k *Kernel) HandleIRQ(line int, fn func()) { k.m.Handle(line, fn) }

// Disable masks interrupts for a driver critical section shared with an
// interrupt handler. Pair it with Restore.
func (k *Kernel) Disable() cpu.Flags { return k.m.Disable() }

// Restore ends a critical section started by Disable.
func (k *Kernel) Restore(f cpu.Flags) { k.m.Restore(f) }

// AckIRQ signals end of interrupt for line.
func (k *Kernel) AckIRQ(line int) { k.m.Ack(line) }

// Registers returns the register file of the core. Only process code and
// interrupt handlers may read it while the kernel runs.
func (k *Kernel) Registers() cpu.Regs { return *k.m.Regs() }

func (k *Kernel) logf(format string, args ...any) {
	if k.cfg.Logger == nil {
		return
	}
	k.cfg.Logger.WriteLineString("kernel: " + sprintf(format, args...))
}

func (k *Kernel) debugf(format string, args ...any) {
	if k.cfg.Debug {
		k.logf(format, args...)
	}
}

func sprintf(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
