package kernel

import (
	"pulsar/cpu"
	"pulsar/memory"
)

// State is the scheduling state of a process table slot.
type State uint8

const (
	Free State = iota
	Current
	Ready
	Waiting
	Recv
	Terminated
)

func (s State) String() string {
	switch s {
	case Free:
		return "FREE"
	case Current:
		return "CURRENT"
	case Ready:
		return "READY"
	case Waiting:
		return "WAITING"
	case Recv:
		return "RECV"
	case Terminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

// Entry is the body of a process. Returning from it terminates the process.
type Entry func(c *Context, arg any)

type wakeReason uint8

const (
	wakeNone wakeReason = iota
	wakeSignal
	wakeDeleted
	wakeMessage
)

type pcb struct {
	pid   PID
	state State

	// th.SP is only meaningful while the process is not CURRENT.
	th    cpu.Thread
	stack memory.Stack

	name  string
	entry Entry
	arg   any

	msg    uint32
	hasMsg bool

	age        uint32
	totalTicks uint32

	sem  int
	wake wakeReason
}

// Create allocates a process slot and a stack, builds the initial activation
// frame and inserts the process at the head of the ready list. On exhaustion it
// returns NoPID with ErrNoFreeSlot or ErrNoStack.
func (k *Kernel) Create(entry Entry, arg any, name string) (PID, error) {
	if entry == nil {
		return NoPID, ErrNilEntry
	}
	mask := k.m.Disable()
	defer k.m.Restore(mask)

	pid := NoPID
	for i := range k.procs {
		if k.procs[i].state == Free {
			pid = PID(i)
			break
		}
	}
	if pid == NoPID {
		k.logf("create %q: no free process slot", name)
		return NoPID, ErrNoFreeSlot
	}

	st, ok := k.stacks.Alloc(k.stacks.StackSize())
	if !ok {
		k.logf("create %q: no free stack", name)
		return NoPID, ErrNoStack
	}

	if len(name) > maxName {
		name = name[:maxName]
	}
	p := &k.procs[pid]
	*p = pcb{
		pid:   pid,
		state: Ready,
		th:    cpu.Thread{Stack: st.Mem},
		stack: st,
		name:  name,
		entry: entry,
		arg:   arg,
		sem:   -1,
	}
	cpu.Prepare(&p.th, k.entryAddr, k.exitAddr, uint32(pid))
	k.insertHead(pid)

	k.debugf("created pid %d (%s)", pid, name)
	return pid, nil
}

// Kill terminates pid. The slot is reclaimed by a later reschedule; killing the
// calling process does not return.
func (k *Kernel) Kill(pid PID) error {
	mask := k.m.Disable()
	defer k.m.Restore(mask)

	if !pid.Valid() || k.procs[pid].state == Free {
		return ErrInvalidPID
	}
	if pid == IdlePID {
		k.logf("kill: pid %d is protected", pid)
		return ErrProtected
	}

	p := &k.procs[pid]
	switch p.state {
	case Terminated:
		return nil
	case Waiting:
		k.semUnlink(p.sem, pid)
		p.sem = -1
		k.appendTail(pid)
	case Recv:
		k.appendTail(pid)
	}
	p.state = Terminated
	k.debugf("killed pid %d (%s)", pid, p.name)

	if pid == k.current {
		k.resched()
	}
	return nil
}

// GetPID returns the PID of the running process, or NoPID before boot.
func (k *Kernel) GetPID() PID { return k.current }

// trampoline is the first code every process runs; arg is the PID seeded into
// its activation frame.
func (k *Kernel) trampoline(arg uint32) {
	pid := PID(arg)
	p := &k.procs[pid]
	k.run(&Context{k: k, pid: pid}, p.entry, p.arg)
}

func (k *Kernel) run(c *Context, entry Entry, arg any) {
	defer func() {
		if r := recover(); r != nil {
			k.contain(c.pid, r)
		}
	}()
	entry(c, arg)
}

// exitHandler is the return address of every activation frame: a process whose
// entry returns lands here and is terminated.
func (k *Kernel) exitHandler(arg uint32) {
	pid := PID(arg)
	k.debugf("pid %d returned from its entry", pid)
	if err := k.Kill(pid); err != nil {
		k.logf("exit pid %d: %v", pid, err)
	}
}
