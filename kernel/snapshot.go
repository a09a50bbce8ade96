package kernel

// ProcInfo is a copy of one process table slot.
type ProcInfo struct {
	PID        PID
	State      State
	Name       string
	Age        uint32
	TotalTicks uint32
	HasMsg     bool
	Msg        uint32
	Sem        int
	SP         uint32
	StackSlot  int
	Before     PID
	After      PID
}

// SemInfo is a copy of one semaphore in use.
type SemInfo struct {
	ID      int
	Count   int
	Waiters []PID
}

// Snapshot is a consistent copy of the scheduler state.
type Snapshot struct {
	Current PID
	Ready   []PID
	Procs   []ProcInfo
	Sems    []SemInfo
	Ticks   uint64
	Quantum uint32

	StacksInUse int
	StacksCap   int
	StackSize   int
}

// Proc returns the entry for pid, if that slot is in use.
func (s Snapshot) Proc(pid PID) (ProcInfo, bool) {
	for _, p := range s.Procs {
		if p.PID == pid {
			return p, true
		}
	}
	return ProcInfo{}, false
}

// Snapshot copies the process table, ready list and semaphore table. FREE
// slots are left out.
func (k *Kernel) Snapshot() Snapshot {
	mask := k.m.Disable()
	defer k.m.Restore(mask)

	s := Snapshot{
		Current:     k.current,
		Ready:       k.readyList(),
		Ticks:       k.ticks,
		Quantum:     k.quantum,
		StacksInUse: k.stacks.InUse(),
		StacksCap:   k.stacks.Cap(),
		StackSize:   k.stacks.StackSize(),
	}
	for i := range k.procs {
		p := &k.procs[i]
		if p.state == Free {
			continue
		}
		s.Procs = append(s.Procs, ProcInfo{
			PID:        p.pid,
			State:      p.state,
			Name:       p.name,
			Age:        p.age,
			TotalTicks: p.totalTicks,
			HasMsg:     p.hasMsg,
			Msg:        p.msg,
			Sem:        p.sem,
			SP:         p.th.SP,
			StackSlot:  p.stack.Slot(),
			Before:     k.nodes[i].before,
			After:      k.nodes[i].after,
		})
	}
	for id := range k.sems {
		sm := &k.sems[id]
		if !sm.used {
			continue
		}
		s.Sems = append(s.Sems, SemInfo{ID: id, Count: sm.count, Waiters: k.semWaiters(sm)})
	}
	return s
}

// SavedStack returns a copy of the live part of pid's stack, from its saved
// stack pointer to the top, and the offset of that pointer within the stack.
func (k *Kernel) SavedStack(pid PID) ([]byte, uint32, error) {
	mask := k.m.Disable()
	defer k.m.Restore(mask)

	if !pid.Valid() || k.procs[pid].state == Free {
		return nil, 0, ErrInvalidPID
	}
	if pid == k.current {
		return nil, 0, ErrRunning
	}
	th := &k.procs[pid].th
	if int(th.SP) > len(th.Stack) {
		return nil, 0, ErrInvalidPID
	}
	return append([]byte(nil), th.Stack[th.SP:]...), th.SP, nil
}
