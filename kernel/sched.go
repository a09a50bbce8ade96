package kernel

// Resched is the reschedule entry point shared by voluntary yields and the timer.
// If no other process is READY the caller keeps running.
func (k *Kernel) Resched() {
	mask := k.m.Disable()
	defer k.m.Restore(mask)
	k.resched()
}

// resched must be called with interrupts masked.
func (k *Kernel) resched() {
	if k.current == NoPID {
		return
	}
	next := k.schedule()
	if next == NoPID {
		return
	}
	k.dispatch(next)
}

// schedule ages the ready list, reaps terminated processes and picks the next
// process to run. The winner's age is reset and its tick count advanced.
func (k *Kernel) schedule() PID {
	if k.ready == NoPID {
		return NoPID
	}
	k.age()
	best := k.pick()
	if best == NoPID {
		return NoPID
	}
	p := &k.procs[best]
	p.age = 0
	p.totalTicks++
	return best
}

func (k *Kernel) age() {
	pid := k.ready
	for {
		if k.procs[pid].state == Ready {
			k.procs[pid].age++
		}
		pid = k.nodes[pid].after
		if pid == k.ready {
			return
		}
	}
}

// pick scans the ready circle once, starting after the current process (or at
// the head when the current process is not linked). Terminated processes other
// than the current one are reaped on the way. The oldest READY process wins;
// on equal age the first one met is kept.
func (k *Kernel) pick() PID {
	start := k.ready
	if k.current != NoPID && k.linked(k.current) {
		start = k.nodes[k.current].after
	}

	best := NoPID
	var bestAge uint32
	pid := start
	for {
		next := k.nodes[pid].after
		p := &k.procs[pid]
		switch {
		case p.state == Terminated && pid != k.current:
			k.reap(pid)
			if k.ready == NoPID {
				return best
			}
			if pid == start {
				start = next
				pid = next
				continue
			}
		case p.state == Ready && (best == NoPID || p.age > bestAge):
			best, bestAge = pid, p.age
		}
		pid = next
		if pid == start {
			return best
		}
	}
}

// reap returns a terminated process's stack to the pool and frees its slot.
func (k *Kernel) reap(pid PID) {
	p := &k.procs[pid]
	k.remove(pid)
	k.m.Discard(&p.th)
	if err := k.stacks.Free(p.stack); err != nil {
		k.logf("reap pid %d: %v", pid, err)
	}
	k.debugf("reaped pid %d (%s)", pid, p.name)
	*p = pcb{pid: pid, state: Free, sem: -1}
	k.nodes[pid] = node{before: NoPID, after: NoPID, next: NoPID}
}

// promote makes next the current process and returns the outgoing one. The
// outgoing process drops back to READY only if it is still CURRENT; a kill or a
// block has already moved it elsewhere.
func (k *Kernel) promote(next PID) PID {
	prev := k.current
	if prev != NoPID && k.procs[prev].state == Current {
		k.procs[prev].state = Ready
	}
	k.procs[next].state = Current
	k.current = next
	return prev
}

func (k *Kernel) dispatch(next PID) {
	if next == k.current {
		return
	}
	prev := k.promote(next)
	k.m.Switch(&k.procs[prev].th, &k.procs[next].th)
}

// runnable reports whether any process other than the current one is READY.
func (k *Kernel) runnable() bool {
	if k.ready == NoPID {
		return false
	}
	pid := k.ready
	for {
		if pid != k.current && k.procs[pid].state == Ready {
			return true
		}
		pid = k.nodes[pid].after
		if pid == k.ready {
			return false
		}
	}
}
