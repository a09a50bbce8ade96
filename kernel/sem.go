package kernel

// sement is one semaphore table slot. head/tail link a FIFO of waiting PIDs
// through node.next.
type sement struct {
	used  bool
	count int
	head  PID
	tail  PID
}

func (k *Kernel) sem(id int) (*sement, error) {
	if id < 0 || id >= NSEM || !k.sems[id].used {
		return nil, ErrInvalidSem
	}
	return &k.sems[id], nil
}

// SemCreate allocates a semaphore with the given initial count.
func (k *Kernel) SemCreate(count int) (int, error) {
	mask := k.m.Disable()
	defer k.m.Restore(mask)

	for id := range k.sems {
		s := &k.sems[id]
		if s.used {
			continue
		}
		*s = sement{used: true, count: count, head: NoPID, tail: NoPID}
		k.debugf("sem %d created (count %d)", id, count)
		return id, nil
	}
	k.logf("sem_create: no free semaphore")
	return -1, ErrNoFreeSem
}

// SemWait decrements the count of id. If it goes negative the calling process
// joins the tail of the wait list and blocks until signalled. A waiter released
// by SemDelete gets ErrSemDeleted.
func (k *Kernel) SemWait(id int) error {
	mask := k.m.Disable()
	defer k.m.Restore(mask)

	s, err := k.sem(id)
	if err != nil {
		return err
	}
	if k.current == NoPID {
		return ErrNoCurrent
	}

	s.count--
	if s.count >= 0 {
		return nil
	}

	pid := k.current
	p := &k.procs[pid]
	p.state = Waiting
	p.sem = id
	p.wake = wakeNone
	k.remove(pid)
	k.enqueue(s, pid)
	k.resched()

	reason := p.wake
	p.wake = wakeNone
	if reason == wakeDeleted {
		return ErrSemDeleted
	}
	return nil
}

// SemSignal increments the count of id and, if processes are waiting, makes the
// oldest one READY. It never reschedules.
func (k *Kernel) SemSignal(id int) error {
	mask := k.m.Disable()
	defer k.m.Restore(mask)

	s, err := k.sem(id)
	if err != nil {
		return err
	}
	s.count++
	if s.count > 0 {
		return nil
	}
	pid := k.dequeue(s)
	if pid == NoPID {
		k.logf("sem %d: count %d with empty wait list", id, s.count)
		return ErrSemCorrupt
	}
	k.wake(pid, wakeSignal)
	return nil
}

// SemDelete releases every waiter of id and frees the slot.
func (k *Kernel) SemDelete(id int) error {
	mask := k.m.Disable()
	defer k.m.Restore(mask)

	s, err := k.sem(id)
	if err != nil {
		return err
	}
	n := 0
	for pid := k.dequeue(s); pid != NoPID; pid = k.dequeue(s) {
		k.wake(pid, wakeDeleted)
		n++
	}
	*s = sement{head: NoPID, tail: NoPID}
	k.debugf("sem %d deleted, %d waiters released", id, n)
	return nil
}

// SemCount returns the current count of id.
func (k *Kernel) SemCount(id int) (int, error) {
	mask := k.m.Disable()
	defer k.m.Restore(mask)

	s, err := k.sem(id)
	if err != nil {
		return 0, err
	}
	return s.count, nil
}

// SemWaiters returns the wait list of id, oldest first.
func (k *Kernel) SemWaiters(id int) ([]PID, error) {
	mask := k.m.Disable()
	defer k.m.Restore(mask)

	s, err := k.sem(id)
	if err != nil {
		return nil, err
	}
	return k.semWaiters(s), nil
}

func (k *Kernel) semWaiters(s *sement) []PID {
	var out []PID
	for pid := s.head; pid != NoPID && len(out) < NPROC; pid = k.nodes[pid].next {
		out = append(out, pid)
	}
	return out
}

func (k *Kernel) enqueue(s *sement, pid PID) {
	k.nodes[pid].next = NoPID
	if s.tail == NoPID {
		s.head = pid
	} else {
		k.nodes[s.tail].next = pid
	}
	s.tail = pid
}

func (k *Kernel) dequeue(s *sement) PID {
	pid := s.head
	if pid == NoPID {
		return NoPID
	}
	s.head = k.nodes[pid].next
	if s.head == NoPID {
		s.tail = NoPID
	}
	k.nodes[pid].next = NoPID
	return pid
}

// semUnlink takes pid out of the wait list of id and gives back the count it
// consumed.
func (k *Kernel) semUnlink(id int, pid PID) {
	s, err := k.sem(id)
	if err != nil {
		return
	}
	prev := NoPID
	for cur := s.head; cur != NoPID; cur = k.nodes[cur].next {
		if cur != pid {
			prev = cur
			continue
		}
		next := k.nodes[cur].next
		if prev == NoPID {
			s.head = next
		} else {
			k.nodes[prev].next = next
		}
		if s.tail == cur {
			s.tail = prev
		}
		k.nodes[cur].next = NoPID
		s.count++
		return
	}
}

func (k *Kernel) wake(pid PID, reason wakeReason) {
	p := &k.procs[pid]
	p.state = Ready
	p.sem = -1
	p.wake = reason
	k.appendTail(pid)
}
