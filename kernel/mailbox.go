package kernel

// Send stores msg in the mailbox of pid. It never blocks: a full mailbox is
// reported and left untouched. A receiver blocked in RECV becomes READY.
func (k *Kernel) Send(pid PID, msg uint32) SendResult {
	mask := k.m.Disable()
	defer k.m.Restore(mask)

	if !pid.Valid() || k.procs[pid].state == Free {
		return SendErrInvalidPID
	}
	p := &k.procs[pid]
	if p.hasMsg {
		return SendErrMailboxFull
	}
	p.msg = msg
	p.hasMsg = true
	if p.state == Recv {
		k.wake(pid, wakeMessage)
	}
	return SendOK
}

// Receive returns the message in the caller's mailbox, blocking until one
// arrives.
func (k *Kernel) Receive() (uint32, error) {
	mask := k.m.Disable()
	defer k.m.Restore(mask)

	if k.current == NoPID {
		return 0, ErrNoCurrent
	}
	pid := k.current
	p := &k.procs[pid]
	for !p.hasMsg {
		p.state = Recv
		k.remove(pid)
		k.resched()
	}
	p.wake = wakeNone
	return k.take(p), nil
}

// TryReceive returns and clears the caller's pending message, if any.
func (k *Kernel) TryReceive() (uint32, bool) {
	mask := k.m.Disable()
	defer k.m.Restore(mask)

	if k.current == NoPID {
		return 0, false
	}
	p := &k.procs[k.current]
	if !p.hasMsg {
		return 0, false
	}
	return k.take(p), true
}

func (k *Kernel) take(p *pcb) uint32 {
	msg := p.msg
	p.msg = 0
	p.hasMsg = false
	return msg
}
