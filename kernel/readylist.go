package kernel

// node holds the intrusive links of one process table slot. before/after link the
// circular ready list; next links a semaphore's FIFO wait list. A slot is on at
// most one of the two lists at a time.
type node struct {
	before PID
	after  PID
	next   PID
}

func (k *Kernel) linked(pid PID) bool { return k.nodes[pid].after != NoPID }

// insertHead links pid in front of the current head and makes it the head.
func (k *Kernel) insertHead(pid PID) {
	k.link(pid)
	k.ready = pid
}

// appendTail links pid just before the head, at the end of a traversal.
func (k *Kernel) appendTail(pid PID) {
	k.link(pid)
}

func (k *Kernel) link(pid PID) {
	n := &k.nodes[pid]
	if k.ready == NoPID {
		n.before, n.after = pid, pid
		k.ready = pid
		return
	}
	head := k.ready
	tail := k.nodes[head].before
	n.before, n.after = tail, head
	k.nodes[tail].after = pid
	k.nodes[head].before = pid
}

// remove unlinks pid from the ready list. A singleton list collapses to empty.
func (k *Kernel) remove(pid PID) {
	n := &k.nodes[pid]
	if n.after == NoPID {
		return
	}
	if n.after == pid {
		k.ready = NoPID
	} else {
		k.nodes[n.before].after = n.after
		k.nodes[n.after].before = n.before
		if k.ready == pid {
			k.ready = n.after
		}
	}
	n.before, n.after = NoPID, NoPID
}

// ReadyList returns the ready list in traversal order from its head.
func (k *Kernel) ReadyList() []PID {
	mask := k.m.Disable()
	defer k.m.Restore(mask)
	return k.readyList()
}

func (k *Kernel) readyList() []PID {
	var out []PID
	if k.ready == NoPID {
		return out
	}
	pid := k.ready
	for {
		out = append(out, pid)
		pid = k.nodes[pid].after
		if pid == k.ready || len(out) > NPROC {
			return out
		}
	}
}

// Next returns the ready-list successor of pid, or NoPID if pid is not linked.
func (k *Kernel) Next(pid PID) PID {
	if !pid.Valid() {
		return NoPID
	}
	return k.nodes[pid].after
}

// Prev returns the ready-list predecessor of pid, or NoPID if pid is not linked.
func (k *Kernel) Prev(pid PID) PID {
	if !pid.Valid() {
		return NoPID
	}
	return k.nodes[pid].before
}
