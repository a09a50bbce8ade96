package kernel

// PanicInfo describes a panic recovered from a process entry.
type PanicInfo struct {
	PID   PID
	Name  string
	Value any
	Stack []byte
}

// contain reports a panic raised by pid. The caller then lets the process fall
// into its exit handler, so only that process is lost.
func (k *Kernel) contain(pid PID, v any) {
	info := PanicInfo{
		PID:   pid,
		Name:  k.procs[pid].name,
		Value: v,
		Stack: captureStack(),
	}
	k.logf("pid %d (%s) panicked: %v", pid, info.Name, v)
	if k.cfg.OnPanic != nil {
		k.cfg.OnPanic(info)
	}
}
