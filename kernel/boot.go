package kernel

import "context"

// Boot performs the first activation of the idle process and runs the system
// until a process calls Terminate or ctx is cancelled. It may be called once.
func (k *Kernel) Boot(ctx context.Context) (int, error) {
	mask := k.m.Disable()
	if k.booted {
		k.m.Restore(mask)
		return -1, ErrBooted
	}
	k.booted = true
	k.promote(IdlePID)
	k.logf("boot: %d processes ready, quantum %d ticks", len(k.readyList()), k.quantum)

	stop := context.AfterFunc(ctx, k.m.Shutdown)
	defer stop()

	k.m.Start(&k.procs[IdlePID].th)
	k.m.Wait()

	if !k.halted {
		if err := ctx.Err(); err != nil {
			return -1, err
		}
		return -1, context.Canceled
	}
	return k.status, nil
}

// Terminate stops the machine with the given exit status. It must be called from
// a process and does not return.
func (k *Kernel) Terminate(status int) {
	k.m.Disable()
	k.status = status
	k.halted = true
	k.logf("system terminated with status %d", status)
	k.m.PowerOff()
}

// Halted reports whether Terminate was called, and with which status.
func (k *Kernel) Halted() (int, bool) { return k.status, k.halted }

func idleEntry(c *Context, _ any) { c.k.idle() }

// idle gives the core away whenever someone else is READY and otherwise sleeps
// until the next interrupt.
func (k *Kernel) idle() {
	for {
		mask := k.m.Disable()
		k.resched()
		if !k.runnable() {
			k.m.Halt()
		}
		k.m.Restore(mask)
	}
}
