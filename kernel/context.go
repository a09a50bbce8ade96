package kernel

// Context is the handle a process uses to call into the kernel.
type Context struct {
	k   *Kernel
	pid PID
}

// PID returns the process the context belongs to.
func (c *Context) PID() PID { return c.pid }

// Kernel returns the kernel the process runs on.
func (c *Context) Kernel() *Kernel { return c.k }

// Yield offers the core to the oldest READY process.
func (c *Context) Yield() { c.k.Resched() }

// Preempt is a safe point: pending interrupts, including the timer, are
// serviced here. Long computations should call it periodically.
func (c *Context) Preempt() { c.k.m.Preempt() }

// Create starts a new process.
func (c *Context) Create(entry Entry, arg any, name string) (PID, error) {
	return c.k.Create(entry, arg, name)
}

// Kill terminates pid.
func (c *Context) Kill(pid PID) error { return c.k.Kill(pid) }

// Exit terminates the calling process.
func (c *Context) Exit() {
	if err := c.k.Kill(c.pid); err != nil {
		c.k.logf("exit pid %d: %v", c.pid, err)
	}
}

// Send stores msg in the mailbox of pid.
func (c *Context) Send(pid PID, msg uint32) SendResult { return c.k.Send(pid, msg) }

// Receive blocks until a message is available.
func (c *Context) Receive() (uint32, error) { return c.k.Receive() }

// TryReceive returns a pending message without blocking.
func (c *Context) TryReceive() (uint32, bool) { return c.k.TryReceive() }

func (c *Context) SemCreate(count int) (int, error) { return c.k.SemCreate(count) }
func (c *Context) SemWait(id int) error              { return c.k.SemWait(id) }
func (c *Context) SemSignal(id int) error            { return c.k.SemSignal(id) }
func (c *Context) SemDelete(id int) error            { return c.k.SemDelete(id) }

// Ticks returns the timer tick count.
func (c *Context) Ticks() uint64 { return c.k.Ticks() }

// Terminate stops the machine. It does not return.
func (c *Context) Terminate(status int) { c.k.Terminate(status) }

// Logf writes a line tagged with the process name to the kernel logger.
func (c *Context) Logf(format string, args ...any) {
	if c.k.cfg.Logger == nil {
		return
	}
	mask := c.k.m.Disable()
	name := c.k.procs[c.pid].name
	c.k.m.Restore(mask)
	c.k.cfg.Logger.WriteLineString(name + ": " + sprintf(format, args...))
}
