package kernel

import (
	"context"
	"errors"
	"testing"
	"time"
)

func bootKernel(t *testing.T, k *Kernel) int {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	status, err := k.Boot(ctx)
	if err != nil {
		t.Fatalf("Boot() error = %v", err)
	}
	return status
}

func TestSemCreateExhaustion(t *testing.T) {
	k := newTestKernel(t, Config{})
	for i := 0; i < NSEM; i++ {
		id, err := k.SemCreate(i)
		if err != nil || id != i {
			t.Fatalf("SemCreate(%d) = %d, %v; want %d, nil", i, id, err, i)
		}
	}
	id, err := k.SemCreate(0)
	if id != -1 || !errors.Is(err, ErrNoFreeSem) {
		t.Fatalf("SemCreate() = %d, %v; want -1, ErrNoFreeSem", id, err)
	}
	if err := k.SemDelete(3); err != nil {
		t.Fatalf("SemDelete(3) = %v", err)
	}
	if id, _ := k.SemCreate(1); id != 3 {
		t.Fatalf("SemCreate() after delete = %d, want 3", id)
	}
}

func TestSemInvalidID(t *testing.T) {
	k := newTestKernel(t, Config{})
	for _, id := range []int{-1, 0, NSEM, 1000} {
		if err := k.SemSignal(id); !errors.Is(err, ErrInvalidSem) {
			t.Fatalf("SemSignal(%d) = %v, want ErrInvalidSem", id, err)
		}
		if err := k.SemWait(id); !errors.Is(err, ErrInvalidSem) {
			t.Fatalf("SemWait(%d) = %v, want ErrInvalidSem", id, err)
		}
		if err := k.SemDelete(id); !errors.Is(err, ErrInvalidSem) {
			t.Fatalf("SemDelete(%d) = %v, want ErrInvalidSem", id, err)
		}
	}
}

func TestSemWaitOutsideProcess(t *testing.T) {
	k := newTestKernel(t, Config{})
	id, _ := k.SemCreate(0)
	if err := k.SemWait(id); !errors.Is(err, ErrNoCurrent) {
		t.Fatalf("SemWait() before boot = %v, want ErrNoCurrent", err)
	}
	if n, _ := k.SemCount(id); n != 0 {
		t.Fatalf("SemCount() = %d, want 0", n)
	}
}

func TestSemSignalWithoutWaiters(t *testing.T) {
	k := newTestKernel(t, Config{})
	id, _ := k.SemCreate(1)
	if err := k.SemSignal(id); err != nil {
		t.Fatalf("SemSignal() = %v", err)
	}
	if n, _ := k.SemCount(id); n != 2 {
		t.Fatalf("SemCount() = %d, want 2", n)
	}
}

func TestSemSignalWakesOneWaiter(t *testing.T) {
	k := newTestKernel(t, Config{})
	sem, _ := k.SemCreate(0)
	var events []string
	var countAfter int
	var waitersAfter []PID

	mustCreate(t, k, func(c *Context, _ any) {
		events = append(events, "signal")
		if err := c.SemSignal(sem); err != nil {
			t.Errorf("SemSignal() = %v", err)
		}
		countAfter, _ = k.SemCount(sem)
		waitersAfter, _ = k.SemWaiters(sem)
		for {
			c.Yield()
		}
	}, "Q")
	mustCreate(t, k, func(c *Context, _ any) {
		events = append(events, "wait")
		if err := c.SemWait(sem); err != nil {
			t.Errorf("SemWait() = %v", err)
		}
		events = append(events, "woke")
		c.Terminate(0)
	}, "P")

	bootKernel(t, k)

	if len(events) != 3 || events[0] != "wait" || events[1] != "signal" || events[2] != "woke" {
		t.Fatalf("events = %v, want [wait signal woke]", events)
	}
	if countAfter != 0 {
		t.Fatalf("count after signal = %d, want 0", countAfter)
	}
	if len(waitersAfter) != 0 {
		t.Fatalf("waiters after signal = %v, want none", waitersAfter)
	}
}

func TestSemWaitListIsFIFO(t *testing.T) {
	const n, m = 5, 2
	k := newTestKernel(t, Config{})
	sem, _ := k.SemCreate(0)

	var order []PID
	var waiting, woken []PID

	for i := 0; i < n; i++ {
		mustCreate(t, k, func(c *Context, _ any) {
			order = append(order, c.PID())
			if err := c.SemWait(sem); err != nil {
				t.Errorf("SemWait() = %v", err)
			}
			woken = append(woken, c.PID())
		}, "waiter")
	}
	// Created last, so it runs first and must wait for the waiters to block.
	mustCreate(t, k, func(c *Context, _ any) {
		for len(order) < n {
			c.Yield()
		}
		for i := 0; i < m; i++ {
			if err := c.SemSignal(sem); err != nil {
				t.Errorf("SemSignal() = %v", err)
			}
		}
		waiting, _ = c.Kernel().SemWaiters(sem)
		for len(woken) < m {
			c.Yield()
		}
		c.Terminate(0)
	}, "ctl")

	bootKernel(t, k)

	if !equalPIDs(waiting, order[m:]) {
		t.Fatalf("waiters = %v, want %v", waiting, order[m:])
	}
	if !equalPIDs(woken, order[:m]) {
		t.Fatalf("woken = %v, want %v", woken, order[:m])
	}
}

func TestSemDeleteReleasesWaiters(t *testing.T) {
	k := newTestKernel(t, Config{})
	sem, _ := k.SemCreate(0)
	var errs []error

	for i := 0; i < 2; i++ {
		mustCreate(t, k, func(c *Context, _ any) {
			errs = append(errs, c.SemWait(sem))
		}, "waiter")
	}
	mustCreate(t, k, func(c *Context, _ any) {
		for {
			if w, _ := c.Kernel().SemWaiters(sem); len(w) == 2 {
				break
			}
			c.Yield()
		}
		if err := c.SemDelete(sem); err != nil {
			t.Errorf("SemDelete() = %v", err)
		}
		for len(errs) < 2 {
			c.Yield()
		}
		c.Terminate(0)
	}, "ctl")

	bootKernel(t, k)

	for i, err := range errs {
		if !errors.Is(err, ErrSemDeleted) {
			t.Fatalf("waiter %d: SemWait() = %v, want ErrSemDeleted", i, err)
		}
	}
	if _, err := k.SemCount(sem); !errors.Is(err, ErrInvalidSem) {
		t.Fatalf("SemCount() after delete = %v, want ErrInvalidSem", err)
	}
}

func TestKillWaitingProcessGivesBackCount(t *testing.T) {
	k := newTestKernel(t, Config{})
	sem, _ := k.SemCreate(0)
	var count int
	var waiters []PID
	var gone bool

	w := mustCreate(t, k, func(c *Context, _ any) {
		c.SemWait(sem)
		t.Error("killed waiter resumed")
	}, "waiter")
	mustCreate(t, k, func(c *Context, _ any) {
		for {
			if ws, _ := c.Kernel().SemWaiters(sem); len(ws) == 1 {
				break
			}
			c.Yield()
		}
		if err := c.Kill(w); err != nil {
			t.Errorf("Kill(%d) = %v", w, err)
		}
		count, _ = c.Kernel().SemCount(sem)
		waiters, _ = c.Kernel().SemWaiters(sem)
		for i := 0; i < 2*NPROC && !gone; i++ {
			_, ok := c.Kernel().Snapshot().Proc(w)
			gone = !ok
			c.Yield()
		}
		c.Terminate(0)
	}, "killer")

	bootKernel(t, k)

	if count != 0 {
		t.Fatalf("count after kill = %d, want 0", count)
	}
	if len(waiters) != 0 {
		t.Fatalf("waiters after kill = %v, want none", waiters)
	}
	if !gone {
		t.Fatalf("killed waiter %d was never reaped", w)
	}
}
