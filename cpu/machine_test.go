package cpu

import (
	"testing"
	"time"
)

func newThread(size int) *Thread {
	return &Thread{Stack: make([]byte, size)}
}

func waitMachine(t *testing.T, m *Machine) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		m.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		m.Shutdown()
		t.Fatal("timed out waiting for machine")
	}
}

func TestPrepareFrameLayout(t *testing.T) {
	th := newThread(256)
	Prepare(th, 0x100010, 0x100020, 7)

	if got, want := th.SP, uint32(256-12*4); got != want {
		t.Fatalf("SP = %d, want %d", got, want)
	}
	for i := 0; i < NumRegs; i++ {
		if got := th.Word(i); got != 0 {
			t.Fatalf("Word(%d) = %#x, want 0", i, got)
		}
	}
	want := []uint32{InitialFlags, 0x100010, 0x100020, 7}
	for i, w := range want {
		if got := th.Word(NumRegs + i); got != w {
			t.Fatalf("Word(%d) = %#x, want %#x", NumRegs+i, got, w)
		}
	}
}

func TestPushOverflowPanics(t *testing.T) {
	th := newThread(8)
	th.SP = 8
	th.push(1)
	th.push(2)

	defer func() {
		if r := recover(); r != ErrStackOverflow {
			t.Fatalf("recover() = %v, want ErrStackOverflow", r)
		}
	}()
	th.push(3)
}

func TestStartRunsEntryThenExit(t *testing.T) {
	m := New()
	var order []uint32
	var flags uint32

	entry := m.Link(func(arg uint32) {
		flags = m.Regs().EFLAGS
		order = append(order, arg)
	})
	exit := m.Link(func(arg uint32) {
		order = append(order, arg+100)
		m.PowerOff()
	})

	th := newThread(256)
	Prepare(th, entry, exit, 5)
	m.Start(th)
	waitMachine(t, m)

	if len(order) != 2 || order[0] != 5 || order[1] != 105 {
		t.Fatalf("order = %v, want [5 105]", order)
	}
	if flags != InitialFlags {
		t.Fatalf("EFLAGS at entry = %#x, want %#x", flags, InitialFlags)
	}
}

func TestSwitchPreservesRegisters(t *testing.T) {
	m := New()
	a := newThread(512)
	b := newThread(512)

	var seenByB, resumedA uint32
	var steps []string

	entryA := m.Link(func(uint32) {
		m.Disable()
		m.Regs().GPR[EAX] = 0xAAAA
		m.Regs().GPR[ESI] = 0x1234
		steps = append(steps, "a1")
		m.Switch(a, b)
		steps = append(steps, "a2")
		resumedA = m.Regs().GPR[EAX] ^ m.Regs().GPR[ESI]
		m.PowerOff()
	})
	entryB := m.Link(func(uint32) {
		m.Disable()
		seenByB = m.Regs().GPR[EAX]
		m.Regs().GPR[EAX] = 0xBBBB
		steps = append(steps, "b1")
		m.Switch(b, a)
		steps = append(steps, "b2")
	})

	Prepare(a, entryA, 0, 0)
	Prepare(b, entryB, 0, 0)
	m.Start(a)
	waitMachine(t, m)

	if seenByB != 0 {
		t.Fatalf("fresh thread saw EAX = %#x, want 0", seenByB)
	}
	if resumedA != 0xAAAA^0x1234 {
		t.Fatalf("resumed registers = %#x, want %#x", resumedA, 0xAAAA^0x1234)
	}
	if got := len(steps); got != 3 || steps[0] != "a1" || steps[1] != "b1" || steps[2] != "a2" {
		t.Fatalf("steps = %v, want [a1 b1 a2]", steps)
	}
}

func TestInterruptDeferredWhileMasked(t *testing.T) {
	m := New()
	var fired []string

	m.Handle(IRQTimer, func() {
		fired = append(fired, "timer")
		m.Ack(IRQTimer)
	})

	entry := m.Link(func(uint32) {
		mask := m.Disable()
		m.Raise(IRQTimer)
		fired = append(fired, "masked")
		m.Restore(mask)
		fired = append(fired, "after")
		m.PowerOff()
	})

	th := newThread(256)
	Prepare(th, entry, 0, 0)
	m.Start(th)
	waitMachine(t, m)

	if len(fired) != 3 || fired[0] != "masked" || fired[1] != "timer" || fired[2] != "after" {
		t.Fatalf("fired = %v, want [masked timer after]", fired)
	}
}

func TestUnackedLineIsNotRedelivered(t *testing.T) {
	m := New()
	count := 0
	m.Handle(IRQSerial, func() { count++ })

	entry := m.Link(func(uint32) {
		m.Raise(IRQSerial)
		m.Preempt()
		m.Raise(IRQSerial)
		m.Preempt()
		m.Ack(IRQSerial)
		m.Preempt()
		m.PowerOff()
	})

	th := newThread(256)
	Prepare(th, entry, 0, 0)
	m.Start(th)
	waitMachine(t, m)

	if count != 2 {
		t.Fatalf("handler ran %d times, want 2", count)
	}
}

func TestHaltWakesOnRaise(t *testing.T) {
	m := New()
	woke := false
	m.Handle(IRQTimer, func() {
		woke = true
		m.Ack(IRQTimer)
	})

	entry := m.Link(func(uint32) {
		m.Halt()
		m.PowerOff()
	})

	th := newThread(256)
	Prepare(th, entry, 0, 0)
	m.Start(th)

	go func() {
		time.Sleep(5 * time.Millisecond)
		m.Raise(IRQTimer)
	}()
	waitMachine(t, m)

	if !woke {
		t.Fatal("Halt() returned without servicing the timer")
	}
}

func TestDiscardReleasesParkedThread(t *testing.T) {
	m := New()
	a := newThread(512)
	b := newThread(512)
	resumed := false

	entryA := m.Link(func(uint32) {
		m.Disable()
		m.Switch(a, b)
		resumed = true
	})
	entryB := m.Link(func(uint32) {
		m.Discard(a)
		m.PowerOff()
	})

	Prepare(a, entryA, 0, 0)
	Prepare(b, entryB, 0, 0)
	m.Start(a)
	waitMachine(t, m)

	if resumed {
		t.Fatal("discarded thread resumed")
	}
}

func TestDiscardedThreadCannotUnmask(t *testing.T) {
	m := New()
	a := newThread(512)
	b := newThread(512)
	unwound := make(chan struct{})
	var enabled bool

	entryA := m.Link(func(uint32) {
		defer close(unwound)
		m.Enable()
		mask := m.Disable()
		defer m.Restore(mask)
		m.Switch(a, b)
	})
	entryB := m.Link(func(uint32) {
		m.Disable()
		m.Discard(a)
		<-unwound
		enabled = m.Enabled()
		m.PowerOff()
	})

	Prepare(a, entryA, 0, 0)
	Prepare(b, entryB, 0, 0)
	m.Start(a)
	waitMachine(t, m)

	if enabled {
		t.Fatal("Restore() from a discarded thread unmasked interrupts for the new owner")
	}
}

func TestEachThreadHasItsOwnStrand(t *testing.T) {
	m := New()
	a := newThread(512)
	b := newThread(512)
	var sa, sb *strand

	entryA := m.Link(func(uint32) {
		m.Disable()
		sa = m.owner.Load()
		m.Switch(a, b)
	})
	entryB := m.Link(func(uint32) {
		sb = m.owner.Load()
		m.PowerOff()
	})

	Prepare(a, entryA, 0, 0)
	Prepare(b, entryB, 0, 0)
	m.Start(a)
	waitMachine(t, m)

	if sa == nil || sa == sb {
		t.Fatalf("owner strands = %p and %p, want two distinct strands", sa, sb)
	}
}

func TestShutdownReleasesHaltedThread(t *testing.T) {
	m := New()
	entry := m.Link(func(uint32) {
		for {
			m.Halt()
		}
	})
	th := newThread(256)
	Prepare(th, entry, 0, 0)
	m.Start(th)

	m.Shutdown()
	waitMachine(t, m)
}
