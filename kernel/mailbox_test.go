package kernel

import (
	"errors"
	"testing"
)

func TestSendInvalidPID(t *testing.T) {
	k := newTestKernel(t, Config{})
	for _, pid := range []PID{7, NPROC, NoPID} {
		if got := k.Send(pid, 1); got != SendErrInvalidPID {
			t.Fatalf("Send(%d) = %v, want %v", pid, got, SendErrInvalidPID)
		}
	}
	if got := SendErrInvalidPID.Code(); got != -1 {
		t.Fatalf("SendErrInvalidPID.Code() = %d, want -1", got)
	}
}

func TestSendToFullMailbox(t *testing.T) {
	k := newTestKernel(t, Config{})
	q := mustCreate(t, k, nop, "Q")

	if got := k.Send(q, 11); got != SendOK {
		t.Fatalf("first Send() = %v, want %v", got, SendOK)
	}
	got := k.Send(q, 22)
	if got != SendErrMailboxFull || got.Code() != -2 {
		t.Fatalf("second Send() = %v (%d), want %v (-2)", got, got.Code(), SendErrMailboxFull)
	}
	p, _ := k.Snapshot().Proc(q)
	if !p.HasMsg || p.Msg != 11 {
		t.Fatalf("mailbox = %v/%d, want true/11", p.HasMsg, p.Msg)
	}
}

func TestReceiveOutsideProcess(t *testing.T) {
	k := newTestKernel(t, Config{})
	if _, err := k.Receive(); !errors.Is(err, ErrNoCurrent) {
		t.Fatalf("Receive() before boot = %v, want ErrNoCurrent", err)
	}
	if _, ok := k.TryReceive(); ok {
		t.Fatal("TryReceive() before boot reported a message")
	}
}

func TestSendTwiceBeforeReceive(t *testing.T) {
	k := newTestKernel(t, Config{})
	var results []SendResult
	var got []uint32
	var tryOK bool

	q := mustCreate(t, k, func(c *Context, _ any) {
		v, err := c.Receive()
		if err != nil {
			t.Errorf("Receive() = %v", err)
		}
		got = append(got, v)
		_, tryOK = c.TryReceive()
		c.Terminate(0)
	}, "Q")
	mustCreate(t, k, func(c *Context, _ any) {
		results = append(results, c.Send(q, 11), c.Send(q, 22))
	}, "P")

	bootKernel(t, k)

	if len(results) != 2 || results[0] != SendOK || results[1] != SendErrMailboxFull {
		t.Fatalf("results = %v, want [ok mailbox full]", results)
	}
	if len(got) != 1 || got[0] != 11 {
		t.Fatalf("received %v, want [11]", got)
	}
	if tryOK {
		t.Fatal("TryReceive() found a second message")
	}
}

func TestReceiveBlocksUntilSend(t *testing.T) {
	k := newTestKernel(t, Config{})
	var events []string
	var state State

	var r PID
	mustCreate(t, k, func(c *Context, _ any) {
		p, _ := c.Kernel().Snapshot().Proc(r)
		state = p.State
		events = append(events, "send")
		if res := c.Send(r, 42); res != SendOK {
			t.Errorf("Send() = %v", res)
		}
	}, "S")
	r = mustCreate(t, k, func(c *Context, _ any) {
		events = append(events, "recv")
		v, _ := c.Receive()
		events = append(events, "got")
		if v != 42 {
			t.Errorf("Receive() = %d, want 42", v)
		}
		c.Terminate(0)
	}, "R")

	bootKernel(t, k)

	if len(events) != 3 || events[0] != "recv" || events[1] != "send" || events[2] != "got" {
		t.Fatalf("events = %v, want [recv send got]", events)
	}
	if state != Recv {
		t.Fatalf("receiver state while blocked = %v, want RECV", state)
	}
}

func TestTryReceiveClearsMailbox(t *testing.T) {
	k := newTestKernel(t, Config{})
	var first, second bool
	var v uint32

	mustCreate(t, k, func(c *Context, _ any) {
		c.Send(c.PID(), 9)
		v, first = c.TryReceive()
		_, second = c.TryReceive()
		c.Terminate(0)
	}, "self")

	bootKernel(t, k)

	if !first || v != 9 || second {
		t.Fatalf("TryReceive() = %d/%v then %v, want 9/true then false", v, first, second)
	}
}
