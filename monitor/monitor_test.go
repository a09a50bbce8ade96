package monitor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"pulsar/kernel"
)

type scriptReader struct {
	lines []string
}

func (r *scriptReader) ReadLine() (string, error) {
	if len(r.lines) == 0 {
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}

func TestReportsBeforeBoot(t *testing.T) {
	k := kernel.New(kernel.Config{})
	s := k.Snapshot()

	var buf bytes.Buffer
	Processes(&buf, s)
	if out := buf.String(); !strings.Contains(out, "null") || !strings.Contains(out, "Total processes: 1") {
		t.Fatalf("Processes() output:\n%s", out)
	}

	buf.Reset()
	ReadyQueue(&buf, s)
	if out := buf.String(); !strings.Contains(out, "Current PID: none") || !strings.Contains(out, "[0] PID 0 (null) - READY") {
		t.Fatalf("ReadyQueue() output:\n%s", out)
	}

	buf.Reset()
	CPUUsage(&buf, s)
	if out := buf.String(); !strings.Contains(out, "No CPU time recorded yet.") {
		t.Fatalf("CPUUsage() output:\n%s", out)
	}

	buf.Reset()
	SysInfo(&buf, s)
	if out := buf.String(); !strings.Contains(out, "round robin with aging") {
		t.Fatalf("SysInfo() output:\n%s", out)
	}
}

func TestDumpUnknownPID(t *testing.T) {
	k := kernel.New(kernel.Config{})
	var buf bytes.Buffer
	if err := Dump(&buf, k, 9); !errors.Is(err, kernel.ErrInvalidPID) {
		t.Fatalf("Dump(9) = %v, want ErrInvalidPID", err)
	}
}

func TestShellSession(t *testing.T) {
	k := kernel.New(kernel.Config{})
	var out bytes.Buffer

	echo := Program{Name: "echo", Help: "print one message", Entry: func(c *kernel.Context, arg any) {
		v, _ := c.Receive()
		c.Logf("got %d (arg %v)", v, arg)
	}}
	in := &scriptReader{lines: []string{
		"help",
		"ps",
		"queue",
		"spawn echo 7",
		"send 2 0x10",
		"send 2 0x11",
		"cpu",
		"stats",
		"dump 0",
		"kill 0",
		"bogus",
		"dump",
		`spawn "echo`,
		"",
		"halt 9",
	}}
	sh := NewShell(in, &out, echo)
	if _, err := k.Create(sh.Run, nil, "shell"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	status, err := k.Boot(ctx)
	if err != nil {
		t.Fatalf("Boot() error = %v", err)
	}
	if status != 9 {
		t.Fatalf("Boot() = %d, want 9", status)
	}

	got := out.String()
	for _, want := range []string{
		"dump <pid>",
		"programs: echo",
		"Process Table",
		"<-- CURRENT",
		"started echo as pid 2",
		"error: send: mailbox full (-2)",
		"CPU Usage",
		"Semaphores:",
		"Saved stack (sp=",
		"error: kernel: process is protected",
		"error: unknown command: bogus",
		"error: usage: dump <pid>",
		"halting with status 9",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Count(got, "error:") != 5 {
		t.Fatalf("got %d errors, want 5:\n%s", strings.Count(got, "error:"), got)
	}
}
