package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"pulsar/hal"
	"pulsar/kernel"
)

type testLogger struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (l *testLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf.WriteString(s + "\n")
}

func (l *testLogger) WriteLineBytes(b []byte) { l.WriteLineString(string(b)) }

func (l *testLogger) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.String()
}

type testSerial struct {
	testLogger
	in chan []byte
}

func (s *testSerial) Read(p []byte) (int, error) {
	b, ok := <-s.in
	if !ok {
		return 0, errors.New("closed")
	}
	return copy(p, b), nil
}

func (s *testSerial) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

type testTime struct{ ch chan uint64 }

func (t testTime) Ticks() <-chan uint64 { return t.ch }

type testHAL struct {
	log    *testLogger
	serial *testSerial
	t      testTime
}

func newTestHAL() *testHAL {
	return &testHAL{
		log:    &testLogger{},
		serial: &testSerial{in: make(chan []byte, 8)},
		t:      testTime{ch: make(chan uint64)},
	}
}

func (h *testHAL) Logger() hal.Logger   { return h.log }
func (h *testHAL) Display() hal.Display { return nil }
func (h *testHAL) Input() hal.Input     { return nil }
func (h *testHAL) Time() hal.Time       { return h.t }
func (h *testHAL) Serial() hal.Serial   { return h.serial }

// tick drives the timer until ctx is done.
func (h *testHAL) tick(ctx context.Context) {
	var seq uint64
	for {
		seq++
		select {
		case <-ctx.Done():
			return
		case h.t.ch <- seq:
		}
		time.Sleep(100 * time.Microsecond)
	}
}

func TestLoadConfig(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "pulsar-*.json")
	if err != nil {
		t.Fatalf("CreateTemp() error = %v", err)
	}
	json.NewEncoder(f).Encode(map[string]any{"quantum": 4, "workers": 2, "shell": false})
	f.Close()

	cfg, err := LoadConfig(f.Name())
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Quantum != 4 || cfg.Workers != 2 || cfg.Shell {
		t.Fatalf("LoadConfig() = %+v", cfg)
	}
	if cfg.Iterations != DefaultConfig().Iterations {
		t.Fatalf("Iterations = %d, want default %d", cfg.Iterations, DefaultConfig().Iterations)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig(t.TempDir() + "/missing.json"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("LoadConfig(missing) = %v, want ErrNotExist", err)
	}
	path := t.TempDir() + "/bad.json"
	os.WriteFile(path, []byte(`{"workers": 40, "stacks": 16}`), 0o644)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("LoadConfig() accepted more workers than stacks")
	}
}

func TestRunWorkloadToCompletion(t *testing.T) {
	h := newTestHAL()
	cfg := DefaultConfig()
	cfg.Shell = false
	cfg.Quantum = 2
	cfg.Iterations = 3

	s, err := NewSystem(h, cfg)
	if err != nil {
		t.Fatalf("NewSystem() error = %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	go h.tick(ctx)

	status, err := s.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if status != 0 {
		t.Fatalf("Run() = %d, want 0", status)
	}

	out := h.serial.String()
	for _, want := range []string{
		"[worker 0] done",
		"[worker 2] done",
		"[consumer] received 8 messages, sum 204",
		"CPU Usage",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("console output missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(h.log.String(), "system terminated with status 0") {
		t.Fatalf("log:\n%s", h.log.String())
	}
}

func TestShellOverSerial(t *testing.T) {
	h := newTestHAL()
	cfg := DefaultConfig()
	cfg.Workers = 0
	cfg.Echo = false

	step := New(h, cfg)
	h.serial.in <- []byte("ps\n")
	h.serial.in <- []byte("halt 3\n")

	deadline := time.After(10 * time.Second)
	for {
		err := step()
		var halt *HaltError
		if errors.As(err, &halt) {
			if halt.Status != 3 {
				t.Fatalf("halt status = %d, want 3", halt.Status)
			}
			break
		}
		if err != nil {
			t.Fatalf("step() error = %v", err)
		}
		select {
		case <-deadline:
			t.Fatal("system did not halt")
		case <-time.After(time.Millisecond):
		}
	}
	out := h.serial.String()
	if !strings.Contains(out, "Process Table") || !strings.Contains(out, "halting with status 3") {
		t.Fatalf("console output:\n%s", out)
	}
}

func TestPanicHandlerReports(t *testing.T) {
	h := newTestHAL()
	cfg := DefaultConfig()
	cfg.Shell = false
	cfg.Workers = 0

	s, err := NewSystem(h, cfg)
	if err != nil {
		t.Fatalf("NewSystem() error = %v", err)
	}
	s.panicHandler(kernel.PanicInfo{PID: 4, Name: "bad", Value: "boom", Stack: []byte("a\n\nb\n")})

	if log := h.log.String(); !strings.Contains(log, "pulsar panic: pid=4 name=bad panic=boom\na\nb\n") {
		t.Fatalf("log:\n%s", log)
	}
	if out := h.serial.String(); !strings.Contains(out, "pid 4 (bad) crashed: boom") {
		t.Fatalf("console:\n%s", out)
	}
}

func bootTest(t *testing.T, k *kernel.Kernel) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := k.Boot(ctx); err != nil {
		t.Fatalf("Boot() error = %v", err)
	}
}

func TestStartPipeKillsOrphanedConsumer(t *testing.T) {
	log := &testLogger{}
	k := kernel.New(kernel.Config{Stacks: 3, StackSize: 1024, Logger: log})
	s := &System{k: k}
	var jobs int
	var states []kernel.State

	k.Create(func(c *kernel.Context, _ any) {
		done, _ := c.SemCreate(0)
		jobs = s.startPipe(c, done)
		for _, p := range c.Kernel().Snapshot().Procs {
			if p.Name == "consumer" || p.Name == "producer" {
				states = append(states, p.State)
			}
		}
		c.Terminate(0)
	}, nil, "init")

	bootTest(t, k)

	if jobs != 0 {
		t.Fatalf("startPipe() = %d, want 0 without a producer", jobs)
	}
	if len(states) != 1 || states[0] != kernel.Terminated {
		t.Fatalf("pipe states = %v, want [TERMINATED]", states)
	}
	if !strings.Contains(log.String(), "producer: "+kernel.ErrNoStack.Error()) {
		t.Fatalf("log:\n%s", log.String())
	}
}

func TestSignalDoneLogsFailure(t *testing.T) {
	log := &testLogger{}
	k := kernel.New(kernel.Config{Logger: log})

	k.Create(func(c *kernel.Context, _ any) {
		signalDone(c, kernel.NSEM-1)
		c.Terminate(0)
	}, nil, "worker")

	bootTest(t, k)

	want := "worker: signal done (sem 31): " + kernel.ErrInvalidSem.Error()
	if !strings.Contains(log.String(), want) {
		t.Fatalf("log missing %q:\n%s", want, log.String())
	}
}
