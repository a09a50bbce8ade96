package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"pulsar/console"
	"pulsar/cpu"
	"pulsar/hal"
	"pulsar/kernel"

	"golang.org/x/sync/errgroup"
)

// HaltError is returned once the kernel powered off.
type HaltError struct {
	Status int
}

func (e *HaltError) Error() string { return fmt.Sprintf("system halted with status %d", e.Status) }

var errPoweredOff = errors.New("powered off")

// System is the kernel, its console and the host pumps feeding them.
type System struct {
	h   hal.HAL
	cfg Config
	k   *kernel.Kernel
	con *console.Console

	mu   sync.Mutex
	done bool
	err  error
}

// NewSystem builds the kernel and its devices on h and creates the init process.
func NewSystem(h hal.HAL, cfg Config) (*System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &System{h: h, cfg: cfg}
	s.k = kernel.New(kernel.Config{
		Quantum:   cfg.Quantum,
		Stacks:    cfg.Stacks,
		StackSize: cfg.StackSize,
		Logger:    h.Logger(),
		Debug:     cfg.Debug,
		OnPanic:   s.panicHandler,
	})

	var fb hal.Framebuffer
	if d := h.Display(); d != nil {
		fb = d.Framebuffer()
	}
	con, err := console.New(s.k, console.Config{
		Serial:      h.Serial(),
		Framebuffer: fb,
		Logger:      h.Logger(),
		Echo:        cfg.Echo,
	})
	if err != nil {
		return nil, err
	}
	s.con = con

	if _, err := s.k.Create(s.initTask, nil, "init"); err != nil {
		return nil, fmt.Errorf("create init: %w", err)
	}
	return s, nil
}

// Kernel returns the system's kernel.
func (s *System) Kernel() *kernel.Kernel { return s.k }

// Run boots the kernel and pumps timer ticks, serial input and key presses
// into it until the kernel halts or ctx is done.
func (s *System) Run(ctx context.Context) (int, error) {
	g, gctx := errgroup.WithContext(ctx)
	var status int

	g.Go(func() error {
		st, err := s.k.Boot(gctx)
		if err != nil {
			return err
		}
		status = st
		return errPoweredOff
	})
	g.Go(func() error { return s.pumpTicks(gctx) })
	g.Go(func() error { return s.pumpSerial(gctx) })
	g.Go(func() error { return s.pumpKeys(gctx) })

	err := g.Wait()
	if errors.Is(err, errPoweredOff) {
		return status, nil
	}
	return -1, err
}

func (s *System) pumpTicks(ctx context.Context) error {
	t := s.h.Time()
	if t == nil || t.Ticks() == nil {
		return nil
	}
	ticks := t.Ticks()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticks:
			s.k.Interrupt(cpu.IRQTimer)
		}
	}
}

// pumpSerial forwards bytes from the serial port. The blocking read runs on
// its own goroutine because it cannot be interrupted.
func (s *System) pumpSerial(ctx context.Context) error {
	port := s.h.Serial()
	if port == nil {
		return nil
	}
	rx := make(chan []byte, 4)
	go func() {
		defer close(rx)
		for {
			buf := make([]byte, 64)
			n, err := port.Read(buf)
			if n > 0 {
				select {
				case rx <- buf[:n]:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case b, ok := <-rx:
			if !ok {
				return nil
			}
			s.con.Feed(b)
		}
	}
}

func (s *System) pumpKeys(ctx context.Context) error {
	in := s.h.Input()
	if in == nil || in.Keyboard() == nil {
		return nil
	}
	events := in.Keyboard().Events()
	if events == nil {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if b, ok := ev.Byte(); ok {
				s.con.Feed([]byte{b})
			}
		}
	}
}

// Start runs the system in the background. The returned step function reports
// a *HaltError once the kernel powered off, or the error that stopped it.
func (s *System) Start(ctx context.Context) func() error {
	go func() {
		status, err := s.Run(ctx)
		if err == nil {
			err = &HaltError{Status: status}
		}
		s.mu.Lock()
		s.done, s.err = true, err
		s.mu.Unlock()
	}()
	return s.step
}

func (s *System) step() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.done {
		return nil
	}
	return s.err
}

// New builds and starts the system with cfg, returning the host step function.
func New(h hal.HAL, cfg Config) func() error {
	s, err := NewSystem(h, cfg)
	if err != nil {
		return func() error { return err }
	}
	return s.Start(context.Background())
}

// Run starts the system and blocks until it halts (TinyGo entrypoint).
func Run(h hal.HAL, cfg Config) error {
	s, err := NewSystem(h, cfg)
	if err != nil {
		return err
	}
	_, err = s.Run(context.Background())
	return err
}
