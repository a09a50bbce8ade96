package app

import (
	"pulsar/console"
	"pulsar/kernel"
	"pulsar/monitor"
)

// reservedProcs counts the processes the system starts besides the workers:
// idle, init, producer, consumer and the shell.
const reservedProcs = 5

const (
	produceCount = 8
	spinWork     = 20000
)

type workerArgs struct {
	id         int
	iterations int
	done       int
}

// worker alternates a slice of computation with a progress line. Even workers
// finish by returning, odd ones by calling Exit.
func (s *System) worker(c *kernel.Context, arg any) {
	args := arg.(workerArgs)
	for i := 1; i <= args.iterations; i++ {
		spin(c, spinWork)
		s.con.Printf("[worker %d] iteration %d/%d (pid %d, tick %d)\n", args.id, i, args.iterations, c.PID(), c.Ticks())
		c.Yield()
	}
	s.con.Printf("[worker %d] done\n", args.id)
	if args.done >= 0 {
		signalDone(c, args.done)
	}
	if args.id%2 == 1 {
		c.Exit()
	}
}

// spin burns n units of work, stopping at a safe point every 1000 so the timer
// can preempt it.
func spin(c *kernel.Context, n int) uint32 {
	var acc uint32
	for i := 0; i < n; i++ {
		acc = acc*31 + uint32(i)
		if i%1000 == 0 {
			c.Preempt()
		}
	}
	return acc
}

type pipeArgs struct {
	peer kernel.PID
	done int
}

// producer posts produceCount values to its consumer, retrying while the
// consumer's mailbox is still full.
func (s *System) producer(c *kernel.Context, arg any) {
	args := arg.(pipeArgs)
	for v := uint32(1); v <= produceCount; v++ {
		for {
			r := c.Send(args.peer, v*v)
			if r == kernel.SendOK {
				break
			}
			if r != kernel.SendErrMailboxFull {
				s.con.Printf("[producer] send: %v\n", r)
				return
			}
			c.Yield()
		}
	}
	signalDone(c, args.done)
}

func (s *System) consumer(c *kernel.Context, arg any) {
	args := arg.(pipeArgs)
	var sum uint32
	for i := 0; i < produceCount; i++ {
		v, err := c.Receive()
		if err != nil {
			s.con.Printf("[consumer] receive: %v\n", err)
			return
		}
		sum += v
	}
	s.con.Printf("[consumer] received %d messages, sum %d\n", produceCount, sum)
	signalDone(c, args.done)
}

// signalDone reports a finished job to init.
func signalDone(c *kernel.Context, sem int) {
	if err := c.SemSignal(sem); err != nil {
		c.Logf("signal done (sem %d): %v", sem, err)
	}
}

// startPipe creates the consumer and its producer and returns how many jobs
// will signal done. A consumer left without a producer is killed, since
// nothing would ever feed it.
func (s *System) startPipe(c *kernel.Context, done int) int {
	cons, err := c.Create(s.consumer, pipeArgs{done: done}, "consumer")
	if err != nil {
		c.Logf("consumer: %v", err)
		return 0
	}
	if _, err := c.Create(s.producer, pipeArgs{peer: cons, done: done}, "producer"); err != nil {
		c.Logf("producer: %v", err)
		if err := c.Kill(cons); err != nil {
			c.Logf("kill consumer %d: %v", cons, err)
		}
		return 0
	}
	return 2
}

// echo prints every message it receives until it gets zero.
func (s *System) echo(c *kernel.Context, _ any) {
	for {
		v, err := c.Receive()
		if err != nil || v == 0 {
			return
		}
		s.con.Printf("[echo %d] %#x\n", c.PID(), v)
	}
}

// spinForever never blocks; only the timer takes the core away from it.
func (s *System) spinForever(c *kernel.Context, _ any) {
	for {
		spin(c, spinWork)
	}
}

func (s *System) programs() []monitor.Program {
	return []monitor.Program{
		{Name: "worker", Help: "iterate and exit", Entry: func(c *kernel.Context, _ any) {
			s.worker(c, workerArgs{id: int(c.PID()), iterations: s.cfg.Iterations, done: -1})
		}},
		{Name: "echo", Help: "print received messages", Entry: s.echo},
		{Name: "spin", Help: "compute forever", Entry: s.spinForever},
	}
}

// initTask starts the workload. With the shell enabled it hands over to it;
// otherwise it waits for every job, prints the CPU report and powers off.
func (s *System) initTask(c *kernel.Context, _ any) {
	done, err := c.SemCreate(0)
	if err != nil {
		s.con.Printf("init: %v\n", err)
		c.Terminate(1)
	}

	jobs := 0
	for i := 0; i < s.cfg.Workers; i++ {
		if _, err := c.Create(s.worker, workerArgs{id: i, iterations: s.cfg.Iterations, done: done}, "worker"); err != nil {
			s.con.Printf("init: worker %d: %v\n", i, err)
			continue
		}
		jobs++
	}
	jobs += s.startPipe(c, done)

	if s.cfg.Shell {
		sh := monitor.NewShell(s.con, s.con, s.programs()...)
		if _, err := c.Create(sh.Run, nil, "shell"); err != nil {
			s.con.Printf("init: shell: %v\n", err)
		}
		return
	}

	for ; jobs > 0; jobs-- {
		if err := c.SemWait(done); err != nil {
			s.con.Printf("init: %v\n", err)
			break
		}
	}
	monitor.CPUUsage(s.con, c.Kernel().Snapshot())
	c.Terminate(0)
}

var _ monitor.LineReader = (*console.Console)(nil)
