package monitor

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"pulsar/kernel"

	"github.com/google/shlex"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrUsage          = errors.New("usage")
)

// LineReader supplies command lines; console.Console is one.
type LineReader interface {
	ReadLine() (string, error)
}

// Program is something the shell can spawn by name.
type Program struct {
	Name  string
	Help  string
	Entry kernel.Entry
}

// Shell is the monitor's command interpreter. Run it as a process with
// Shell.Run as the entry.
type Shell struct {
	in       LineReader
	out      io.Writer
	programs map[string]Program
	prompt   string
}

func NewShell(in LineReader, out io.Writer, programs ...Program) *Shell {
	sh := &Shell{in: in, out: out, programs: make(map[string]Program), prompt: "pulsar> "}
	for _, p := range programs {
		sh.programs[p.Name] = p
	}
	return sh
}

type command struct {
	usage string
	help  string
	run   func(sh *Shell, c *kernel.Context, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"help":  {"help", "list commands", (*Shell).help},
		"ps":    {"ps", "process table", report(Processes)},
		"queue": {"queue", "ready queue", report(ReadyQueue)},
		"cpu":   {"cpu", "cpu usage per process", report(CPUUsage)},
		"info":  {"info", "system information", report(SysInfo)},
		"stats": {"stats", "scheduler and semaphore counters", report(Stats)},
		"dump":  {"dump <pid>", "process details and saved stack", (*Shell).dump},
		"kill":  {"kill <pid>", "terminate a process", (*Shell).kill},
		"spawn": {"spawn <program> [arg]", "start a program", (*Shell).spawn},
		"send":  {"send <pid> <value>", "post a message", (*Shell).send},
		"halt":  {"halt [status]", "power off", (*Shell).halt},
	}
}

func report(fn func(io.Writer, kernel.Snapshot)) func(*Shell, *kernel.Context, []string) error {
	return func(sh *Shell, c *kernel.Context, _ []string) error {
		fn(sh.out, c.Kernel().Snapshot())
		return nil
	}
}

// Run is the shell's process entry. It returns when its input ends.
func (sh *Shell) Run(c *kernel.Context, _ any) {
	for {
		io.WriteString(sh.out, sh.prompt)
		line, err := sh.in.ReadLine()
		if err == io.EOF {
			return
		}
		if err != nil {
			fmt.Fprintf(sh.out, "error: %v\n", err)
			continue
		}
		if err := sh.Exec(c, line); err != nil {
			fmt.Fprintf(sh.out, "error: %v\n", err)
		}
	}
}

// Exec runs one command line.
func (sh *Shell) Exec(c *kernel.Context, line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}
	cmd, ok := commands[strings.ToLower(args[0])]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, args[0])
	}
	err = cmd.run(sh, c, args[1:])
	if errors.Is(err, ErrUsage) {
		return fmt.Errorf("%w: %s", ErrUsage, cmd.usage)
	}
	return err
}

func (sh *Shell) help(_ *kernel.Context, _ []string) error {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	tw := table(sh.out)
	for _, name := range names {
		fmt.Fprintf(tw, "  %s\t%s\n", commands[name].usage, commands[name].help)
	}
	tw.Flush()
	if len(sh.programs) > 0 {
		progs := make([]string, 0, len(sh.programs))
		for name := range sh.programs {
			progs = append(progs, name)
		}
		sort.Strings(progs)
		fmt.Fprintf(sh.out, "programs: %s\n", strings.Join(progs, " "))
	}
	return nil
}

func parsePID(s string) (kernel.PID, error) {
	n, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return kernel.NoPID, fmt.Errorf("bad pid %q", s)
	}
	return kernel.PID(n), nil
}

func (sh *Shell) dump(c *kernel.Context, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	pid, err := parsePID(args[0])
	if err != nil {
		return err
	}
	return Dump(sh.out, c.Kernel(), pid)
}

func (sh *Shell) kill(c *kernel.Context, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	pid, err := parsePID(args[0])
	if err != nil {
		return err
	}
	if pid == c.PID() {
		fmt.Fprintln(sh.out, "shell exiting")
	}
	if err := c.Kill(pid); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "killed %d\n", pid)
	return nil
}

func (sh *Shell) spawn(c *kernel.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return ErrUsage
	}
	p, ok := sh.programs[args[0]]
	if !ok {
		return fmt.Errorf("no program %q", args[0])
	}
	var arg any
	if len(args) == 2 {
		arg = args[1]
	}
	pid, err := c.Create(p.Entry, arg, p.Name)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "started %s as pid %d\n", p.Name, pid)
	return nil
}

func (sh *Shell) send(c *kernel.Context, args []string) error {
	if len(args) != 2 {
		return ErrUsage
	}
	pid, err := parsePID(args[0])
	if err != nil {
		return err
	}
	v, err := strconv.ParseUint(args[1], 0, 32)
	if err != nil {
		return fmt.Errorf("bad value %q", args[1])
	}
	if r := c.Send(pid, uint32(v)); r != kernel.SendOK {
		return fmt.Errorf("send: %v (%d)", r, r.Code())
	}
	return nil
}

func (sh *Shell) halt(c *kernel.Context, args []string) error {
	status := 0
	if len(args) > 1 {
		return ErrUsage
	}
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("bad status %q", args[0])
		}
		status = n
	}
	fmt.Fprintf(sh.out, "halting with status %d\n", status)
	c.Terminate(status)
	return nil
}
