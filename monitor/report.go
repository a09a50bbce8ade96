// Package monitor prints reports about the running kernel and provides an
// interactive shell process on top of them.
package monitor

import (
	"encoding/hex"
	"fmt"
	"io"
	"text/tabwriter"

	"pulsar/internal/buildinfo"
	"pulsar/kernel"
)

const rule = "=========================================="

func header(w io.Writer, title string) {
	fmt.Fprintf(w, "%s\n  %s\n%s\n", rule, title, rule)
}

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// Processes prints the process table.
func Processes(w io.Writer, s kernel.Snapshot) {
	header(w, "Process Table")
	tw := table(w)
	fmt.Fprintln(tw, "PID\tSTATE\tNAME\tAGE\tTICKS\tMSG")
	for _, p := range s.Procs {
		msg := "-"
		if p.HasMsg {
			msg = fmt.Sprintf("%#x", p.Msg)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%s\n", p.PID, p.State, p.Name, p.Age, p.TotalTicks, msg)
	}
	tw.Flush()
	fmt.Fprintf(w, "Total processes: %d\n", len(s.Procs))
}

// ReadyQueue prints the ready list from its head, marking the current process.
func ReadyQueue(w io.Writer, s kernel.Snapshot) {
	header(w, "Ready Queue")
	if len(s.Ready) == 0 {
		fmt.Fprintln(w, "Ready queue is empty.")
		return
	}
	fmt.Fprintf(w, "Current PID: %s\n", pidString(s.Current))
	for i, pid := range s.Ready {
		p, _ := s.Proc(pid)
		mark := ""
		if pid == s.Current {
			mark = " <-- CURRENT"
		}
		fmt.Fprintf(w, "  [%d] PID %d (%s) - %s%s\n", i, pid, p.Name, p.State, mark)
	}
}

// CPUUsage prints each process's share of scheduled time.
func CPUUsage(w io.Writer, s kernel.Snapshot) {
	header(w, "CPU Usage")
	var total uint64
	for _, p := range s.Procs {
		total += uint64(p.TotalTicks)
	}
	if total == 0 {
		fmt.Fprintln(w, "No CPU time recorded yet.")
		return
	}
	tw := table(w)
	fmt.Fprintln(tw, "PID\tNAME\tTICKS\tCPU %")
	for _, p := range s.Procs {
		if p.TotalTicks == 0 {
			continue
		}
		pct := float64(p.TotalTicks) * 100 / float64(total)
		fmt.Fprintf(tw, "%d\t%s\t%d\t%.1f\n", p.PID, p.Name, p.TotalTicks, pct)
	}
	tw.Flush()
}

// Dump prints everything known about one process. Its saved stack, when it has
// one, is shown as a hex dump.
func Dump(w io.Writer, k *kernel.Kernel, pid kernel.PID) error {
	s := k.Snapshot()
	p, ok := s.Proc(pid)
	if !ok {
		return kernel.ErrInvalidPID
	}
	header(w, fmt.Sprintf("Process %d", pid))
	tw := table(w)
	fmt.Fprintf(tw, "Name:\t%s\n", p.Name)
	fmt.Fprintf(tw, "State:\t%s\n", p.State)
	fmt.Fprintf(tw, "Age:\t%d\n", p.Age)
	fmt.Fprintf(tw, "Total ticks:\t%d\n", p.TotalTicks)
	fmt.Fprintf(tw, "Stack slot:\t%d\n", p.StackSlot)
	fmt.Fprintf(tw, "Links:\tbefore %s, after %s\n", pidString(p.Before), pidString(p.After))
	if p.Sem >= 0 {
		fmt.Fprintf(tw, "Waiting on:\tsem %d\n", p.Sem)
	}
	if p.HasMsg {
		fmt.Fprintf(tw, "Mailbox:\t%#x\n", p.Msg)
	} else {
		fmt.Fprintf(tw, "Mailbox:\tempty\n")
	}
	tw.Flush()

	stack, sp, err := k.SavedStack(pid)
	if err != nil {
		fmt.Fprintf(w, "Saved stack: %v\n", err)
		return nil
	}
	fmt.Fprintf(w, "Saved stack (sp=%#x, %d bytes):\n", sp, len(stack))
	if len(stack) > 128 {
		stack = stack[:128]
	}
	io.WriteString(w, hex.Dump(stack))
	return nil
}

// Stats prints scheduler counters, stack pool usage and semaphores.
func Stats(w io.Writer, s kernel.Snapshot) {
	header(w, "System Statistics")
	counts := make(map[kernel.State]int)
	for _, p := range s.Procs {
		counts[p.State]++
	}
	tw := table(w)
	fmt.Fprintf(tw, "Ticks:\t%d\n", s.Ticks)
	fmt.Fprintf(tw, "Quantum:\t%d ticks\n", s.Quantum)
	fmt.Fprintf(tw, "Processes:\t%d/%d\n", len(s.Procs), kernel.NPROC)
	for _, st := range []kernel.State{kernel.Current, kernel.Ready, kernel.Waiting, kernel.Recv, kernel.Terminated} {
		fmt.Fprintf(tw, "  %s:\t%d\n", st, counts[st])
	}
	fmt.Fprintf(tw, "Stacks:\t%d/%d x %d bytes\n", s.StacksInUse, s.StacksCap, s.StackSize)
	fmt.Fprintf(tw, "Semaphores:\t%d/%d\n", len(s.Sems), kernel.NSEM)
	tw.Flush()
	for _, sem := range s.Sems {
		fmt.Fprintf(w, "  sem %d: count %d, waiters %v\n", sem.ID, sem.Count, sem.Waiters)
	}
}

// SysInfo prints static facts about the system.
func SysInfo(w io.Writer, s kernel.Snapshot) {
	header(w, "pulsar System Information")
	tw := table(w)
	fmt.Fprintf(tw, "Version:\t%s\n", buildinfo.Long())
	fmt.Fprintf(tw, "Architecture:\tx86 (i386), single core\n")
	fmt.Fprintf(tw, "Max processes:\t%d\n", kernel.NPROC)
	fmt.Fprintf(tw, "Stack size:\t%d bytes\n", s.StackSize)
	fmt.Fprintf(tw, "Time quantum:\t%d ticks\n", s.Quantum)
	fmt.Fprintf(tw, "Scheduler:\tround robin with aging\n")
	tw.Flush()
}

func pidString(pid kernel.PID) string {
	if pid == kernel.NoPID {
		return "none"
	}
	return fmt.Sprint(uint8(pid))
}
