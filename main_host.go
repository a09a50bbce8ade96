//go:build !tinygo

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"pulsar/app"
	"pulsar/hal"
)

func main() {
	var hcfg hal.HeadlessConfig
	var configPath string
	flag.BoolVar(&hcfg.Enabled, "headless", false, "Run without a window.")
	flag.IntVar(&hcfg.Hz, "hz", 60, "Host loop rate in headless mode.")
	flag.Uint64Var(&hcfg.Ticks, "ticks", 0, "Stop after N host loop iterations in headless mode (0 = run until halt).")
	flag.IntVar(&hcfg.Host.TimerHz, "timer-hz", 1000, "Timer interrupt rate.")
	flag.StringVar(&configPath, "config", "", "JSON configuration file.")

	def := app.DefaultConfig()
	quantum := flag.Uint("quantum", uint(def.Quantum), "Timer ticks per time slice.")
	workers := flag.Int("workers", def.Workers, "Number of demo worker processes.")
	iterations := flag.Int("iterations", def.Iterations, "Iterations per worker.")
	noShell := flag.Bool("no-shell", false, "Run the workload and power off instead of starting the monitor shell.")
	debug := flag.Bool("debug", false, "Log scheduler debug lines.")
	flag.Parse()

	cfg := def
	if configPath != "" {
		var err error
		if cfg, err = app.LoadConfig(configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	}
	// Flags given explicitly win over the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "quantum":
			cfg.Quantum = uint32(*quantum)
		case "workers":
			cfg.Workers = *workers
		case "iterations":
			cfg.Iterations = *iterations
		case "no-shell":
			cfg.Shell = !*noShell
		case "debug":
			cfg.Debug = *debug
		}
	})

	newApp := func(h hal.HAL) func() error { return app.New(h, cfg) }

	var err error
	if hcfg.Enabled {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		err = hal.RunHeadless(ctx, newApp, hcfg)
	} else {
		err = hal.RunWindow(hcfg.Host, newApp)
	}

	var halt *app.HaltError
	switch {
	case err == nil, errors.Is(err, context.Canceled):
	case errors.As(err, &halt):
		os.Exit(halt.Status)
	default:
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
