package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/vuvietnguyenit/gpu-bandwidth/bandwidth"
	"github.com/vuvietnguyenit/gpu-bandwidth/report"
)

var (
	_ pflag.Value = (*backendFlag)(nil)
	_ pflag.Value = (*formatFlag)(nil)
	_ pflag.Value = (*timerFlag)(nil)
)

type backendFlag string

const (
	backendCPU    backendFlag = "cpu"
	backendOpenCL backendFlag = "opencl"
	backendAll    backendFlag = "all"
)

func (b *backendFlag) String() string { return string(*b) }
func (b *backendFlag) Type() string   { return "backend" }

func (b *backendFlag) Set(s string) error {
	switch v := backendFlag(strings.ToLower(s)); v {
	case backendCPU, backendOpenCL, backendAll:
		*b = v
		return nil
	default:
		return fmt.Errorf("must be one of cpu, opencl, all")
	}
}

type formatFlag report.Format

func (f *formatFlag) String() string { return string(*f) }
func (f *formatFlag) Type() string   { return "format" }

func (f *formatFlag) Set(s string) error {
	v, err := report.ParseFormat(s)
	if err != nil {
		return err
	}
	*f = formatFlag(v)
	return nil
}

type timerFlag bandwidth.TimerMode

func (t *timerFlag) String() string { return bandwidth.TimerMode(*t).String() }
func (t *timerFlag) Type() string   { return "timer" }

func (t *timerFlag) Set(s string) error {
	m, err := bandwidth.ParseTimerMode(s)
	if err != nil {
		return err
	}
	*t = timerFlag(m)
	return nil
}

func validateFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if flags.Changed("iterations") && FlagIterations == 0 {
		return fmt.Errorf("--iterations must be positive")
	}
	if flags.Changed("max-workload") && FlagMaxWorkload == 0 {
		return fmt.Errorf("--max-workload must be positive")
	}
	if FlagDumpSource && FlagList {
		return fmt.Errorf("--dump-source and --list are mutually exclusive")
	}
	if FlagDebug {
		FlagVerbose = slog.LevelDebug.String()
	}
	return nil
}

func addProdFlags(cmd *cobra.Command) {
	FlagBackend = backendAll
	FlagFormat = formatFlag(report.FormatText)
	FlagTimer = timerFlag(bandwidth.EventTimer)

	cmd.PersistentFlags().StringVar(&FlagVerbose, "log-verbose", slog.LevelInfo.String(), "Log verbosity level (DEBUG, INFO, WARN, ERROR)")
	cmd.PersistentFlags().StringVar(&FlagConfig, "config", "", "Path to a TOML config file")

	cmd.PersistentFlags().Var(&FlagBackend, "backend", "Compute backend (cpu, opencl, all)")
	cmd.PersistentFlags().Var(&FlagFormat, "format", "Report format (text, table, json, yaml)")
	cmd.PersistentFlags().Var(&FlagTimer, "timer", "Kernel timing method (event, wallclock)")
	cmd.PersistentFlags().Uint32Var(&FlagIterations, "iterations", 0, "Timed launches per kernel, overrides the per-device policy")
	cmd.PersistentFlags().Uint64Var(&FlagMaxWorkload, "max-workload", 0, "Upper bound on the workload in float elements")
	cmd.PersistentFlags().BoolVar(&FlagStrict, "strict", false, "Exit non-zero when no device produced results")
	cmd.PersistentFlags().BoolVar(&FlagList, "list", false, "List platforms and devices, then exit")
}
