package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vuvietnguyenit/gpu-bandwidth/compute"
	"github.com/vuvietnguyenit/gpu-bandwidth/config"
	"github.com/vuvietnguyenit/gpu-bandwidth/kernels"
	"github.com/vuvietnguyenit/gpu-bandwidth/report"
	"github.com/vuvietnguyenit/gpu-bandwidth/runner"
)

var (
	// Global flags
	FlagVerbose string
	FlagConfig  string

	// Debug flags
	FlagDebug      bool
	FlagDumpSource bool
	FlagCPUWorkers int

	// Benchmark flags
	FlagBackend     = backendAll
	FlagFormat      = formatFlag(report.FormatText)
	FlagTimer       timerFlag
	FlagIterations  uint32
	FlagMaxWorkload uint64
	FlagStrict      bool
	FlagList        bool
)

func RootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gpu-bandwidth",
		Short: "Measure global memory bandwidth of every compute device",
		Long: `gpu-bandwidth sizes a float workload to each device's memory, runs the
global_bandwidth kernels at vector widths 1 to 16 and reports the best
throughput per width in GB/s.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFlags(cmd); err != nil {
				return err
			}
			if err := initLogger(cmd.ErrOrStderr()); err != nil {
				return err
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return appRun(ctx, cmd)
		},
	}

	addDebugFlags(rootCmd)
	addProdFlags(rootCmd)

	return rootCmd
}

// loadConfig reads the config file and environment, then applies the
// command-line overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(FlagConfig)
	if err != nil {
		return config.Config{}, err
	}
	flags := cmd.Flags()
	var iterations uint32
	var maxWorkload uint64
	if flags.Changed("iterations") {
		iterations = FlagIterations
	}
	if flags.Changed("max-workload") {
		maxWorkload = FlagMaxWorkload
	}
	cfg.Force(iterations, maxWorkload)
	if flags.Changed("timer") {
		cfg.Bandwidth.Timer = FlagTimer.String()
	}
	if flags.Changed("cpu-workers") {
		cfg.CPU.Workers = FlagCPUWorkers
	}
	return cfg, cfg.Validate()
}

func appRun(ctx context.Context, cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	if FlagDumpSource {
		_, err := io.WriteString(out, kernels.Source)
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	platforms, err := openPlatforms(FlagBackend, cfg)
	if err != nil {
		return err
	}
	if len(platforms) == 0 {
		return fmt.Errorf("no compute platform available for backend %q", FlagBackend)
	}

	if FlagList {
		return listDevices(out, platforms)
	}

	sink, err := report.New(report.Format(FlagFormat), out)
	if err != nil {
		return err
	}

	r := runner.New(cfg, sink, slog.Default())
	slog.Info("starting benchmark", "run_id", r.RunID(), "backend", FlagBackend, "platforms", len(platforms))

	outcomes, runErr := r.Run(ctx, platforms)
	if err := sink.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("write report: %w", err)
	}
	if runErr != nil {
		return runErr
	}

	s := runner.Summarize(outcomes)
	slog.Info("benchmark finished", "ok", s.OK, "failed", s.Failed, "skipped", s.Skipped)
	if FlagStrict {
		return runner.Strict(outcomes)
	}
	return nil
}

func listDevices(w io.Writer, platforms []compute.Platform) error {
	for _, p := range platforms {
		fmt.Fprintf(w, "Platform: %s (%s, %s)\n", p.Name(), p.Vendor(), p.Version())
		devices, err := p.Devices()
		if err != nil {
			if errors.Is(err, compute.ErrNotSupported) {
				continue
			}
			fmt.Fprintf(w, "  error: %v\n", err)
			continue
		}
		for i, d := range devices {
			fmt.Fprintf(w, "  [%d] %s\n", i, d.Info())
			if err := d.Release(); err != nil {
				slog.Warn("failed to release device", "device", d.Info().Name, "err", err)
			}
		}
	}
	return nil
}
