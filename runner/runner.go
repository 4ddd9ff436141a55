// Package runner drives the benchmark over every device of every platform.
// A device failure is recorded in that device's Outcome and never stops the
// run.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/google/uuid"

	"github.com/vuvietnguyenit/gpu-bandwidth/bandwidth"
	"github.com/vuvietnguyenit/gpu-bandwidth/compute"
	"github.com/vuvietnguyenit/gpu-bandwidth/config"
	"github.com/vuvietnguyenit/gpu-bandwidth/internal/monotime"
	"github.com/vuvietnguyenit/gpu-bandwidth/kernels"
	"github.com/vuvietnguyenit/gpu-bandwidth/report"
)

// Outcome is the result of benchmarking one device: either Results, a skip,
// or Err.
type Outcome struct {
	RunID    string
	Platform string
	Info     compute.DeviceInfo
	Caps     bandwidth.Capabilities
	Elements uint64
	Timer    bandwidth.TimerMode
	Results  []bandwidth.Result
	Skipped  bool
	Err      error
}

// OK reports whether the device produced a full sweep.
func (o Outcome) OK() bool {
	return o.Err == nil && !o.Skipped
}

type Runner struct {
	cfg     config.Config
	sink    report.Sink
	logger  *slog.Logger
	runID   string
	source  string
	options string
}

type Option func(*Runner)

// WithSource replaces the kernel program and its build options.
func WithSource(source, options string) Option {
	return func(r *Runner) {
		r.source = source
		r.options = options
	}
}

// WithRunID fixes the run id instead of generating one.
func WithRunID(id string) Option {
	return func(r *Runner) { r.runID = id }
}

func New(cfg config.Config, sink report.Sink, logger *slog.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		cfg:     cfg,
		sink:    sink,
		logger:  logger,
		runID:   uuid.NewString(),
		source:  kernels.Source,
		options: kernels.BuildOptions,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("run_id", r.runID)
	return r
}

func (r *Runner) RunID() string { return r.runID }

// Run benchmarks every device in order and writes each outcome to the sink
// as soon as it completes. Cancelling ctx stops before the next device. The
// returned error is only set when the sink fails.
func (r *Runner) Run(ctx context.Context, platforms []compute.Platform) ([]Outcome, error) {
	var outcomes []Outcome
	for _, p := range platforms {
		devices, err := p.Devices()
		if err != nil {
			r.logger.Error("failed to enumerate devices", "platform", p.Name(), "err", err)
			continue
		}
		r.logger.Debug("platform", "name", p.Name(), "vendor", p.Vendor(), "version", p.Version(), "devices", len(devices))

		for _, d := range devices {
			if err := ctx.Err(); err != nil {
				r.logger.Warn("run interrupted", "err", err)
				return outcomes, nil
			}

			o := r.RunDevice(p.Name(), d)
			if err := d.Release(); err != nil {
				r.logger.Warn("failed to release device", "device", o.Info.Name, "err", err)
			}
			outcomes = append(outcomes, o)

			if r.sink != nil {
				if err := r.sink.Write(o.Block()); err != nil {
					return outcomes, fmt.Errorf("write report: %w", err)
				}
			}
		}
	}
	return outcomes, nil
}

// RunDevice benchmarks a single device.
func (r *Runner) RunDevice(platform string, d compute.Device) Outcome {
	info := d.Info()
	o := Outcome{
		RunID:    r.runID,
		Platform: platform,
		Info:     info,
		Timer:    r.cfg.TimerMode(),
	}
	log := r.logger.With("platform", platform, "device", info.Name)

	prog, err := d.BuildProgram(r.source, r.options)
	if err != nil {
		log.Error("failed to build program", "err", err)
		o.Err = err
		return o
	}
	defer release(log, "program", prog)
	if l := prog.BuildLog(); l != "" {
		log.Debug("build log", "log", l)
	}

	o.Caps = r.cfg.Capabilities(info)
	o.Elements = bandwidth.WorkloadSize(o.Caps, bandwidth.ElementSize)
	if o.Elements == 0 {
		log.Warn("skipping device", "reason", bandwidth.ErrUnsupportedDevice,
			"max_alloc_bytes", info.MaxAllocBytes, "max_work_group_size", info.MaxWorkGroupSize)
		o.Skipped = true
		o.Err = bandwidth.ErrUnsupportedDevice
		return o
	}
	log.Info("benchmarking", "type", info.Type, "elements", o.Elements, "iterations", o.Caps.Iterations, "timer", o.Timer)

	start := monotime.Now()
	o.Results, o.Err = r.sweep(d, prog, o)
	if o.Err != nil {
		log.Error("benchmark failed", "err", o.Err, "completed_widths", len(o.Results))
		return o
	}
	log.Info("device done", "elapsed", monotime.Since(start))
	return o
}

func (r *Runner) sweep(d compute.Device, prog compute.Program, o Outcome) ([]bandwidth.Result, error) {
	log := r.logger.With("device", o.Info.Name)
	size := o.Elements * bandwidth.ElementSize

	in, err := d.CreateBuffer(compute.MemReadOnly, size)
	if err != nil {
		return nil, fmt.Errorf("allocate input: %w", err)
	}
	defer release(log, "input buffer", in)

	out, err := d.CreateBuffer(compute.MemWriteOnly, size)
	if err != nil {
		return nil, fmt.Errorf("allocate output: %w", err)
	}
	defer release(log, "output buffer", out)

	q, err := d.CreateQueue(o.Timer == bandwidth.EventTimer)
	if err != nil {
		return nil, fmt.Errorf("create queue: %w", err)
	}
	defer release(log, "queue", q)

	data := make([]float32, o.Elements)
	Populate(data)
	if err := q.EnqueueWriteBuffer(in, true, data); err != nil {
		return nil, fmt.Errorf("write input: %w", err)
	}

	w := bandwidth.Workload{Program: prog, Input: in, Output: out, Elements: o.Elements}
	return bandwidth.Sweep(bandwidth.NewTimer(q, o.Timer), w, o.Caps, log)
}

type releaser interface {
	Release() error
}

func release(log *slog.Logger, what string, r releaser) {
	if err := r.Release(); err != nil {
		log.Warn("failed to release "+what, "err", err)
	}
}

// Populate fills the input with a repeating deterministic pattern.
func Populate(data []float32) {
	for i := range data {
		data[i] = float32(i & 0xff)
	}
}

// Summary counts outcomes by status.
type Summary struct {
	OK, Failed, Skipped int
}

func Summarize(outcomes []Outcome) Summary {
	var s Summary
	for _, o := range outcomes {
		switch {
		case o.Skipped:
			s.Skipped++
		case o.Err != nil:
			s.Failed++
		default:
			s.OK++
		}
	}
	return s
}

// ErrNoResults is returned in strict mode when no device completed a sweep.
var ErrNoResults = errors.New("no device produced results")

// Strict returns ErrNoResults unless at least one device succeeded.
func Strict(outcomes []Outcome) error {
	if Summarize(outcomes).OK == 0 {
		return ErrNoResults
	}
	return nil
}

func osName() string {
	switch runtime.GOOS {
	case "linux":
		return "Linux"
	case "darwin":
		return "macOS"
	case "windows":
		return "Windows"
	default:
		return runtime.GOOS
	}
}

// Block converts the outcome to a report block.
func (o Outcome) Block() report.Block {
	b := report.Block{
		RunID: o.RunID,
		Identity: report.Identity{
			Platform:       o.Platform,
			Device:         o.Info.Name,
			Vendor:         o.Info.Vendor,
			Type:           string(o.Info.Type),
			DriverVersion:  o.Info.DriverVersion,
			OS:             osName(),
			ComputeUnits:   o.Info.ComputeUnits,
			ClockMHz:       o.Info.MaxClockMHz,
			GlobalMemBytes: o.Info.GlobalMemBytes,
			MaxAllocBytes:  o.Info.MaxAllocBytes,
		},
		Status: report.StatusOK,
		Lines:  make([]report.Line, 0, len(o.Results)),
	}
	for _, r := range o.Results {
		b.Lines = append(b.Lines, report.Line{Label: r.Label, Value: r.GBps, Unit: report.UnitGBps})
	}
	switch {
	case o.Skipped:
		b.Status = report.StatusSkipped
	case o.Err != nil:
		b.Status = report.StatusFailed
	}
	if o.Err != nil {
		b.Error = o.Err.Error()
	}
	if !o.Skipped && o.Elements > 0 {
		b.Elements = o.Elements
		b.Iterations = o.Caps.Iterations
		b.Timer = o.Timer.String()
	}
	return b
}
