// Package config loads the benchmark policy: defaults, then an optional TOML
// file, then GPUBW_* environment variables. Command-line flags are applied
// last by the caller through Force.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/dustin/go-humanize"

	"github.com/vuvietnguyenit/gpu-bandwidth/bandwidth"
	"github.com/vuvietnguyenit/gpu-bandwidth/compute"
)

const (
	DefaultIterations  = 50
	DefaultMaxWorkload = 1 << 29

	// CPU devices get a lighter policy.
	DefaultCPUIterations  = 20
	DefaultCPUMaxWorkload = 1 << 27
)

const (
	EnvIterations  = "GPUBW_ITERATIONS"
	EnvMaxWorkload = "GPUBW_MAX_WORKLOAD"
	EnvTimer       = "GPUBW_TIMER"
)

// Policy is the per-device test policy. Zero fields inherit.
type Policy struct {
	Iterations  uint32 `toml:"iterations"`
	MaxWorkload uint64 `toml:"max_workload"`
}

func (p Policy) merge(over Policy) Policy {
	if over.Iterations != 0 {
		p.Iterations = over.Iterations
	}
	if over.MaxWorkload != 0 {
		p.MaxWorkload = over.MaxWorkload
	}
	return p
}

type Bandwidth struct {
	Iterations  uint32  `toml:"iterations"`
	MaxWorkload uint64  `toml:"max_workload"`
	Timer       string  `toml:"timer"`
	CPU         *Policy `toml:"cpu"`
	GPU         *Policy `toml:"gpu"`
	Accelerator *Policy `toml:"accelerator"`
}

// CPU configures the in-process backend. Sizes accept humanized values such
// as "512MiB".
type CPU struct {
	Name             string `toml:"name"`
	Workers          int    `toml:"workers"`
	GlobalMem        string `toml:"global_mem"`
	MaxAlloc         string `toml:"max_alloc"`
	MaxWorkGroupSize uint32 `toml:"max_work_group_size"`
}

type Config struct {
	Bandwidth Bandwidth `toml:"bandwidth"`
	CPU       CPU       `toml:"cpu"`

	// forced holds values that apply to every device type.
	forced Policy
}

func Default() Config {
	return Config{
		Bandwidth: Bandwidth{
			Iterations:  DefaultIterations,
			MaxWorkload: DefaultMaxWorkload,
			Timer:       bandwidth.EventTimer.String(),
			CPU:         &Policy{Iterations: DefaultCPUIterations, MaxWorkload: DefaultCPUMaxWorkload},
		},
	}
}

// Load returns the defaults overlaid with path (if not empty) and the
// environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to decode TOML file %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvIterations); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvIterations, err)
		}
		if n == 0 {
			return fmt.Errorf("%s must be positive", EnvIterations)
		}
		c.Force(uint32(n), 0)
	}
	if v := os.Getenv(EnvMaxWorkload); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxWorkload, err)
		}
		if n == 0 {
			return fmt.Errorf("%s must be positive", EnvMaxWorkload)
		}
		c.Force(0, n)
	}
	c.Bandwidth.Timer = envOrDefault(EnvTimer, c.Bandwidth.Timer)
	return nil
}

func envOrDefault(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

// Force overrides the policy of every device type. Zero arguments leave the
// current value alone.
func (c *Config) Force(iterations uint32, maxWorkload uint64) {
	c.forced = c.forced.merge(Policy{Iterations: iterations, MaxWorkload: maxWorkload})
}

func (c Config) Validate() error {
	if c.Bandwidth.Iterations == 0 {
		return fmt.Errorf("bandwidth.iterations must be positive")
	}
	if c.Bandwidth.MaxWorkload == 0 {
		return fmt.Errorf("bandwidth.max_workload must be positive")
	}
	if _, err := bandwidth.ParseTimerMode(c.Bandwidth.Timer); err != nil {
		return err
	}
	if c.CPU.Workers < 0 {
		return fmt.Errorf("cpu.workers must not be negative")
	}
	if _, err := c.CPUOptions(); err != nil {
		return err
	}
	return nil
}

// TimerMode returns the configured timing method.
func (c Config) TimerMode() bandwidth.TimerMode {
	m, err := bandwidth.ParseTimerMode(c.Bandwidth.Timer)
	if err != nil {
		return bandwidth.EventTimer
	}
	return m
}

// PolicyFor resolves the policy for one device type.
func (c Config) PolicyFor(t compute.DeviceType) Policy {
	p := Policy{Iterations: c.Bandwidth.Iterations, MaxWorkload: c.Bandwidth.MaxWorkload}

	var over *Policy
	switch t {
	case compute.DeviceTypeCPU:
		over = c.Bandwidth.CPU
	case compute.DeviceTypeGPU:
		over = c.Bandwidth.GPU
	case compute.DeviceTypeAccelerator:
		over = c.Bandwidth.Accelerator
	}
	if over != nil {
		p = p.merge(*over)
	}
	return p.merge(c.forced)
}

// Capabilities combines a device's reported limits with its policy.
func (c Config) Capabilities(info compute.DeviceInfo) bandwidth.Capabilities {
	p := c.PolicyFor(info.Type)
	return bandwidth.Capabilities{
		MaxAllocBytes:    info.MaxAllocBytes,
		MaxWorkGroupSize: info.MaxWorkGroupSize,
		Iterations:       p.Iterations,
		MaxWorkloadCap:   p.MaxWorkload,
	}
}

// CPUBackend holds the parsed [cpu] section.
type CPUBackend struct {
	Name             string
	Workers          int
	GlobalMemBytes   uint64
	MaxAllocBytes    uint64
	MaxWorkGroupSize uint32
}

func (c Config) CPUOptions() (CPUBackend, error) {
	out := CPUBackend{
		Name:             c.CPU.Name,
		Workers:          c.CPU.Workers,
		MaxWorkGroupSize: c.CPU.MaxWorkGroupSize,
	}
	var err error
	if c.CPU.GlobalMem != "" {
		if out.GlobalMemBytes, err = humanize.ParseBytes(c.CPU.GlobalMem); err != nil {
			return CPUBackend{}, fmt.Errorf("cpu.global_mem: %w", err)
		}
	}
	if c.CPU.MaxAlloc != "" {
		if out.MaxAllocBytes, err = humanize.ParseBytes(c.CPU.MaxAlloc); err != nil {
			return CPUBackend{}, fmt.Errorf("cpu.max_alloc: %w", err)
		}
	}
	return out, nil
}
