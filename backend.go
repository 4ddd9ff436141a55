package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vuvietnguyenit/gpu-bandwidth/compute"
	"github.com/vuvietnguyenit/gpu-bandwidth/compute/cpu"
	"github.com/vuvietnguyenit/gpu-bandwidth/compute/opencl"
	"github.com/vuvietnguyenit/gpu-bandwidth/config"
)

// openPlatforms returns the platforms of the selected backend. With "all",
// an OpenCL build that is missing or has no ICD is not an error.
func openPlatforms(backend backendFlag, cfg config.Config) ([]compute.Platform, error) {
	var platforms []compute.Platform

	if backend == backendOpenCL || backend == backendAll {
		cl, err := opencl.Platforms()
		switch {
		case err == nil:
			platforms = append(platforms, cl...)
		case backend == backendAll:
			level := slog.LevelWarn
			if errors.Is(err, compute.ErrNotSupported) {
				level = slog.LevelDebug
			}
			slog.Log(context.Background(), level, "OpenCL unavailable", "err", err)
		default:
			return nil, fmt.Errorf("opencl backend: %w", err)
		}
	}

	if backend == backendCPU || backend == backendAll {
		opts, err := cfg.CPUOptions()
		if err != nil {
			return nil, err
		}
		platforms = append(platforms, cpu.NewPlatform(cpu.Options{
			Name:             opts.Name,
			Workers:          opts.Workers,
			GlobalMemBytes:   opts.GlobalMemBytes,
			MaxAllocBytes:    opts.MaxAllocBytes,
			MaxWorkGroupSize: opts.MaxWorkGroupSize,
		}))
	}
	return platforms, nil
}
