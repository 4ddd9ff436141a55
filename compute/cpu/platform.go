// Package cpu is an in-process compute backend. Kernels are Go functions
// registered by name; an NDRange launch is split into work-groups that run
// across worker goroutines, and every command queue executes its commands in
// order on a dedicated goroutine.
package cpu

import (
	"runtime"

	"github.com/vuvietnguyenit/gpu-bandwidth/compute"
	"github.com/vuvietnguyenit/gpu-bandwidth/kernels"
)

const (
	// DefaultMaxWorkGroupSize matches the common CUDA/OpenCL block limit.
	DefaultMaxWorkGroupSize = 1024

	platformName   = "Go CPU"
	platformVendor = "gpu-bandwidth"
)

// Options overrides the probed device capabilities. Zero fields are probed
// from the host.
type Options struct {
	Name             string
	GlobalMemBytes   uint64
	MaxAllocBytes    uint64
	MaxWorkGroupSize uint32
	Workers          int
	// Kernels maps kernel names to implementations. Defaults to kernels.Native().
	Kernels map[string]kernels.NativeKernel
}

// Platform exposes a single CPU device.
type Platform struct {
	device *Device
}

var _ compute.Platform = (*Platform)(nil)

func NewPlatform(opts Options) *Platform {
	return &Platform{device: newDevice(opts)}
}

func (p *Platform) Name() string    { return platformName }
func (p *Platform) Vendor() string  { return platformVendor }
func (p *Platform) Version() string { return "Go compute 1.0 " + runtime.Version() }

func (p *Platform) Devices() ([]compute.Device, error) {
	return []compute.Device{p.device}, nil
}
