package cpu

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/vuvietnguyenit/gpu-bandwidth/compute"
	"github.com/vuvietnguyenit/gpu-bandwidth/kernels"
)

// Device runs kernels on the host CPU.
type Device struct {
	info    compute.DeviceInfo
	workers int
	natives map[string]kernels.NativeKernel
	memory  *memoryPool
}

var _ compute.Device = (*Device)(nil)

func newDevice(opts Options) *Device {
	host := probeHost()

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	info := compute.DeviceInfo{
		Name:             host.modelName,
		Vendor:           host.vendor,
		DriverVersion:    runtime.Version(),
		Type:             compute.DeviceTypeCPU,
		ComputeUnits:     uint32(workers),
		MaxClockMHz:      host.maxClockMHz,
		GlobalMemBytes:   host.totalMem,
		MaxWorkGroupSize: DefaultMaxWorkGroupSize,
	}
	if opts.Name != "" {
		info.Name = opts.Name
	}
	if opts.GlobalMemBytes > 0 {
		info.GlobalMemBytes = opts.GlobalMemBytes
	}
	if opts.MaxWorkGroupSize > 0 {
		info.MaxWorkGroupSize = opts.MaxWorkGroupSize
	}
	// OpenCL guarantees at least a quarter of global memory per allocation.
	info.MaxAllocBytes = info.GlobalMemBytes / 4
	if opts.MaxAllocBytes > 0 {
		info.MaxAllocBytes = opts.MaxAllocBytes
	}

	natives := opts.Kernels
	if natives == nil {
		natives = kernels.Native()
	}

	return &Device{
		info:    info,
		workers: workers,
		natives: natives,
		memory:  newMemoryPool(info.GlobalMemBytes, info.MaxAllocBytes),
	}
}

func (d *Device) Info() compute.DeviceInfo { return d.info }

func (d *Device) Release() error { return nil }

// MemStats reports bytes currently allocated and the peak.
func (d *Device) MemStats() (allocated, peak uint64) {
	return d.memory.stats()
}

var supportedOptions = map[string]bool{
	"-cl-mad-enable":                true,
	"-cl-fast-relaxed-math":         true,
	"-cl-finite-math-only":          true,
	"-cl-no-signed-zeros":           true,
	"-cl-denorms-are-zero":          true,
	"-cl-opt-disable":               true,
	"-cl-unsafe-math-optimizations": true,
}

// BuildProgram binds every kernel declared in source to a registered native
// implementation. Unknown options or kernels without an implementation fail
// the build, and the reasons are kept in the build log.
func (d *Device) BuildProgram(source, options string) (compute.Program, error) {
	var log strings.Builder

	for _, opt := range strings.Fields(options) {
		if supportedOptions[opt] || strings.HasPrefix(opt, "-cl-std=") || strings.HasPrefix(opt, "-D") {
			continue
		}
		fmt.Fprintf(&log, "error: unrecognized build option %q\n", opt)
	}

	decls := kernels.Declarations(source)
	if len(decls) == 0 {
		log.WriteString("error: source declares no kernels\n")
	}

	p := &program{device: d, kernels: make(map[string]programKernel, len(decls))}
	for _, decl := range decls {
		fn, ok := d.natives[decl.Name]
		if !ok {
			fmt.Fprintf(&log, "error: kernel %q has no native implementation\n", decl.Name)
			continue
		}
		p.kernels[decl.Name] = programKernel{fn: fn, params: decl.Params}
	}

	p.log = log.String()
	if p.log != "" {
		return nil, compute.NewBuildError("BuildProgram", strings.TrimSpace(p.log), nil)
	}
	return p, nil
}

func (d *Device) CreateBuffer(flags compute.MemFlags, size uint64) (compute.Buffer, error) {
	b, err := d.memory.allocate(d, flags, size)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (d *Device) CreateQueue(profiling bool) (compute.Queue, error) {
	return newQueue(d, profiling), nil
}
