// Package compute describes the device API the benchmark drives: platforms,
// devices, programs built from kernel source, buffers, in-order command
// queues and profiling events.
//
// Backends (compute/cpu, compute/opencl) implement these interfaces. The
// benchmark itself never talks to a backend directly.
package compute

import (
	"fmt"
	"time"
)

// DeviceType describes the class of a compute device.
type DeviceType string

const (
	DeviceTypeGPU         DeviceType = "GPU"
	DeviceTypeCPU         DeviceType = "CPU"
	DeviceTypeAccelerator DeviceType = "Accelerator"
	DeviceTypeUnknown     DeviceType = "Unknown"
)

// DeviceInfo is the capability record a device reports about itself.
type DeviceInfo struct {
	Name             string
	Vendor           string
	DriverVersion    string
	Type             DeviceType
	ComputeUnits     uint32
	MaxClockMHz      uint32
	GlobalMemBytes   uint64
	MaxAllocBytes    uint64 // largest single buffer allocation
	MaxWorkGroupSize uint32
}

func (d DeviceInfo) String() string {
	return fmt.Sprintf("%s (%s, %d CUs)", d.Name, d.Type, d.ComputeUnits)
}

// MemFlags controls how a kernel may access a buffer.
type MemFlags int

const (
	MemReadWrite MemFlags = iota
	MemReadOnly
	MemWriteOnly
)

// Platform groups the devices exposed by one driver.
type Platform interface {
	Name() string
	Vendor() string
	Version() string
	Devices() ([]Device, error)
}

// Device is a single compute device.
type Device interface {
	Info() DeviceInfo
	// BuildProgram compiles source for this device only.
	BuildProgram(source, options string) (Program, error)
	CreateBuffer(flags MemFlags, size uint64) (Buffer, error)
	// CreateQueue returns an in-order command queue. Events carry durations
	// only when profiling is true.
	CreateQueue(profiling bool) (Queue, error)
	Release() error
}

// Program is a compiled set of kernel entry points.
type Program interface {
	CreateKernel(name string) (Kernel, error)
	BuildLog() string
	Release() error
}

// Kernel is one entry point with its bound arguments.
type Kernel interface {
	Name() string
	SetArg(index int, b Buffer) error
	Release() error
}

// Buffer is device memory.
type Buffer interface {
	Size() uint64
	Release() error
}

// Queue is an in-order command queue.
type Queue interface {
	EnqueueWriteBuffer(b Buffer, blocking bool, data []float32) error
	// EnqueueNDRangeKernel launches a one-dimensional range of global work
	// items split into work-groups of local items.
	EnqueueNDRangeKernel(k Kernel, global, local uint64) (Event, error)
	// Flush submits queued commands without waiting for them.
	Flush() error
	// Finish blocks until every queued command has completed.
	Finish() error
	Release() error
}

// Event tracks one enqueued command.
type Event interface {
	Wait() error
	// Duration is the device-reported execution time of the command.
	Duration() (time.Duration, error)
}
