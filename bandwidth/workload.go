// Package bandwidth sizes, times and sweeps the global memory bandwidth
// kernels on one compute device.
package bandwidth

import (
	"github.com/vuvietnguyenit/gpu-bandwidth/kernels"
)

// ElementSize is the size in bytes of one float element.
const ElementSize = 4

// Capabilities is what the sizer and sweep need to know about a device, plus
// the per-device-type test policy.
type Capabilities struct {
	MaxAllocBytes    uint64
	MaxWorkGroupSize uint32
	Iterations       uint32
	// MaxWorkloadCap bounds the element count regardless of device memory.
	// Zero admits no elements.
	MaxWorkloadCap uint64
}

// Granularity is the element multiple every workload is rounded down to. One
// work-group of the widest variant consumes exactly this many elements, so
// every width launches a whole number of work-groups.
func Granularity(maxWorkGroupSize uint32) uint64 {
	return uint64(maxWorkGroupSize) * kernels.FetchPerWorkItem * kernels.MaxVectorWidth
}

// WorkloadSize returns the number of elements to benchmark with: half the
// largest allocation, capped, rounded down to the granularity. Zero means the
// device cannot hold a single granule and must be skipped.
func WorkloadSize(caps Capabilities, elementSize uint32) uint64 {
	if elementSize == 0 {
		return 0
	}
	g := Granularity(caps.MaxWorkGroupSize)
	if g == 0 {
		return 0
	}
	n := caps.MaxAllocBytes / uint64(elementSize) / 2
	n = min(n, caps.MaxWorkloadCap)
	return n / g * g
}

// Geometry returns the global and local work sizes for one vector width.
func Geometry(numElements uint64, width int, caps Capabilities) (global, local uint64) {
	global = numElements / uint64(width) / kernels.FetchPerWorkItem
	local = uint64(caps.MaxWorkGroupSize)
	return global, local
}

// Throughput converts a per-launch time in microseconds to GB/s.
func Throughput(numElements uint64, microseconds float64) float64 {
	return float64(numElements*ElementSize) / microseconds / 1e3
}
