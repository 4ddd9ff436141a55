package bandwidth

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/vuvietnguyenit/gpu-bandwidth/compute"
	"github.com/vuvietnguyenit/gpu-bandwidth/kernels"
)

// ErrUnsupportedDevice is returned for a device whose workload size is zero.
var ErrUnsupportedDevice = errors.New("device cannot hold a minimal workload")

// Result is the bandwidth measured at one vector width.
type Result struct {
	Width          int
	Label          string
	LocalOffsetUS  float64
	GlobalOffsetUS float64
	BestUS         float64
	GBps           float64
}

// Workload is a built program and the buffers every kernel reads and writes.
type Workload struct {
	Program  compute.Program
	Input    compute.Buffer
	Output   compute.Buffer
	Elements uint64
}

// Sweep times both addressing modes at every vector width and keeps the
// faster one. On a compute error it returns the results gathered so far.
func Sweep(t *Timer, w Workload, caps Capabilities, logger *slog.Logger) ([]Result, error) {
	if w.Elements == 0 {
		return nil, ErrUnsupportedDevice
	}
	if logger == nil {
		logger = slog.Default()
	}

	results := make([]Result, 0, len(kernels.Widths))
	for _, width := range kernels.Widths {
		global, local := Geometry(w.Elements, width, caps)

		times := make(map[kernels.AddressingMode]float64, len(kernels.Modes))
		for _, mode := range kernels.Modes {
			us, err := timeVariant(t, w, kernels.EntryPoint(width, mode), global, local, caps.Iterations)
			if err != nil {
				return results, err
			}
			times[mode] = us
		}

		best := math.Min(times[kernels.LocalOffset], times[kernels.GlobalOffset])
		if !(best > 0) {
			return results, fmt.Errorf("%s: non-positive kernel time %gus", kernels.Label(width), best)
		}
		r := Result{
			Width:          width,
			Label:          kernels.Label(width),
			LocalOffsetUS:  times[kernels.LocalOffset],
			GlobalOffsetUS: times[kernels.GlobalOffset],
			BestUS:         best,
			GBps:           Throughput(w.Elements, best),
		}
		logger.Debug("width done",
			"label", r.Label,
			"timer", t.Mode(),
			"global", global,
			"local", local,
			"local_offset_us", r.LocalOffsetUS,
			"global_offset_us", r.GlobalOffsetUS,
			"gbps", r.GBps,
		)
		results = append(results, r)
	}
	return results, nil
}

func timeVariant(t *Timer, w Workload, name string, global, local uint64, iterations uint32) (float64, error) {
	k, err := w.Program.CreateKernel(name)
	if err != nil {
		return 0, fmt.Errorf("create kernel %s: %w", name, err)
	}
	defer k.Release()

	if err := k.SetArg(0, w.Input); err != nil {
		return 0, fmt.Errorf("bind %s input: %w", name, err)
	}
	if err := k.SetArg(1, w.Output); err != nil {
		return 0, fmt.Errorf("bind %s output: %w", name, err)
	}
	return t.Time(k, global, local, iterations)
}
