package bandwidth

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vuvietnguyenit/gpu-bandwidth/compute"
	"github.com/vuvietnguyenit/gpu-bandwidth/kernels"
)

func TestWorkloadSize(t *testing.T) {
	tests := []struct {
		name string
		caps Capabilities
		want uint64
	}{
		{
			name: "4GiB device capped at 2^30",
			caps: Capabilities{MaxAllocBytes: 4 << 30, MaxWorkGroupSize: 256, MaxWorkloadCap: 1 << 30},
			want: 1 << 29,
		},
		{
			name: "cap below memory",
			caps: Capabilities{MaxAllocBytes: 4 << 30, MaxWorkGroupSize: 256, MaxWorkloadCap: 1 << 27},
			want: 1 << 27,
		},
		{
			name: "rounded down to granularity",
			caps: Capabilities{MaxAllocBytes: 1_000_000, MaxWorkGroupSize: 64, MaxWorkloadCap: 1 << 29},
			want: 114688,
		},
		{
			name: "smaller than one granule",
			caps: Capabilities{MaxAllocBytes: 1 << 16, MaxWorkGroupSize: 256, MaxWorkloadCap: 1 << 29},
			want: 0,
		},
		{
			name: "zero cap",
			caps: Capabilities{MaxAllocBytes: 4 << 30, MaxWorkGroupSize: 256},
			want: 0,
		},
		{
			// One granule is 256*16*16 elements so the float16 variant
			// launches whole work-groups.
			name: "below one widest-variant granule",
			caps: Capabilities{MaxAllocBytes: 40000 * 8, MaxWorkGroupSize: 256, MaxWorkloadCap: 1 << 29},
			want: 0,
		},
		{
			name: "exactly one widest-variant granule",
			caps: Capabilities{MaxAllocBytes: 65536 * 8, MaxWorkGroupSize: 256, MaxWorkloadCap: 1 << 29},
			want: 65536,
		},
		{
			name: "no work-group size",
			caps: Capabilities{MaxAllocBytes: 4 << 30, MaxWorkloadCap: 1 << 29},
			want: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WorkloadSize(tt.caps, ElementSize))
		})
	}
	assert.Zero(t, WorkloadSize(Capabilities{MaxAllocBytes: 1 << 30, MaxWorkGroupSize: 256}, 0))
}

func TestGranularity(t *testing.T) {
	assert.Equal(t, uint64(65536), Granularity(256))
	assert.Equal(t, uint64(1024*16*16), Granularity(1024))
	assert.Zero(t, Granularity(0))
}

func TestWorkloadSizeProperties(t *testing.T) {
	for _, wg := range []uint32{1, 32, 64, 100, 256, 1024} {
		for _, alloc := range []uint64{1 << 20, 3 << 24, 1<<31 + 12345, 8 << 30} {
			caps := Capabilities{MaxAllocBytes: alloc, MaxWorkGroupSize: wg, MaxWorkloadCap: 1 << 29}
			n := WorkloadSize(caps, ElementSize)

			assert.Zero(t, n%(uint64(wg)*kernels.FetchPerWorkItem))
			assert.LessOrEqual(t, n, min(alloc/ElementSize/2, caps.MaxWorkloadCap))
			assert.Equal(t, n, WorkloadSize(caps, ElementSize))

			if n == 0 {
				continue
			}
			for _, w := range kernels.Widths {
				global, local := Geometry(n, w, caps)
				assert.Equal(t, n/uint64(w)/kernels.FetchPerWorkItem, global)
				assert.Zero(t, global%local, "wg=%d alloc=%d width=%d", wg, alloc, w)
			}
		}
	}
}

func TestThroughput(t *testing.T) {
	assert.InDelta(t, 0.16384, Throughput(4096, 100), 1e-12)
}

func TestParseTimerMode(t *testing.T) {
	m, err := ParseTimerMode("event")
	require.NoError(t, err)
	assert.Equal(t, EventTimer, m)

	m, err = ParseTimerMode("WallClock")
	require.NoError(t, err)
	assert.Equal(t, WallClock, m)
	assert.Equal(t, "wallclock", m.String())

	_, err = ParseTimerMode("stopwatch")
	assert.Error(t, err)
}

func TestTimerEventMode(t *testing.T) {
	q := &fakeQueue{fallback: 250 * time.Microsecond}
	timer := NewTimer(q, EventTimer)
	k := &fakeKernel{name: "k"}

	us, err := timer.Time(k, 1024, 64, 10)
	require.NoError(t, err)
	assert.InDelta(t, 250, us, 1e-9)

	// Two warm-ups, then one launch per iteration.
	assert.Len(t, q.launches, 12)
	// One finish after warm-up and one per iteration.
	assert.Equal(t, 11, q.finishes)
	assert.Zero(t, q.flushes)
}

func TestTimerWallClockMode(t *testing.T) {
	q := &fakeQueue{}
	timer := NewTimer(q, WallClock)
	assert.Equal(t, WallClock, timer.Mode())
	clock := &stepClock{step: int64(5 * time.Millisecond)}
	timer.now = clock.now

	us, err := timer.Time(&fakeKernel{name: "k"}, 1024, 64, 5)
	require.NoError(t, err)
	// One clock step between the two readings, spread over five launches.
	assert.InDelta(t, 1000, us, 1e-9)
	assert.Len(t, q.launches, 7)
	assert.Equal(t, 5, q.flushes)
	assert.Equal(t, 2, q.finishes)
}

func TestTimerErrors(t *testing.T) {
	q := &fakeQueue{fallback: time.Microsecond}
	_, err := NewTimer(q, EventTimer).Time(&fakeKernel{name: "k"}, 64, 64, 0)
	require.Error(t, err)
	k, ok := compute.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, compute.KindInvalidArg, k)
	assert.Empty(t, q.launches)

	failing := &fakeQueue{finishErr: compute.NewLaunchError("Finish", "queue failed", nil)}
	_, err = NewTimer(failing, EventTimer).Time(&fakeKernel{name: "k"}, 64, 64, 3)
	assert.True(t, compute.IsLaunchError(err))
	assert.Len(t, failing.launches, warmupLaunches)
}

func sweepWorkload(elements uint64, prog compute.Program) Workload {
	return Workload{
		Program:  prog,
		Input:    &fakeBuffer{size: elements * ElementSize},
		Output:   &fakeBuffer{size: elements * ElementSize},
		Elements: elements,
	}
}

func TestSweepEqualModes(t *testing.T) {
	q := &fakeQueue{fallback: 100 * time.Microsecond}
	caps := Capabilities{MaxWorkGroupSize: 16, Iterations: 3}

	results, err := Sweep(NewTimer(q, EventTimer), sweepWorkload(4096, &fakeProgram{}), caps, nil)
	require.NoError(t, err)
	require.Len(t, results, len(kernels.Widths))

	first := results[0]
	assert.Equal(t, 1, first.Width)
	assert.Equal(t, "float", first.Label)
	assert.InDelta(t, 100, first.BestUS, 1e-9)
	assert.InDelta(t, 0.16384, first.GBps, 1e-9)

	labels := make([]string, 0, len(results))
	for _, r := range results {
		labels = append(labels, r.Label)
	}
	assert.Equal(t, []string{"float", "float2", "float4", "float8", "float16"}, labels)

	// Both modes at every width, warm-ups included.
	assert.Len(t, q.launches, len(kernels.Variants)*(warmupLaunches+3))
	assert.Equal(t, launch{kernel: "global_bandwidth_v1_local_offset", global: 256, local: 16}, q.launches[0])
}

func TestSweepKeepsFasterMode(t *testing.T) {
	q := &fakeQueue{
		fallback: 200 * time.Microsecond,
		durations: map[string]time.Duration{
			kernels.EntryPoint(4, kernels.GlobalOffset): 50 * time.Microsecond,
			kernels.EntryPoint(8, kernels.LocalOffset):  80 * time.Microsecond,
		},
	}
	caps := Capabilities{MaxWorkGroupSize: 16, Iterations: 2}

	results, err := Sweep(NewTimer(q, EventTimer), sweepWorkload(65536, &fakeProgram{}), caps, nil)
	require.NoError(t, err)
	for _, r := range results {
		assert.LessOrEqual(t, r.BestUS, max(r.LocalOffsetUS, r.GlobalOffsetUS))
		assert.Equal(t, min(r.LocalOffsetUS, r.GlobalOffsetUS), r.BestUS)
		assert.Greater(t, r.GBps, 0.0)
	}
	assert.InDelta(t, 50, results[2].BestUS, 1e-9)
	assert.InDelta(t, 80, results[3].BestUS, 1e-9)
	assert.InDelta(t, 200, results[0].BestUS, 1e-9)
}

func TestSweepUnsupportedDevice(t *testing.T) {
	caps := Capabilities{MaxAllocBytes: 1024, MaxWorkGroupSize: 256, Iterations: 50, MaxWorkloadCap: 1 << 29}
	n := WorkloadSize(caps, ElementSize)
	require.Zero(t, n)

	q := &fakeQueue{fallback: time.Microsecond}
	results, err := Sweep(NewTimer(q, EventTimer), sweepWorkload(n, &fakeProgram{}), caps, nil)
	assert.ErrorIs(t, err, ErrUnsupportedDevice)
	assert.Empty(t, results)
	assert.Empty(t, q.launches)
}

func TestSweepStopsOnError(t *testing.T) {
	missing := kernels.EntryPoint(4, kernels.LocalOffset)
	prog := &fakeProgram{fail: map[string]error{
		missing: compute.NewInvalidArgError("CreateKernel", "not found"),
	}}
	q := &fakeQueue{fallback: 10 * time.Microsecond}
	caps := Capabilities{MaxWorkGroupSize: 16, Iterations: 1}

	results, err := Sweep(NewTimer(q, EventTimer), sweepWorkload(4096, prog), caps, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), missing)
	assert.Len(t, results, 2)
}

func TestSweepRejectsZeroTime(t *testing.T) {
	q := &fakeQueue{}
	caps := Capabilities{MaxWorkGroupSize: 16, Iterations: 1}

	results, err := Sweep(NewTimer(q, EventTimer), sweepWorkload(4096, &fakeProgram{}), caps, nil)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnsupportedDevice))
	assert.Empty(t, results)
}
