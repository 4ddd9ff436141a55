package bandwidth

import (
	"fmt"
	"strings"
	"time"

	"github.com/vuvietnguyenit/gpu-bandwidth/compute"
	"github.com/vuvietnguyenit/gpu-bandwidth/internal/monotime"
)

// warmupLaunches are issued and discarded before every timed run.
const warmupLaunches = 2

// TimerMode selects how launches are timed.
type TimerMode int

const (
	// EventTimer sums the device-reported duration of every launch.
	EventTimer TimerMode = iota
	// WallClock times a batch of launches on the host monotonic clock.
	WallClock
)

func (m TimerMode) String() string {
	switch m {
	case EventTimer:
		return "event"
	case WallClock:
		return "wallclock"
	default:
		return fmt.Sprintf("TimerMode(%d)", int(m))
	}
}

// ParseTimerMode accepts "event" or "wallclock".
func ParseTimerMode(s string) (TimerMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "event", "":
		return EventTimer, nil
	case "wallclock", "wall-clock", "wall":
		return WallClock, nil
	default:
		return 0, fmt.Errorf("invalid timer mode %q: must be event or wallclock", s)
	}
}

// Timer measures the mean execution time of a kernel on one queue.
type Timer struct {
	queue compute.Queue
	mode  TimerMode
	now   func() int64
}

func NewTimer(q compute.Queue, mode TimerMode) *Timer {
	return &Timer{queue: q, mode: mode, now: monotime.Now}
}

func (t *Timer) Mode() TimerMode { return t.mode }

// Time launches k warmupLaunches times untimed, then iterations times, and
// returns the mean time per launch in microseconds.
func (t *Timer) Time(k compute.Kernel, global, local uint64, iterations uint32) (float64, error) {
	if iterations == 0 {
		return 0, compute.NewInvalidArgError("Time", "iterations must be positive")
	}

	for i := 0; i < warmupLaunches; i++ {
		if _, err := t.queue.EnqueueNDRangeKernel(k, global, local); err != nil {
			return 0, fmt.Errorf("warm-up %s: %w", k.Name(), err)
		}
	}
	if err := t.queue.Finish(); err != nil {
		return 0, fmt.Errorf("warm-up %s: %w", k.Name(), err)
	}

	var total time.Duration
	var err error
	switch t.mode {
	case WallClock:
		total, err = t.wallClock(k, global, local, iterations)
	default:
		total, err = t.events(k, global, local, iterations)
	}
	if err != nil {
		return 0, fmt.Errorf("time %s: %w", k.Name(), err)
	}
	return float64(total) / float64(time.Microsecond) / float64(iterations), nil
}

func (t *Timer) events(k compute.Kernel, global, local uint64, iterations uint32) (time.Duration, error) {
	var total time.Duration
	for i := uint32(0); i < iterations; i++ {
		ev, err := t.queue.EnqueueNDRangeKernel(k, global, local)
		if err != nil {
			return 0, err
		}
		if err := t.queue.Finish(); err != nil {
			return 0, err
		}
		d, err := ev.Duration()
		if err != nil {
			return 0, err
		}
		total += d
	}
	return total, nil
}

func (t *Timer) wallClock(k compute.Kernel, global, local uint64, iterations uint32) (time.Duration, error) {
	start := t.now()
	for i := uint32(0); i < iterations; i++ {
		if _, err := t.queue.EnqueueNDRangeKernel(k, global, local); err != nil {
			return 0, err
		}
		if err := t.queue.Flush(); err != nil {
			return 0, err
		}
	}
	if err := t.queue.Finish(); err != nil {
		return 0, err
	}
	return time.Duration(t.now() - start), nil
}
