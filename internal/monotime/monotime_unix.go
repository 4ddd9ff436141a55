//go:build unix

// Package monotime reads CLOCK_MONOTONIC, the clock device timestamps are
// taken against.
package monotime

import "golang.org/x/sys/unix"

// Now returns nanoseconds on the monotonic clock.
func Now() int64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return fallback()
	}
	return ts.Sec*1_000_000_000 + int64(ts.Nsec)
}
