package monotime

import "time"

var start = time.Now()

func fallback() int64 {
	return int64(time.Since(start))
}

// Since returns the time elapsed since a Now reading.
func Since(ns int64) time.Duration {
	return time.Duration(Now() - ns)
}
