// Package xsync holds small synchronization helpers.
package xsync

import "sync"

// WG is a WaitGroup that starts the goroutines it waits for.
type WG struct {
	sync.WaitGroup
}

// Go runs f on a new goroutine tracked by wg. Wait returns once every f
// started this way has returned.
func (wg *WG) Go(f func()) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		f()
	}()
}
