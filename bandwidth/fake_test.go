package bandwidth

import (
	"time"

	"github.com/vuvietnguyenit/gpu-bandwidth/compute"
)

type fakeBuffer struct{ size uint64 }

func (b *fakeBuffer) Size() uint64   { return b.size }
func (b *fakeBuffer) Release() error { return nil }

type fakeKernel struct {
	name string
	args map[int]compute.Buffer
}

func (k *fakeKernel) Name() string { return k.name }
func (k *fakeKernel) SetArg(i int, b compute.Buffer) error {
	k.args[i] = b
	return nil
}
func (k *fakeKernel) Release() error { return nil }

type fakeProgram struct {
	fail map[string]error
}

func (p *fakeProgram) CreateKernel(name string) (compute.Kernel, error) {
	if err := p.fail[name]; err != nil {
		return nil, err
	}
	return &fakeKernel{name: name, args: map[int]compute.Buffer{}}, nil
}
func (p *fakeProgram) BuildLog() string { return "" }
func (p *fakeProgram) Release() error   { return nil }

type launch struct {
	kernel        string
	global, local uint64
}

type fakeEvent struct{ d time.Duration }

func (e fakeEvent) Wait() error                      { return nil }
func (e fakeEvent) Duration() (time.Duration, error) { return e.d, nil }

// fakeQueue reports a fixed duration per kernel name and records every call.
type fakeQueue struct {
	durations map[string]time.Duration
	fallback  time.Duration
	finishErr error

	launches []launch
	flushes  int
	finishes int
}

func (q *fakeQueue) EnqueueWriteBuffer(compute.Buffer, bool, []float32) error { return nil }

func (q *fakeQueue) EnqueueNDRangeKernel(k compute.Kernel, global, local uint64) (compute.Event, error) {
	q.launches = append(q.launches, launch{kernel: k.Name(), global: global, local: local})
	d, ok := q.durations[k.Name()]
	if !ok {
		d = q.fallback
	}
	return fakeEvent{d: d}, nil
}

func (q *fakeQueue) Flush() error {
	q.flushes++
	return nil
}

func (q *fakeQueue) Finish() error {
	q.finishes++
	return q.finishErr
}

func (q *fakeQueue) Release() error { return nil }

// stepClock advances by step on every reading.
type stepClock struct {
	t, step int64
}

func (c *stepClock) now() int64 {
	c.t += c.step
	return c.t
}
