package cpu

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vuvietnguyenit/gpu-bandwidth/compute"
	"github.com/vuvietnguyenit/gpu-bandwidth/internal/monotime"
	"github.com/vuvietnguyenit/gpu-bandwidth/internal/xsync"
	"github.com/vuvietnguyenit/gpu-bandwidth/kernels"
)

const queueDepth = 1000

// queue executes commands in submission order on one goroutine. A failed
// command is reported by the next Finish.
type queue struct {
	device    *Device
	profiling bool

	tasks   chan func()
	done    chan struct{}
	pending sync.WaitGroup
	closed  atomic.Bool

	mu  sync.Mutex
	err error
}

var _ compute.Queue = (*queue)(nil)

func newQueue(d *Device, profiling bool) *queue {
	q := &queue{
		device:    d,
		profiling: profiling,
		tasks:     make(chan func(), queueDepth),
		done:      make(chan struct{}),
	}
	go q.worker()
	return q
}

func (q *queue) worker() {
	for task := range q.tasks {
		task()
		q.pending.Done()
	}
	close(q.done)
}

func (q *queue) submit(task func()) error {
	if q.closed.Load() {
		return compute.NewInvalidArgError("Enqueue", "queue released")
	}
	q.pending.Add(1)
	q.tasks <- task
	return nil
}

func (q *queue) fail(err error) {
	q.mu.Lock()
	if q.err == nil {
		q.err = err
	}
	q.mu.Unlock()
}

func (q *queue) EnqueueWriteBuffer(b compute.Buffer, blocking bool, data []float32) error {
	buf, ok := b.(*buffer)
	if !ok || buf.device != q.device {
		return compute.NewInvalidArgError("EnqueueWriteBuffer", "buffer does not belong to this device")
	}
	if buf.released() {
		return compute.NewInvalidArgError("EnqueueWriteBuffer", "buffer already released")
	}
	if uint64(len(data))*4 > buf.size {
		return compute.NewInvalidArgError("EnqueueWriteBuffer",
			fmt.Sprintf("%d bytes written to a %d byte buffer", len(data)*4, buf.size))
	}

	written := make(chan struct{})
	if err := q.submit(func() {
		copy(buf.data, data)
		close(written)
	}); err != nil {
		return err
	}
	if blocking {
		<-written
	}
	return nil
}

func (q *queue) EnqueueNDRangeKernel(k compute.Kernel, global, local uint64) (compute.Event, error) {
	kern, ok := k.(*kernel)
	if !ok || kern.device != q.device {
		return nil, compute.NewInvalidArgError("EnqueueNDRangeKernel", "kernel does not belong to this device")
	}
	if global == 0 || local == 0 {
		return nil, compute.NewInvalidArgError("EnqueueNDRangeKernel", "work sizes must be positive")
	}
	if global%local != 0 {
		return nil, compute.NewInvalidArgError("EnqueueNDRangeKernel",
			fmt.Sprintf("global size %d is not a multiple of local size %d", global, local))
	}
	if local > uint64(q.device.info.MaxWorkGroupSize) {
		return nil, compute.NewInvalidArgError("EnqueueNDRangeKernel",
			fmt.Sprintf("local size %d exceeds max work-group size %d", local, q.device.info.MaxWorkGroupSize))
	}
	args, err := kern.snapshot()
	if err != nil {
		return nil, err
	}

	ev := &event{profiling: q.profiling, done: make(chan struct{})}
	err = q.submit(func() {
		ev.start = monotime.Now()
		ev.err = q.device.run(kern, global, local, args)
		ev.end = monotime.Now()
		if ev.err != nil {
			q.fail(ev.err)
		}
		close(ev.done)
	})
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// run splits the work-groups of one launch into contiguous ranges, one per
// worker goroutine.
func (d *Device) run(k *kernel, global, local uint64, args [][]float32) error {
	groups := global / local
	workers := uint64(d.workers)
	if workers > groups {
		workers = groups
	}
	per := (groups + workers - 1) / workers

	var (
		wg       xsync.WG
		once     sync.Once
		panicked error
	)
	for w := uint64(0); w < workers; w++ {
		first := w * per
		last := min(first+per, groups)
		if first >= last {
			break
		}
		wg.Go(func() {
			defer func() {
				if r := recover(); r != nil {
					once.Do(func() {
						panicked = compute.NewLaunchError("EnqueueNDRangeKernel",
							fmt.Sprintf("%s aborted", k.name), fmt.Errorf("%v", r))
					})
				}
			}()
			for g := first; g < last; g++ {
				k.fn(kernels.Group{ID: g, LocalSize: local, GlobalSize: global}, args)
			}
		})
	}
	wg.Wait()
	return panicked
}

func (q *queue) Flush() error {
	if q.closed.Load() {
		return compute.NewInvalidArgError("Flush", "queue released")
	}
	return nil
}

func (q *queue) Finish() error {
	q.pending.Wait()

	q.mu.Lock()
	err := q.err
	q.err = nil
	q.mu.Unlock()
	return err
}

func (q *queue) Release() error {
	if q.closed.Swap(true) {
		return nil
	}
	close(q.tasks)
	<-q.done
	return nil
}

type event struct {
	profiling  bool
	done       chan struct{}
	start, end int64
	err        error
}

func (e *event) Wait() error {
	<-e.done
	return e.err
}

func (e *event) Duration() (time.Duration, error) {
	if !e.profiling {
		return 0, compute.NewInvalidArgError("Duration", "queue created without profiling")
	}
	if err := e.Wait(); err != nil {
		return 0, err
	}
	return time.Duration(e.end - e.start), nil
}
