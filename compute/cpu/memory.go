package cpu

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"

	"github.com/vuvietnguyenit/gpu-bandwidth/compute"
)

// allocAlign is the granularity allocations are accounted in.
const allocAlign = 64

type memoryPool struct {
	capacity uint64
	maxAlloc uint64

	mu        sync.Mutex
	allocated uint64
	peak      uint64
}

func newMemoryPool(capacity, maxAlloc uint64) *memoryPool {
	return &memoryPool{capacity: capacity, maxAlloc: maxAlloc}
}

func alignUp(n, align uint64) uint64 {
	return (n + align - 1) / align * align
}

func (p *memoryPool) allocate(d *Device, flags compute.MemFlags, size uint64) (*buffer, error) {
	if size == 0 {
		return nil, compute.NewInvalidArgError("CreateBuffer", "buffer size must be positive")
	}
	if size > p.maxAlloc {
		return nil, compute.NewMemoryError("CreateBuffer",
			fmt.Sprintf("%s exceeds max allocation %s", humanize.IBytes(size), humanize.IBytes(p.maxAlloc)), nil)
	}

	accounted := alignUp(size, allocAlign)

	p.mu.Lock()
	if p.allocated+accounted > p.capacity {
		free := p.capacity - p.allocated
		p.mu.Unlock()
		return nil, compute.NewMemoryError("CreateBuffer",
			fmt.Sprintf("%s requested, %s free", humanize.IBytes(size), humanize.IBytes(free)), nil)
	}
	p.allocated += accounted
	if p.allocated > p.peak {
		p.peak = p.allocated
	}
	p.mu.Unlock()

	return &buffer{
		device:    d,
		pool:      p,
		flags:     flags,
		size:      size,
		accounted: accounted,
		data:      make([]float32, (size+3)/4),
	}, nil
}

func (p *memoryPool) free(n uint64) {
	p.mu.Lock()
	p.allocated -= n
	p.mu.Unlock()
}

func (p *memoryPool) stats() (allocated, peak uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.allocated, p.peak
}

type buffer struct {
	device    *Device
	pool      *memoryPool
	flags     compute.MemFlags
	size      uint64
	accounted uint64
	data      []float32
	freed     atomic.Bool
}

func (b *buffer) Size() uint64 { return b.size }

func (b *buffer) released() bool { return b.freed.Load() }

func (b *buffer) Release() error {
	if b.freed.Swap(true) {
		return compute.NewInvalidArgError("Release", "buffer already released")
	}
	b.pool.free(b.accounted)
	return nil
}
