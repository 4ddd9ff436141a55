package cpu

import (
	"fmt"
	"sync"

	"github.com/vuvietnguyenit/gpu-bandwidth/compute"
	"github.com/vuvietnguyenit/gpu-bandwidth/kernels"
)

type programKernel struct {
	fn     kernels.NativeKernel
	params int
}

type program struct {
	device  *Device
	kernels map[string]programKernel
	log     string
}

func (p *program) BuildLog() string { return p.log }

func (p *program) Release() error { return nil }

func (p *program) CreateKernel(name string) (compute.Kernel, error) {
	pk, ok := p.kernels[name]
	if !ok {
		return nil, compute.NewInvalidArgError("CreateKernel", fmt.Sprintf("kernel %q not found in program", name))
	}
	return &kernel{
		name:   name,
		device: p.device,
		fn:     pk.fn,
		args:   make([]*buffer, pk.params),
	}, nil
}

type kernel struct {
	name   string
	device *Device
	fn     kernels.NativeKernel

	mu   sync.Mutex
	args []*buffer
}

func (k *kernel) Name() string { return k.name }

func (k *kernel) Release() error { return nil }

func (k *kernel) SetArg(index int, b compute.Buffer) error {
	if index < 0 || index >= len(k.args) {
		return compute.NewInvalidArgError("SetArg", fmt.Sprintf("%s takes %d arguments, got index %d", k.name, len(k.args), index))
	}
	buf, ok := b.(*buffer)
	if !ok || buf.device != k.device {
		return compute.NewInvalidArgError("SetArg", "buffer does not belong to this device")
	}
	if buf.released() {
		return compute.NewInvalidArgError("SetArg", "buffer already released")
	}

	k.mu.Lock()
	k.args[index] = buf
	k.mu.Unlock()
	return nil
}

// snapshot captures the bound arguments at enqueue time.
func (k *kernel) snapshot() ([][]float32, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	views := make([][]float32, len(k.args))
	for i, b := range k.args {
		if b == nil {
			return nil, compute.NewInvalidArgError("EnqueueNDRangeKernel", fmt.Sprintf("%s: argument %d not set", k.name, i))
		}
		views[i] = b.data
	}
	return views, nil
}
