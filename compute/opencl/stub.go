//go:build !opencl

package opencl

import "github.com/vuvietnguyenit/gpu-bandwidth/compute"

func Platforms() ([]compute.Platform, error) {
	return nil, compute.ErrNotSupported
}
