package opencl_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vuvietnguyenit/gpu-bandwidth/compute"
	"github.com/vuvietnguyenit/gpu-bandwidth/compute/opencl"
	"github.com/vuvietnguyenit/gpu-bandwidth/kernels"
)

func TestPlatforms(t *testing.T) {
	platforms, err := opencl.Platforms()
	if errors.Is(err, compute.ErrNotSupported) {
		t.Skipf("Skipping test: built without OpenCL: %v", err)
	}
	if err != nil || len(platforms) == 0 {
		t.Skipf("Skipping test: no OpenCL platform available: %v", err)
	}

	for _, p := range platforms {
		devices, err := p.Devices()
		require.NoError(t, err)
		for _, d := range devices {
			info := d.Info()
			assert.NotEmpty(t, info.Name)
			assert.NotZero(t, info.MaxWorkGroupSize)
			t.Logf("%s: %s", p.Name(), info)

			prog, err := d.BuildProgram(kernels.Source, kernels.BuildOptions)
			require.NoError(t, err, "build log: %v", err)
			for _, v := range kernels.Variants {
				k, err := prog.CreateKernel(v.Name)
				require.NoError(t, err)
				require.NoError(t, k.Release())
			}
			require.NoError(t, prog.Release())
			require.NoError(t, d.Release())
		}
	}
}
