package kernels

// Group identifies one work-group of a one-dimensional launch.
type Group struct {
	ID         uint64
	LocalSize  uint64
	GlobalSize uint64
}

// NativeKernel runs every work-item of one work-group. args holds the
// kernel's buffer arguments as float32 views, in argument order.
type NativeKernel func(g Group, args [][]float32)

// Native returns Go implementations of every entry point in Source, keyed by
// kernel name. They follow the same addressing as the OpenCL text so the
// in-process backend moves the same bytes a device would.
func Native() map[string]NativeKernel {
	out := make(map[string]NativeKernel, len(Variants))
	for _, v := range Variants {
		switch v.Mode {
		case LocalOffset:
			out[v.Name] = localOffset(uint64(v.Width))
		case GlobalOffset:
			out[v.Name] = globalOffset(uint64(v.Width))
		}
	}
	return out
}

func localOffset(width uint64) NativeKernel {
	return func(g Group, args [][]float32) {
		in, out := args[0], args[1]
		ls := g.LocalSize
		for lid := uint64(0); lid < ls; lid++ {
			base := g.ID*ls*FetchPerWorkItem + lid
			var sum float32
			for i := uint64(0); i < FetchPerWorkItem; i++ {
				sum += lanes(in, (base+i*ls)*width, width)
			}
			out[g.ID*ls+lid] = sum
		}
	}
}

func globalOffset(width uint64) NativeKernel {
	return func(g Group, args [][]float32) {
		in, out := args[0], args[1]
		ls := g.LocalSize
		for lid := uint64(0); lid < ls; lid++ {
			id := g.ID*ls + lid
			var sum float32
			for i := uint64(0); i < FetchPerWorkItem; i++ {
				sum += lanes(in, (id+i*g.GlobalSize)*width, width)
			}
			out[id] = sum
		}
	}
}

// lanes sums one vector of width scalars starting at off.
func lanes(in []float32, off, width uint64) float32 {
	var s float32
	for _, x := range in[off : off+width] {
		s += x
	}
	return s
}
