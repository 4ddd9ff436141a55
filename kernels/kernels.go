// Package kernels bundles the global memory bandwidth kernel source and the
// table of entry points the benchmark launches.
package kernels

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"
)

// Source is the OpenCL C program holding every bandwidth entry point.
//
//go:embed global_bandwidth_kernels.cl
var Source string

// BuildOptions is passed to every program build.
const BuildOptions = "-cl-mad-enable"

// FetchPerWorkItem is the number of vector loads each work-item performs.
const FetchPerWorkItem = 16

// Widths are the per-work-item vector widths, in sweep order.
var Widths = []int{1, 2, 4, 8, 16}

// MaxVectorWidth is the widest entry in Widths.
const MaxVectorWidth = 16

// AddressingMode selects how a work-item's successive fetches advance.
type AddressingMode int

const (
	// LocalOffset advances by the work-group size.
	LocalOffset AddressingMode = iota
	// GlobalOffset advances by the global size.
	GlobalOffset
)

// Modes lists every addressing mode in launch order.
var Modes = []AddressingMode{LocalOffset, GlobalOffset}

func (m AddressingMode) String() string {
	switch m {
	case LocalOffset:
		return "local_offset"
	case GlobalOffset:
		return "global_offset"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Variant is one compiled entry point.
type Variant struct {
	Width int
	Mode  AddressingMode
	Name  string
}

// EntryPoint returns the kernel name for a width and addressing mode.
func EntryPoint(width int, mode AddressingMode) string {
	return fmt.Sprintf("global_bandwidth_v%d_%s", width, mode)
}

// Variants is the width x mode table, ordered by width then mode.
var Variants = func() []Variant {
	out := make([]Variant, 0, len(Widths)*len(Modes))
	for _, w := range Widths {
		for _, m := range Modes {
			out = append(out, Variant{Width: w, Mode: m, Name: EntryPoint(w, m)})
		}
	}
	return out
}()

// Label is the report label for a vector width: float, float2, ... float16.
func Label(width int) string {
	if width == 1 {
		return "float"
	}
	return fmt.Sprintf("float%d", width)
}

var kernelDecl = regexp.MustCompile(`__kernel\s+void\s+(\w+)\s*\(([^)]*)\)`)

// Declaration is a kernel signature found in OpenCL C source.
type Declaration struct {
	Name   string
	Params int
}

// Declarations returns the kernels declared in an OpenCL C source, in order.
func Declarations(source string) []Declaration {
	var out []Declaration
	for _, m := range kernelDecl.FindAllStringSubmatch(source, -1) {
		params := 0
		if strings.TrimSpace(m[2]) != "" {
			params = strings.Count(m[2], ",") + 1
		}
		out = append(out, Declaration{Name: m[1], Params: params})
	}
	return out
}
