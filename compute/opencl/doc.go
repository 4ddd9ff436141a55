// Package opencl drives OpenCL platforms through the system ICD loader. It is
// only compiled with the opencl build tag; without it Platforms reports
// compute.ErrNotSupported.
package opencl
