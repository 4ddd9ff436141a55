//go:build opencl

package opencl

/*
#cgo linux LDFLAGS: -lOpenCL
#cgo darwin LDFLAGS: -framework OpenCL
#cgo windows LDFLAGS: -lOpenCL
#define CL_TARGET_OPENCL_VERSION 120
#define CL_USE_DEPRECATED_OPENCL_1_2_APIS

#ifdef __APPLE__
#include <OpenCL/opencl.h>
#else
#include <CL/cl.h>
#endif

#include <stdlib.h>

const char* checkCL(cl_int err) {
    switch (err) {
    case CL_SUCCESS: return NULL;
    case CL_DEVICE_NOT_FOUND: return "CL_DEVICE_NOT_FOUND";
    case CL_DEVICE_NOT_AVAILABLE: return "CL_DEVICE_NOT_AVAILABLE";
    case CL_COMPILER_NOT_AVAILABLE: return "CL_COMPILER_NOT_AVAILABLE";
    case CL_MEM_OBJECT_ALLOCATION_FAILURE: return "CL_MEM_OBJECT_ALLOCATION_FAILURE";
    case CL_OUT_OF_RESOURCES: return "CL_OUT_OF_RESOURCES";
    case CL_OUT_OF_HOST_MEMORY: return "CL_OUT_OF_HOST_MEMORY";
    case CL_PROFILING_INFO_NOT_AVAILABLE: return "CL_PROFILING_INFO_NOT_AVAILABLE";
    case CL_BUILD_PROGRAM_FAILURE: return "CL_BUILD_PROGRAM_FAILURE";
    case CL_INVALID_VALUE: return "CL_INVALID_VALUE";
    case CL_INVALID_PLATFORM: return "CL_INVALID_PLATFORM";
    case CL_INVALID_DEVICE: return "CL_INVALID_DEVICE";
    case CL_INVALID_CONTEXT: return "CL_INVALID_CONTEXT";
    case CL_INVALID_QUEUE_PROPERTIES: return "CL_INVALID_QUEUE_PROPERTIES";
    case CL_INVALID_COMMAND_QUEUE: return "CL_INVALID_COMMAND_QUEUE";
    case CL_INVALID_MEM_OBJECT: return "CL_INVALID_MEM_OBJECT";
    case CL_INVALID_BUILD_OPTIONS: return "CL_INVALID_BUILD_OPTIONS";
    case CL_INVALID_PROGRAM: return "CL_INVALID_PROGRAM";
    case CL_INVALID_PROGRAM_EXECUTABLE: return "CL_INVALID_PROGRAM_EXECUTABLE";
    case CL_INVALID_KERNEL_NAME: return "CL_INVALID_KERNEL_NAME";
    case CL_INVALID_KERNEL: return "CL_INVALID_KERNEL";
    case CL_INVALID_ARG_INDEX: return "CL_INVALID_ARG_INDEX";
    case CL_INVALID_ARG_VALUE: return "CL_INVALID_ARG_VALUE";
    case CL_INVALID_KERNEL_ARGS: return "CL_INVALID_KERNEL_ARGS";
    case CL_INVALID_WORK_GROUP_SIZE: return "CL_INVALID_WORK_GROUP_SIZE";
    case CL_INVALID_WORK_ITEM_SIZE: return "CL_INVALID_WORK_ITEM_SIZE";
    case CL_INVALID_BUFFER_SIZE: return "CL_INVALID_BUFFER_SIZE";
    case CL_INVALID_EVENT: return "CL_INVALID_EVENT";
    default: return "CL_UNKNOWN_ERROR";
    }
}

static cl_int set_mem_arg(cl_kernel k, cl_uint index, cl_mem m) {
    return clSetKernelArg(k, index, sizeof(cl_mem), &m);
}

static cl_int launch_1d(cl_command_queue q, cl_kernel k, size_t global, size_t local, cl_event *ev) {
    return clEnqueueNDRangeKernel(q, k, 1, NULL, &global, &local, 0, NULL, ev);
}

static cl_int event_duration(cl_event ev, cl_ulong *ns) {
    cl_ulong start = 0, end = 0;
    cl_int err = clGetEventProfilingInfo(ev, CL_PROFILING_COMMAND_START, sizeof(start), &start, NULL);
    if (err != CL_SUCCESS) return err;
    err = clGetEventProfilingInfo(ev, CL_PROFILING_COMMAND_END, sizeof(end), &end, NULL);
    if (err != CL_SUCCESS) return err;
    *ns = end - start;
    return CL_SUCCESS;
}
*/
import "C"

import (
	"fmt"
	"runtime"
	"strings"
	"time"
	"unsafe"

	"github.com/vuvietnguyenit/gpu-bandwidth/compute"
)

func check(kind compute.ErrorKind, op string, code C.cl_int) error {
	if msg := C.checkCL(code); msg != nil {
		return compute.NewError(kind, op, C.GoString(msg), fmt.Errorf("cl_int %d", int(code)))
	}
	return nil
}

// Platforms lists every installed OpenCL platform.
func Platforms() ([]compute.Platform, error) {
	var n C.cl_uint
	if err := check(compute.KindPlatform, "clGetPlatformIDs", C.clGetPlatformIDs(0, nil, &n)); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	ids := make([]C.cl_platform_id, n)
	if err := check(compute.KindPlatform, "clGetPlatformIDs", C.clGetPlatformIDs(n, &ids[0], nil)); err != nil {
		return nil, err
	}

	out := make([]compute.Platform, 0, n)
	for _, id := range ids {
		out = append(out, &platform{id: id})
	}
	return out, nil
}

type platform struct {
	id C.cl_platform_id
}

func (p *platform) info(param C.cl_platform_info) string {
	var size C.size_t
	if C.clGetPlatformInfo(p.id, param, 0, nil, &size) != C.CL_SUCCESS || size == 0 {
		return ""
	}
	buf := make([]byte, size)
	C.clGetPlatformInfo(p.id, param, size, unsafe.Pointer(&buf[0]), nil)
	return strings.TrimRight(string(buf), "\x00")
}

func (p *platform) Name() string    { return p.info(C.CL_PLATFORM_NAME) }
func (p *platform) Vendor() string  { return p.info(C.CL_PLATFORM_VENDOR) }
func (p *platform) Version() string { return p.info(C.CL_PLATFORM_VERSION) }

func (p *platform) Devices() ([]compute.Device, error) {
	var n C.cl_uint
	code := C.clGetDeviceIDs(p.id, C.CL_DEVICE_TYPE_ALL, 0, nil, &n)
	if code == C.CL_DEVICE_NOT_FOUND {
		return nil, nil
	}
	if err := check(compute.KindPlatform, "clGetDeviceIDs", code); err != nil {
		return nil, err
	}
	ids := make([]C.cl_device_id, n)
	if err := check(compute.KindPlatform, "clGetDeviceIDs", C.clGetDeviceIDs(p.id, C.CL_DEVICE_TYPE_ALL, n, &ids[0], nil)); err != nil {
		return nil, err
	}

	out := make([]compute.Device, 0, n)
	for _, id := range ids {
		d, err := newDevice(id)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

type device struct {
	id   C.cl_device_id
	ctx  C.cl_context
	info compute.DeviceInfo
}

func newDevice(id C.cl_device_id) (*device, error) {
	var code C.cl_int
	ctx := C.clCreateContext(nil, 1, &id, nil, nil, &code)
	if err := check(compute.KindPlatform, "clCreateContext", code); err != nil {
		return nil, err
	}
	d := &device{id: id, ctx: ctx}
	d.info = d.query()
	return d, nil
}

func (d *device) str(param C.cl_device_info) string {
	var size C.size_t
	if C.clGetDeviceInfo(d.id, param, 0, nil, &size) != C.CL_SUCCESS || size == 0 {
		return ""
	}
	buf := make([]byte, size)
	C.clGetDeviceInfo(d.id, param, size, unsafe.Pointer(&buf[0]), nil)
	return strings.TrimSpace(strings.TrimRight(string(buf), "\x00"))
}

func (d *device) query() compute.DeviceInfo {
	var (
		typ      C.cl_device_type
		units    C.cl_uint
		clock    C.cl_uint
		global   C.cl_ulong
		maxAlloc C.cl_ulong
		maxWG    C.size_t
	)
	C.clGetDeviceInfo(d.id, C.CL_DEVICE_TYPE, C.size_t(unsafe.Sizeof(typ)), unsafe.Pointer(&typ), nil)
	C.clGetDeviceInfo(d.id, C.CL_DEVICE_MAX_COMPUTE_UNITS, C.size_t(unsafe.Sizeof(units)), unsafe.Pointer(&units), nil)
	C.clGetDeviceInfo(d.id, C.CL_DEVICE_MAX_CLOCK_FREQUENCY, C.size_t(unsafe.Sizeof(clock)), unsafe.Pointer(&clock), nil)
	C.clGetDeviceInfo(d.id, C.CL_DEVICE_GLOBAL_MEM_SIZE, C.size_t(unsafe.Sizeof(global)), unsafe.Pointer(&global), nil)
	C.clGetDeviceInfo(d.id, C.CL_DEVICE_MAX_MEM_ALLOC_SIZE, C.size_t(unsafe.Sizeof(maxAlloc)), unsafe.Pointer(&maxAlloc), nil)
	C.clGetDeviceInfo(d.id, C.CL_DEVICE_MAX_WORK_GROUP_SIZE, C.size_t(unsafe.Sizeof(maxWG)), unsafe.Pointer(&maxWG), nil)

	return compute.DeviceInfo{
		Name:             d.str(C.CL_DEVICE_NAME),
		Vendor:           d.str(C.CL_DEVICE_VENDOR),
		DriverVersion:    d.str(C.CL_DRIVER_VERSION),
		Type:             deviceType(typ),
		ComputeUnits:     uint32(units),
		MaxClockMHz:      uint32(clock),
		GlobalMemBytes:   uint64(global),
		MaxAllocBytes:    uint64(maxAlloc),
		MaxWorkGroupSize: uint32(maxWG),
	}
}

func deviceType(t C.cl_device_type) compute.DeviceType {
	switch {
	case t&C.CL_DEVICE_TYPE_GPU != 0:
		return compute.DeviceTypeGPU
	case t&C.CL_DEVICE_TYPE_CPU != 0:
		return compute.DeviceTypeCPU
	case t&C.CL_DEVICE_TYPE_ACCELERATOR != 0:
		return compute.DeviceTypeAccelerator
	default:
		return compute.DeviceTypeUnknown
	}
}

func (d *device) Info() compute.DeviceInfo { return d.info }

func (d *device) Release() error {
	return check(compute.KindPlatform, "clReleaseContext", C.clReleaseContext(d.ctx))
}

func (d *device) buildLog(prog C.cl_program) string {
	var size C.size_t
	if C.clGetProgramBuildInfo(prog, d.id, C.CL_PROGRAM_BUILD_LOG, 0, nil, &size) != C.CL_SUCCESS || size == 0 {
		return ""
	}
	buf := make([]byte, size)
	C.clGetProgramBuildInfo(prog, d.id, C.CL_PROGRAM_BUILD_LOG, size, unsafe.Pointer(&buf[0]), nil)
	return strings.TrimSpace(strings.TrimRight(string(buf), "\x00"))
}

func (d *device) BuildProgram(source, options string) (compute.Program, error) {
	csrc := C.CString(source)
	defer C.free(unsafe.Pointer(csrc))
	copts := C.CString(options)
	defer C.free(unsafe.Pointer(copts))

	var code C.cl_int
	prog := C.clCreateProgramWithSource(d.ctx, 1, &csrc, nil, &code)
	if err := check(compute.KindBuild, "clCreateProgramWithSource", code); err != nil {
		return nil, err
	}

	code = C.clBuildProgram(prog, 1, &d.id, copts, nil, nil)
	log := d.buildLog(prog)
	if err := check(compute.KindBuild, "clBuildProgram", code); err != nil {
		C.clReleaseProgram(prog)
		if log != "" {
			return nil, compute.NewBuildError("clBuildProgram", log, err)
		}
		return nil, err
	}
	return &program{prog: prog, log: log}, nil
}

func (d *device) CreateBuffer(flags compute.MemFlags, size uint64) (compute.Buffer, error) {
	if size == 0 {
		return nil, compute.NewInvalidArgError("clCreateBuffer", "buffer size must be positive")
	}
	var clFlags C.cl_mem_flags = C.CL_MEM_READ_WRITE
	switch flags {
	case compute.MemReadOnly:
		clFlags = C.CL_MEM_READ_ONLY
	case compute.MemWriteOnly:
		clFlags = C.CL_MEM_WRITE_ONLY
	}

	var code C.cl_int
	mem := C.clCreateBuffer(d.ctx, clFlags, C.size_t(size), nil, &code)
	if err := check(compute.KindMemory, "clCreateBuffer", code); err != nil {
		return nil, err
	}
	return &buffer{mem: mem, size: size}, nil
}

func (d *device) CreateQueue(profiling bool) (compute.Queue, error) {
	var props C.cl_command_queue_properties
	if profiling {
		props = C.CL_QUEUE_PROFILING_ENABLE
	}
	var code C.cl_int
	q := C.clCreateCommandQueue(d.ctx, d.id, props, &code)
	if err := check(compute.KindPlatform, "clCreateCommandQueue", code); err != nil {
		return nil, err
	}
	return &queue{q: q}, nil
}

type program struct {
	prog C.cl_program
	log  string
}

func (p *program) BuildLog() string { return p.log }

func (p *program) Release() error {
	return check(compute.KindBuild, "clReleaseProgram", C.clReleaseProgram(p.prog))
}

func (p *program) CreateKernel(name string) (compute.Kernel, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	var code C.cl_int
	k := C.clCreateKernel(p.prog, cname, &code)
	if err := check(compute.KindInvalidArg, "clCreateKernel", code); err != nil {
		return nil, err
	}
	return &kernel{k: k, name: name}, nil
}

type kernel struct {
	k    C.cl_kernel
	name string
}

func (k *kernel) Name() string { return k.name }

func (k *kernel) SetArg(index int, b compute.Buffer) error {
	buf, ok := b.(*buffer)
	if !ok {
		return compute.NewInvalidArgError("clSetKernelArg", "buffer does not belong to this backend")
	}
	return check(compute.KindInvalidArg, "clSetKernelArg", C.set_mem_arg(k.k, C.cl_uint(index), buf.mem))
}

func (k *kernel) Release() error {
	return check(compute.KindLaunch, "clReleaseKernel", C.clReleaseKernel(k.k))
}

type buffer struct {
	mem  C.cl_mem
	size uint64
}

func (b *buffer) Size() uint64 { return b.size }

func (b *buffer) Release() error {
	return check(compute.KindMemory, "clReleaseMemObject", C.clReleaseMemObject(b.mem))
}

type queue struct {
	q C.cl_command_queue
}

// EnqueueWriteBuffer always blocks: the source slice is Go memory and must
// not be read by the driver after the call returns.
func (q *queue) EnqueueWriteBuffer(b compute.Buffer, _ bool, data []float32) error {
	buf, ok := b.(*buffer)
	if !ok {
		return compute.NewInvalidArgError("clEnqueueWriteBuffer", "buffer does not belong to this backend")
	}
	if len(data) == 0 {
		return nil
	}
	size := uint64(len(data)) * 4
	if size > buf.size {
		return compute.NewInvalidArgError("clEnqueueWriteBuffer",
			fmt.Sprintf("%d bytes written to a %d byte buffer", size, buf.size))
	}
	code := C.clEnqueueWriteBuffer(q.q, buf.mem, C.CL_TRUE, 0, C.size_t(size), unsafe.Pointer(&data[0]), 0, nil, nil)
	runtime.KeepAlive(data)
	return check(compute.KindMemory, "clEnqueueWriteBuffer", code)
}

func (q *queue) EnqueueNDRangeKernel(k compute.Kernel, global, local uint64) (compute.Event, error) {
	kern, ok := k.(*kernel)
	if !ok {
		return nil, compute.NewInvalidArgError("clEnqueueNDRangeKernel", "kernel does not belong to this backend")
	}
	var ev C.cl_event
	code := C.launch_1d(q.q, kern.k, C.size_t(global), C.size_t(local), &ev)
	if err := check(compute.KindLaunch, "clEnqueueNDRangeKernel", code); err != nil {
		return nil, err
	}
	e := &event{ev: ev}
	runtime.SetFinalizer(e, func(e *event) { C.clReleaseEvent(e.ev) })
	return e, nil
}

func (q *queue) Flush() error {
	return check(compute.KindLaunch, "clFlush", C.clFlush(q.q))
}

func (q *queue) Finish() error {
	return check(compute.KindLaunch, "clFinish", C.clFinish(q.q))
}

func (q *queue) Release() error {
	return check(compute.KindPlatform, "clReleaseCommandQueue", C.clReleaseCommandQueue(q.q))
}

type event struct {
	ev C.cl_event
}

func (e *event) Wait() error {
	return check(compute.KindLaunch, "clWaitForEvents", C.clWaitForEvents(1, &e.ev))
}

func (e *event) Duration() (time.Duration, error) {
	if err := e.Wait(); err != nil {
		return 0, err
	}
	var ns C.cl_ulong
	if err := check(compute.KindLaunch, "clGetEventProfilingInfo", C.event_duration(e.ev, &ns)); err != nil {
		return 0, err
	}
	return time.Duration(ns), nil
}
