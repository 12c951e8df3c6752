package device

import (
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	"github.com/achilleasa/gopencl/v1.2/cl"
)

type DeviceType uint8

// Supported device types.
const (
	CpuDevice   DeviceType = 1 << iota
	GpuDevice              = 1 << iota
	OtherDevice            = 1 << iota
	AllDevices             = 0xFF
)

func (dt DeviceType) String() string {
	switch dt {
	case CpuDevice:
		return "CPU"
	case GpuDevice:
		return "GPU"
	case OtherDevice:
		return "Other"
	}
	panic("device: unsupported device type")
}

// Engine-visible addresses resolve into a single pooled allocation; OpenCL
// 1.2 exposes no device virtual addresses, so the pool's byte offsets stand
// in for them. The base keeps address 0 invalid.
const poolBaseAddr = 1 << 12

// Wrapper around an opencl device that hosts the build engine's memory pool
// and kernel library.
type Device struct {
	Name string
	Id   cl.DeviceId
	Type DeviceType

	compUnits  uint32
	clockSpeed uint32

	// Speed estimate in GFlops.
	Speed uint32

	// Opencl handles; allocated when the device is initialized.
	ctx      *cl.Context
	cmdQueue cl.CommandQueue
	program  cl.Program

	// Pooled allocation backing every engine buffer.
	pool     cl.Mem
	poolSize uint64
	nextAddr uint64
}

// Initialize the device: create the context and command queue, compile the
// kernel library at programFile and reserve a poolSize-byte memory pool.
func (d *Device) Init(programFile string, poolSize uint64) error {
	var errCode cl.ErrorCode

	// Already initialized
	if d.ctx != nil {
		return nil
	}

	d.ctx = cl.CreateContext(nil, 1, &d.Id, nil, nil, (*int32)(&errCode))
	if errCode != cl.SUCCESS {
		defer d.Close()
		return fmt.Errorf("device (%s): could not create opencl context (error: %s; code %d)", d.Name, ErrorName(errCode), errCode)
	}

	d.cmdQueue = cl.CreateCommandQueue(*d.ctx, d.Id, 0, (*int32)(&errCode))
	if errCode != cl.SUCCESS {
		defer d.Close()
		return fmt.Errorf("device (%s): could not create opencl command queue (error: %s; code %d)", d.Name, ErrorName(errCode), errCode)
	}

	// Load and build the kernel library
	absProgramPath, err := filepath.Abs(programFile)
	if err != nil {
		defer d.Close()
		return err
	}

	data, err := os.ReadFile(absProgramPath)
	if err != nil {
		defer d.Close()
		return err
	}
	progSrc := cl.Str(string(data) + "\x00")

	d.program = cl.CreateProgramWithSource(*d.ctx, 1, &progSrc, nil, (*int32)(&errCode))
	if errCode != cl.SUCCESS {
		defer d.Close()
		return fmt.Errorf("device (%s): could not create program (error: %s; code %d)", d.Name, ErrorName(errCode), errCode)
	}

	errCode = cl.BuildProgram(d.program, 1, &d.Id, cl.Str(fmt.Sprintf("-I %s\x00", filepath.Dir(absProgramPath))), nil, nil)
	if errCode != cl.SUCCESS {
		var logLen uint64
		buildLog := make([]byte, 120000)

		cl.GetProgramBuildInfo(d.program, d.Id, cl.PROGRAM_BUILD_LOG, uint64(len(buildLog)), unsafe.Pointer(&buildLog[0]), &logLen)
		defer d.Close()
		return fmt.Errorf("device (%s): could not build kernel library (error: %s; code %d):\n%s", d.Name, ErrorName(errCode), errCode, string(buildLog[0:logLen-1]))
	}

	d.pool = cl.CreateBuffer(*d.ctx, cl.MEM_READ_WRITE, cl.MemFlags(poolSize), nil, (*int32)(&errCode))
	if errCode != cl.SUCCESS {
		defer d.Close()
		return fmt.Errorf("device (%s): could not allocate %d byte memory pool (error: %s; code %d)", d.Name, poolSize, ErrorName(errCode), errCode)
	}
	d.poolSize = poolSize
	d.nextAddr = poolBaseAddr

	return nil
}

// Shut down the device.
func (d *Device) Close() {
	if d.pool != nil {
		cl.ReleaseMemObject(d.pool)
		d.pool = nil
	}

	if d.program != nil {
		cl.ReleaseProgram(d.program)
		d.program = nil
	}

	if d.cmdQueue != nil {
		cl.ReleaseCommandQueue(d.cmdQueue)
		d.cmdQueue = nil
	}

	if d.ctx != nil {
		cl.ReleaseContext(d.ctx)
		d.ctx = nil
	}
}

// Buffer carves a named region out of the device pool. Regions are never
// returned to the pool individually; callers size the pool for their run.
func (d *Device) Buffer(name string, size uint64) (*Buffer, error) {
	const bufferAlignment = 256

	addr := d.nextAddr
	end := addr + size
	if end-poolBaseAddr > d.poolSize {
		return nil, fmt.Errorf("device (%s): pool exhausted allocating buffer %s of size %d", d.Name, name, size)
	}
	d.nextAddr = (end + bufferAlignment - 1) &^ (bufferAlignment - 1)

	return &Buffer{device: d, name: name, addr: addr, size: size}, nil
}

// Load kernel by entry point name.
func (d *Device) kernel(name string) (*Kernel, error) {
	var errCode cl.ErrorCode
	kernelHandle := cl.CreateKernel(d.program, cl.Str(name+"\x00"), (*int32)(&errCode))
	if errCode != cl.SUCCESS {
		return nil, fmt.Errorf("device (%s): could not load kernel %s (error: %s; code %d)", d.Name, name, ErrorName(errCode), errCode)
	}

	return &Kernel{
		device:       d,
		kernelHandle: kernelHandle,
		name:         name,
	}, nil
}

// Resolve an engine address to a pool byte offset.
func (d *Device) resolve(addr uint64, size uint64) (uint64, error) {
	if addr < poolBaseAddr || addr-poolBaseAddr+size > d.poolSize {
		return 0, fmt.Errorf("device (%s): address range [%#x, %#x) is outside the pool", d.Name, addr, addr+size)
	}
	return addr - poolBaseAddr, nil
}

// Detect device speed.
func (d *Device) detectSpeed() error {
	// Theoretical speed: compute units * 2 ops/cycle * clock speed
	errCode := cl.GetDeviceInfo(d.Id, cl.DEVICE_MAX_COMPUTE_UNITS, 4, unsafe.Pointer(&d.compUnits), nil)
	if errCode != cl.SUCCESS {
		return fmt.Errorf("device (%s): could not query MAX_COMPUTE_UNITS (error: %s; code %d)", d.Name, ErrorName(errCode), errCode)
	}
	errCode = cl.GetDeviceInfo(d.Id, cl.DEVICE_MAX_CLOCK_FREQUENCY, 4, unsafe.Pointer(&d.clockSpeed), nil)
	if errCode != cl.SUCCESS {
		return fmt.Errorf("device (%s): could not query MAX_CLOCK_FREQUENCY (error: %s; code %d)", d.Name, ErrorName(errCode), errCode)
	}
	d.Speed = d.compUnits * d.clockSpeed / 1000

	return nil
}

// Implements Stringer.
func (d Device) String() string {
	return fmt.Sprintf(
		"Name: %s\nType: %s\nSpecs: %d computation units, %d Mhz clock, %d GFlops approximate speed",
		d.Name,
		d.Type.String(),
		d.compUnits,
		d.clockSpeed,
		d.Speed,
	)
}

// Return a textual description of an opencl error code.
func ErrorName(errCode cl.ErrorCode) string {
	switch errCode {
	case 0:
		return "SUCCESS"
	case -1:
		return "DEVICE_NOT_FOUND"
	case -2:
		return "DEVICE_NOT_AVAILABLE"
	case -3:
		return "COMPILER_NOT_AVAILABLE"
	case -4:
		return "MEM_OBJECT_ALLOCATION_FAILURE"
	case -5:
		return "OUT_OF_RESOURCES"
	case -6:
		return "OUT_OF_HOST_MEMORY"
	case -11:
		return "BUILD_PROGRAM_FAILURE"
	case -30:
		return "INVALID_VALUE"
	case -34:
		return "INVALID_CONTEXT"
	case -36:
		return "INVALID_COMMAND_QUEUE"
	case -38:
		return "INVALID_MEM_OBJECT"
	case -44:
		return "INVALID_PROGRAM"
	case -45:
		return "INVALID_PROGRAM_EXECUTABLE"
	case -46:
		return "INVALID_KERNEL_NAME"
	case -48:
		return "INVALID_KERNEL"
	case -49:
		return "INVALID_ARG_INDEX"
	case -50:
		return "INVALID_ARG_VALUE"
	case -51:
		return "INVALID_ARG_SIZE"
	case -52:
		return "INVALID_KERNEL_ARGS"
	case -53:
		return "INVALID_WORK_DIMENSION"
	case -54:
		return "INVALID_WORK_GROUP_SIZE"
	case -55:
		return "INVALID_WORK_ITEM_SIZE"
	case -61:
		return "INVALID_BUFFER_SIZE"
	case -63:
		return "INVALID_GLOBAL_WORK_SIZE"
	default:
		return fmt.Sprintf("unknown error code %d", errCode)
	}
}
