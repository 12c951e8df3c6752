package device

import (
	"fmt"
	"unsafe"

	"github.com/achilleasa/gopencl/v1.2/cl"
)

// A wrapper around opencl kernelHandles. Every kernel in the build library
// uses the same two-argument signature: the device memory pool followed by a
// packed by-value argument block.
type Kernel struct {
	device       *Device
	kernelHandle cl.Kernel
	name         string

	// kernelHandle workgroup sizes
	globalWorkSizes [3]uint64
	localWorkSizes  [3]uint64
}

// Free any allocated resources used by this kernel.
func (k *Kernel) Release() {
	if k.kernelHandle != nil {
		cl.ReleaseKernel(k.kernelHandle)
		k.kernelHandle = nil
	}
}

// Bind the pool and the packed argument block to the kernelHandle.
func (k *Kernel) SetArgs(argBlock []byte) error {
	errCode := cl.SetKernelArg(k.kernelHandle, 0, 8, unsafe.Pointer(&k.device.pool))
	if errCode != cl.SUCCESS {
		return fmt.Errorf("device (%s): could not bind pool to kernel %s (error: %s; code %d)", k.device.Name, k.name, ErrorName(errCode), errCode)
	}

	if len(argBlock) > 0 {
		errCode = cl.SetKernelArg(k.kernelHandle, 1, uint64(len(argBlock)), unsafe.Pointer(&argBlock[0]))
		if errCode != cl.SUCCESS {
			return fmt.Errorf("device (%s): could not bind %d byte arg block to kernel %s (error: %s; code %d)", k.device.Name, len(argBlock), k.name, ErrorName(errCode), errCode)
		}
	}

	return nil
}

// Enqueue the kernelHandle over a 3D NDRange. The call does not wait for
// completion; the in-order command queue sequences kernels and the owning
// queue's barrier drains them.
func (k *Kernel) Exec(globalX, globalY, globalZ, localX uint64) error {
	k.globalWorkSizes[0], k.globalWorkSizes[1], k.globalWorkSizes[2] = globalX, globalY, globalZ
	k.localWorkSizes[0], k.localWorkSizes[1], k.localWorkSizes[2] = localX, 1, 1

	var localSizePtr *uint64
	if localX != 0 {
		localSizePtr = (*uint64)(unsafe.Pointer(&k.localWorkSizes[0]))
	}

	errCode := cl.EnqueueNDRangeKernel(
		k.device.cmdQueue,
		k.kernelHandle,
		3,
		nil,
		(*uint64)(unsafe.Pointer(&k.globalWorkSizes[0])),
		localSizePtr,
		0,
		nil,
		nil,
	)
	if errCode != cl.SUCCESS {
		return fmt.Errorf("device (%s): unable to execute kernel %s (error: %s; code %d)", k.device.Name, k.name, ErrorName(errCode), errCode)
	}

	return nil
}
