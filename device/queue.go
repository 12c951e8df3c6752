package device

import (
	"encoding/binary"
	"fmt"

	"github.com/achilleasa/go-accel/builder"
	"github.com/achilleasa/gopencl/v1.2/cl"
)

// Workgroup sizes baked into the kernel library. Dispatch group counts are
// converted to NDRange global sizes using this table.
var kernelWorkgroupSize = [builder.NumKernels]uint64{
	builder.KernelLeafTriangles:     64,
	builder.KernelLeafAABBs:         64,
	builder.KernelLeafInstances:     64,
	builder.KernelMortonKeys:        64,
	builder.KernelSortHistogram:     256,
	builder.KernelSortScatter:       256,
	builder.KernelLBVHMain:          64,
	builder.KernelLBVHIR:            64,
	builder.KernelPLOCMerge:         1024,
	builder.KernelPLOCMergeExtended: 1024,
	builder.KernelEncode:            64,
	builder.KernelCopy:              64,
}

// Queue submits build engine work to an initialized opencl device. It
// implements the engine's dispatch contract on top of the device's in-order
// command queue: dispatches within a phase may overlap only as far as the
// in-order queue allows, and Barrier drains the queue.
type Queue struct {
	dev *Device

	// Kernel handles, created on first use.
	kernels [builder.NumKernels]*Kernel
}

// NewQueue wraps an initialized device.
func NewQueue(dev *Device) *Queue {
	return &Queue{dev: dev}
}

// Release any kernel handles created by this queue.
func (q *Queue) Release() {
	for i, k := range q.kernels {
		if k != nil {
			k.Release()
			q.kernels[i] = nil
		}
	}
}

func (q *Queue) kernel(kt builder.KernelType) (*Kernel, error) {
	if q.kernels[kt] == nil {
		k, err := q.dev.kernel(kt.String())
		if err != nil {
			return nil, err
		}
		q.kernels[kt] = k
	}
	return q.kernels[kt], nil
}

// Dispatch enqueues groupsX*groupsY*groupsZ workgroups of a build kernel.
func (q *Queue) Dispatch(kt builder.KernelType, args []byte, groupsX, groupsY, groupsZ uint32) error {
	if groupsX == 0 || groupsY == 0 || groupsZ == 0 {
		return nil
	}

	k, err := q.kernel(kt)
	if err != nil {
		return err
	}
	if err = k.SetArgs(args); err != nil {
		return err
	}

	local := kernelWorkgroupSize[kt]
	return k.Exec(uint64(groupsX)*local, uint64(groupsY), uint64(groupsZ), local)
}

// DispatchIndirect reads the workgroup count triple at groupsAddr and
// dispatches with it. Opencl has no device-side dispatch parameters, so the
// triple is read back to the host; the blocking read also drains every
// enqueued command that produces it.
func (q *Queue) DispatchIndirect(kt builder.KernelType, args []byte, groupsAddr uint64) error {
	var triple [12]byte
	if err := q.dev.readData(groupsAddr, triple[:]); err != nil {
		return err
	}

	return q.Dispatch(
		kt,
		args,
		binary.LittleEndian.Uint32(triple[0:4]),
		binary.LittleEndian.Uint32(triple[4:8]),
		binary.LittleEndian.Uint32(triple[8:12]),
	)
}

// Write copies host data into device memory at an engine address.
func (q *Queue) Write(addr uint64, data []byte) error {
	return q.dev.writeData(addr, data)
}

// Barrier waits for all enqueued work to complete.
func (q *Queue) Barrier() error {
	errCode := cl.Finish(q.dev.cmdQueue)
	if errCode != cl.SUCCESS {
		return fmt.Errorf("device (%s): queue drain failed (error: %s; code %d)", q.dev.Name, ErrorName(errCode), errCode)
	}
	return nil
}
