package builder

import "fmt"

// KernelType identifies one of the opaque compute kernels the engine
// dispatches. Each kernel consumes a fixed-layout push-constant block and is
// otherwise a black box; swapping kernel implementations must not require
// engine changes as long as the block layouts and written-record layouts are
// preserved.
type KernelType uint8

// The list of kernels that implement the build and copy pipelines.
const (
	// leaf generation kernels, one per geometry kind
	KernelLeafTriangles KernelType = iota
	KernelLeafAABBs
	KernelLeafInstances
	// key generation
	KernelMortonKeys
	// key/value pair sort
	KernelSortHistogram
	KernelSortScatter
	// internal-node construction
	KernelLBVHMain
	KernelLBVHIR
	KernelPLOCMerge
	KernelPLOCMergeExtended
	// final encode
	KernelEncode
	// copy/serialize/deserialize
	KernelCopy
	//
	NumKernels
)

// Implements Stringer; maps kernel type to the entry point name in the
// kernel library.
func (kt KernelType) String() string {
	switch kt {
	case KernelLeafTriangles:
		return "emitTriangleLeaves"
	case KernelLeafAABBs:
		return "emitAabbLeaves"
	case KernelLeafInstances:
		return "emitInstanceLeaves"
	case KernelMortonKeys:
		return "generateMortonKeys"
	case KernelSortHistogram:
		return "sortHistogram"
	case KernelSortScatter:
		return "sortScatter"
	case KernelLBVHMain:
		return "lbvhBuildInternal"
	case KernelLBVHIR:
		return "lbvhConvertInternal"
	case KernelPLOCMerge:
		return "plocMerge"
	case KernelPLOCMergeExtended:
		return "plocMergeExtended"
	case KernelEncode:
		return "encodeNodes"
	case KernelCopy:
		return "copyStructure"
	default:
		panic(fmt.Sprintf("accel builder: unsupported kernel type: %d", kt))
	}
}
