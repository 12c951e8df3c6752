package builder

import "github.com/achilleasa/go-accel/accel"

// Sorter is the external key/value sort collaborator. Implementations must
// be deterministic: repeated calls with identical inputs report identical
// memory requirements, and Sort always reports which ping-pong buffer ended
// up holding the sorted pairs.
type Sorter interface {
	// MemoryRequirements returns the sort's memory needs for count
	// key/value pairs.
	MemoryRequirements(count uint32) accel.SortMemory

	// Sort records device work ordering count pairs between the two
	// ping-pong buffers, using internalAddr for transient scratch, and
	// returns the index (0 or 1) of the buffer holding the result.
	Sort(q Queue, keys [2]uint64, internalAddr uint64, count uint32) (int, error)
}

const (
	radixSortWorkgroupSize = 256
	radixSortBitsPerPass   = 8
	radixSortPasses        = 32 / radixSortBitsPerPass
	radixSortBins          = 1 << radixSortBitsPerPass

	keyValuePairSize = 8
)

// RadixSorter is the default Sorter: a least-significant-digit radix sort
// over 8-bit digits, one histogram and one scatter dispatch per pass,
// ping-ponging between the two key buffers.
type RadixSorter struct{}

type sortArgs struct {
	SrcAddr     uint64
	DstAddr     uint64
	ScratchAddr uint64
	Count       uint32
	BitShift    uint32
}

// MemoryRequirements reports one pair buffer per ping-pong side and one
// per-workgroup histogram row plus a global row for the internal scratch.
func (s RadixSorter) MemoryRequirements(count uint32) accel.SortMemory {
	if count == 0 {
		return accel.SortMemory{}
	}
	groups := divRoundUp(count, radixSortWorkgroupSize)
	return accel.SortMemory{
		KeyValueSize: uint64(count) * keyValuePairSize,
		InternalSize: uint64(groups+1) * radixSortBins * 4,
	}
}

// Sort records the radix passes and returns the final cursor. With fewer
// than two pairs the input buffer is already sorted and no work is recorded.
func (s RadixSorter) Sort(q Queue, keys [2]uint64, internalAddr uint64, count uint32) (int, error) {
	cursor := 0
	if count < 2 {
		return cursor, nil
	}

	groups := divRoundUp(count, radixSortWorkgroupSize)
	for pass := 0; pass < radixSortPasses; pass++ {
		args := encodeArgs(&sortArgs{
			SrcAddr:     keys[cursor],
			DstAddr:     keys[1-cursor],
			ScratchAddr: internalAddr,
			Count:       count,
			BitShift:    uint32(pass * radixSortBitsPerPass),
		})

		if err := q.Dispatch(KernelSortHistogram, args, groups, 1, 1); err != nil {
			return cursor, err
		}
		if err := q.Barrier(); err != nil {
			return cursor, err
		}
		if err := q.Dispatch(KernelSortScatter, args, groups, 1, 1); err != nil {
			return cursor, err
		}
		cursor = 1 - cursor

		if pass != radixSortPasses-1 {
			if err := q.Barrier(); err != nil {
				return cursor, err
			}
		}
	}

	return cursor, nil
}
