package builder

import "fmt"

// AccelStruct is a view over a region of a caller-owned buffer. It owns none
// of the backing memory; destroying the handle releases only host-side
// bookkeeping and the backing buffer outlives it.
type AccelStruct struct {
	buffer Buffer
	offset uint64
	size   uint64
}

// BindAccelStruct wraps a buffer region as an acceleration structure handle.
// When capturedAddr is non-zero the bind fails unless the buffer region is
// already resident at exactly that device address.
func BindAccelStruct(buffer Buffer, offset, size uint64, capturedAddr uint64) (*AccelStruct, error) {
	if offset+size > buffer.Size() {
		return nil, fmt.Errorf("accel builder: region [%d, %d) exceeds buffer size %d", offset, offset+size, buffer.Size())
	}
	if capturedAddr != 0 && buffer.Address()+offset != capturedAddr {
		return nil, ErrAddressMismatch
	}
	return &AccelStruct{buffer: buffer, offset: offset, size: size}, nil
}

// Address returns the structure's device virtual address.
func (a *AccelStruct) Address() uint64 {
	return a.buffer.Address() + a.offset
}

// Size returns the bound region size in bytes.
func (a *AccelStruct) Size() uint64 {
	return a.size
}
