package builder

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Buffer is a caller-owned device allocation. The engine only ever computes
// offsets into buffers; it never allocates or frees them.
type Buffer interface {
	// Address returns the device virtual address of the buffer's first byte.
	Address() uint64

	// Size returns the allocation size in bytes.
	Size() uint64
}

// Queue records device work for the engine. Recording never blocks the host;
// the backend decides when the work actually executes. One queue must not be
// shared by concurrent build calls targeting overlapping buffers.
type Queue interface {
	// Dispatch records one kernel execution with the given push-constant
	// block and workgroup counts.
	Dispatch(kernel KernelType, args []byte, groupsX, groupsY, groupsZ uint32) error

	// DispatchIndirect records a kernel execution whose workgroup-count
	// triple is read from the 12 bytes at argAddr when the dispatch runs,
	// not when it is recorded.
	DispatchIndirect(kernel KernelType, args []byte, argAddr uint64) error

	// Write copies host bytes into device memory at addr, ordered before
	// any subsequently recorded dispatch.
	Write(addr uint64, data []byte) error

	// Barrier makes every write recorded so far visible to all
	// subsequently recorded work, for both shader reads and shader writes.
	Barrier() error
}

// Marshal a fixed-layout push-constant struct into the byte block a kernel
// consumes. Blocks are packed little endian with no implicit padding, so arg
// structs must order 8-byte fields first.
func encodeArgs(v interface{}) []byte {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
		panic(fmt.Sprintf("accel builder: unencodable push-constant block: %v", err))
	}
	return buf.Bytes()
}

func divRoundUp(v, d uint32) uint32 {
	return (v + d - 1) / d
}
