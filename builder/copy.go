package builder

import (
	"fmt"

	"github.com/achilleasa/go-accel/accel"
)

// CopyMode selects the behavior of the copy pipeline.
type CopyMode uint8

const (
	// CopyModeClone copies a structure into another buffer, honoring the
	// source header's compacted size.
	CopyModeClone CopyMode = iota

	// CopyModeSerialize writes a serialized blob: the compatibility
	// identity block, the serialization wrapper, then the payload.
	CopyModeSerialize

	// CopyModeDeserialize copies the payload of a serialized blob into a
	// fresh structure buffer. The identity block is not re-validated here;
	// callers check compatibility first, and deserializing an incompatible
	// blob is undefined.
	CopyModeDeserialize
)

// Implements Stringer.
func (m CopyMode) String() string {
	switch m {
	case CopyModeClone:
		return "copy"
	case CopyModeSerialize:
		return "serialize"
	case CopyModeDeserialize:
		return "deserialize"
	}
	panic(fmt.Sprintf("accel builder: unsupported copy mode: %d", uint8(m)))
}

type copyKernelArgs struct {
	SrcAddr uint64
	DstAddr uint64
	Mode    uint32
}

// Copy records a copy pipeline dispatch between two device addresses. Every
// mode runs the same kernel with a (src, dst, mode) argument block; the only
// orchestration-level difference is where the indirect dispatch triple lives,
// so no mode ever needs a host read-back of the source size.
func (e *Engine) Copy(srcAddr, dstAddr uint64, mode CopyMode) error {
	var feedbackAddr uint64
	switch mode {
	case CopyModeClone, CopyModeSerialize:
		feedbackAddr = srcAddr + accel.HeaderCopyDispatchOffset
	case CopyModeDeserialize:
		feedbackAddr = srcAddr + accel.SerializationDispatchOffset
	default:
		panic(fmt.Sprintf("accel builder: unsupported copy mode: %d", uint8(mode)))
	}

	if mode == CopyModeSerialize {
		identity := accel.Identity()
		if err := e.queue.Write(dstAddr+accel.SerializationIdentityOffset, identity[:]); err != nil {
			return fmt.Errorf("accel builder: %s: %w", mode, err)
		}
	}

	args := copyKernelArgs{SrcAddr: srcAddr, DstAddr: dstAddr, Mode: uint32(mode)}
	if err := e.queue.DispatchIndirect(KernelCopy, encodeArgs(&args), feedbackAddr); err != nil {
		return fmt.Errorf("accel builder: %s: %w", mode, err)
	}
	return e.queue.Barrier()
}

// InspectBlob parses a serialized blob prefix and checks the wrapper's
// internal consistency. It does not check engine compatibility; callers do
// that separately against the blob's identity block.
func InspectBlob(data []byte) (accel.SerializationHeader, error) {
	header, err := accel.DecodeSerializationHeader(data)
	if err != nil {
		return header, fmt.Errorf("%w: %v", ErrBadBlob, err)
	}
	if header.SerializationSize != accel.SerializedSize(header.CompactedSize, header.InstanceCount) {
		return header, fmt.Errorf("%w: wrapper sizes disagree", ErrBadBlob)
	}
	if uint64(len(data)) < header.SerializationSize {
		return header, fmt.Errorf("%w: truncated to %d of %d bytes", ErrBadBlob, len(data), header.SerializationSize)
	}
	return header, nil
}

// InitNull writes the canonical null structure into the destination. A bound
// but deliberately empty structure slot then always traverses to zero hits.
func (e *Engine) InitNull(dst *AccelStruct) error {
	blob := accel.EncodeNullStructure()
	if dst.Size() < uint64(len(blob)) {
		return ErrDestinationTooSmall
	}
	if err := e.queue.Write(dst.Address(), blob); err != nil {
		return fmt.Errorf("accel builder: null init: %w", err)
	}
	return e.queue.Barrier()
}
