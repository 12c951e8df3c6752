package accel

import (
	"encoding/binary"
	"fmt"
)

// On-device header and serialization wrapper sizes. The header occupies the
// first HeaderSize bytes of every acceleration structure buffer; the parent
// link table and the node payload follow it.
const (
	HeaderSize = 128

	// One 4-byte parent back-pointer per 64 bytes of BVH payload.
	parentLinkEntrySize = 4

	// Per-geometry metadata entry: type, flags, primitive count.
	GeometryInfoSize = 12

	// Byte offset of Header.CopyDispatchSize inside the encoded header.
	// Copy operations dispatch indirectly off this triple.
	HeaderCopyDispatchOffset = 44

	// The copy kernel moves copyUnitSize bytes per invocation and runs
	// copyWorkgroupSize invocations per workgroup.
	copyUnitSize      = 16
	copyWorkgroupSize = 64
)

// Header is the persistent on-device metadata record at offset 0 of the
// final acceleration structure buffer.
//
// Encoded layout (little endian):
//
//	0   BVHOffset         u32
//	4   GeometryCount     u32
//	8   InstanceOffset    u32
//	12  InstanceCount     u32
//	16  CompactedSize     u64
//	24  SerializationSize u64
//	32  Size              u64
//	40  BuildFlags        u32
//	44  CopyDispatchSize  3 x u32
//	56  reserved up to HeaderSize
type Header struct {
	// Byte offset of the root node inside the structure buffer.
	BVHOffset     uint32
	GeometryCount uint32

	// Instance leaf array location; meaningful for top-level structures only.
	InstanceOffset uint32
	InstanceCount  uint32

	CompactedSize     uint64
	SerializationSize uint64

	// Payload size excluding the serialization wrapper.
	Size uint64

	BuildFlags uint32

	// Precomputed workgroup counts for copy operations, so a copy never
	// needs a host read-back to size its dispatch.
	CopyDispatchSize [3]uint32
}

// Encode the header into its device layout.
func (h *Header) Encode() []byte {
	out := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(out[0:], h.BVHOffset)
	binary.LittleEndian.PutUint32(out[4:], h.GeometryCount)
	binary.LittleEndian.PutUint32(out[8:], h.InstanceOffset)
	binary.LittleEndian.PutUint32(out[12:], h.InstanceCount)
	binary.LittleEndian.PutUint64(out[16:], h.CompactedSize)
	binary.LittleEndian.PutUint64(out[24:], h.SerializationSize)
	binary.LittleEndian.PutUint64(out[32:], h.Size)
	binary.LittleEndian.PutUint32(out[40:], h.BuildFlags)
	for i, groups := range h.CopyDispatchSize {
		binary.LittleEndian.PutUint32(out[44+i*4:], groups)
	}
	return out
}

// Decode a header from its device layout.
func DecodeHeader(data []byte) (Header, error) {
	var h Header
	if len(data) < HeaderSize {
		return h, fmt.Errorf("accel: header requires %d bytes; got %d", HeaderSize, len(data))
	}
	h.BVHOffset = binary.LittleEndian.Uint32(data[0:])
	h.GeometryCount = binary.LittleEndian.Uint32(data[4:])
	h.InstanceOffset = binary.LittleEndian.Uint32(data[8:])
	h.InstanceCount = binary.LittleEndian.Uint32(data[12:])
	h.CompactedSize = binary.LittleEndian.Uint64(data[16:])
	h.SerializationSize = binary.LittleEndian.Uint64(data[24:])
	h.Size = binary.LittleEndian.Uint64(data[32:])
	h.BuildFlags = binary.LittleEndian.Uint32(data[40:])
	for i := range h.CopyDispatchSize {
		h.CopyDispatchSize[i] = binary.LittleEndian.Uint32(data[44+i*4:])
	}
	return h, nil
}

// GeometryInfo is one entry of the metadata table trailing the BVH payload.
type GeometryInfo struct {
	Kind           GeometryKind
	Flags          GeometryFlags
	PrimitiveCount uint32
}

// Encode the entry into its device layout.
func (g *GeometryInfo) Encode() []byte {
	out := make([]byte, GeometryInfoSize)
	binary.LittleEndian.PutUint32(out[0:], uint32(g.Kind))
	binary.LittleEndian.PutUint32(out[4:], uint32(g.Flags))
	binary.LittleEndian.PutUint32(out[8:], g.PrimitiveCount)
	return out
}

// CopyDispatchGroups returns the workgroup-count triple required to copy
// size bytes with the copy kernel.
func CopyDispatchGroups(size uint64) [3]uint32 {
	groups := divRoundUp64(size, copyUnitSize*copyWorkgroupSize)
	if groups == 0 {
		groups = 1
	}
	return [3]uint32{uint32(groups), 1, 1}
}

// Serialization wrapper layout. The wrapper precedes the structure payload
// in a serialized blob; the referenced bottom-level structure addresses
// (8 bytes each, top-level blobs only) directly follow the wrapper header
// and the whole prefix is padded to a 128-byte boundary.
const (
	SerializationHeaderSize = 72

	// Byte offsets of the compatibility identity block and the
	// deserialize dispatch triple inside the wrapper header.
	SerializationIdentityOffset = 0
	SerializationDispatchOffset = 56

	serializationAlignment = 128
)

// SerializationHeader is the wrapper record at offset 0 of a serialized blob.
//
// Encoded layout (little endian):
//
//	0   DriverUUID        16 bytes
//	16  CompatUUID        16 bytes
//	32  SerializationSize u64
//	40  CompactedSize     u64
//	48  InstanceCount     u64
//	56  CopyDispatchSize  3 x u32, pad to SerializationHeaderSize
type SerializationHeader struct {
	DriverUUID [16]byte
	CompatUUID [16]byte

	SerializationSize uint64
	CompactedSize     uint64
	InstanceCount     uint64

	// Workgroup counts for the deserializing copy, written at serialization
	// time so deserialization needs no host read-back either.
	CopyDispatchSize [3]uint32
}

// Encode the wrapper header into its blob layout.
func (h *SerializationHeader) Encode() []byte {
	out := make([]byte, SerializationHeaderSize)
	copy(out[0:16], h.DriverUUID[:])
	copy(out[16:32], h.CompatUUID[:])
	binary.LittleEndian.PutUint64(out[32:], h.SerializationSize)
	binary.LittleEndian.PutUint64(out[40:], h.CompactedSize)
	binary.LittleEndian.PutUint64(out[48:], h.InstanceCount)
	for i, groups := range h.CopyDispatchSize {
		binary.LittleEndian.PutUint32(out[56+i*4:], groups)
	}
	return out
}

// Decode a wrapper header from a serialized blob.
func DecodeSerializationHeader(data []byte) (SerializationHeader, error) {
	var h SerializationHeader
	if len(data) < SerializationHeaderSize {
		return h, fmt.Errorf("accel: serialization header requires %d bytes; got %d", SerializationHeaderSize, len(data))
	}
	copy(h.DriverUUID[:], data[0:16])
	copy(h.CompatUUID[:], data[16:32])
	h.SerializationSize = binary.LittleEndian.Uint64(data[32:])
	h.CompactedSize = binary.LittleEndian.Uint64(data[40:])
	h.InstanceCount = binary.LittleEndian.Uint64(data[48:])
	for i := range h.CopyDispatchSize {
		h.CopyDispatchSize[i] = binary.LittleEndian.Uint32(data[56+i*4:])
	}
	return h, nil
}

// SerializedSize returns the total blob size produced by serializing a
// structure with the given compacted size and instance count.
func SerializedSize(compactedSize, instanceCount uint64) uint64 {
	return compactedSize + alignUp64(SerializationHeaderSize+8*instanceCount, serializationAlignment)
}

// SerializedPayloadOffset returns the byte offset of the structure payload
// inside a serialized blob.
func SerializedPayloadOffset(instanceCount uint64) uint64 {
	return alignUp64(SerializationHeaderSize+8*instanceCount, serializationAlignment)
}

func alignUp64(v, alignment uint64) uint64 {
	return (v + alignment - 1) &^ (alignment - 1)
}

func divRoundUp64(v, d uint64) uint64 {
	return (v + d - 1) / d
}

func divRoundUp32(v, d uint32) uint32 {
	return (v + d - 1) / d
}
