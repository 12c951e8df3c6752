package builder

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/achilleasa/go-accel/accel"
)

// A queue backed by host memory that executes the copy kernel's contract
// directly, so copy pipelines can be verified end to end without a device.
type memQueue struct {
	t   *testing.T
	mem []byte
}

func newMemQueue(t *testing.T, size int) *memQueue {
	return &memQueue{t: t, mem: make([]byte, size)}
}

func (q *memQueue) Write(addr uint64, data []byte) error {
	copy(q.mem[addr:], data)
	return nil
}

func (q *memQueue) Barrier() error {
	return nil
}

func (q *memQueue) Dispatch(kernel KernelType, args []byte, groupsX, groupsY, groupsZ uint32) error {
	if kernel != KernelCopy {
		q.t.Fatalf("memory queue only implements the copy kernel; got %s", kernel)
	}
	if groupsX == 0 || groupsY == 0 || groupsZ == 0 {
		q.t.Fatalf("copy dispatched with an empty workgroup count (%d, %d, %d)", groupsX, groupsY, groupsZ)
	}

	srcAddr := binary.LittleEndian.Uint64(args[0:])
	dstAddr := binary.LittleEndian.Uint64(args[8:])
	mode := CopyMode(binary.LittleEndian.Uint32(args[16:]))

	switch mode {
	case CopyModeClone:
		header, err := accel.DecodeHeader(q.mem[srcAddr:])
		if err != nil {
			q.t.Fatal(err)
		}
		copy(q.mem[dstAddr:], q.mem[srcAddr:srcAddr+header.CompactedSize])

	case CopyModeSerialize:
		header, err := accel.DecodeHeader(q.mem[srcAddr:])
		if err != nil {
			q.t.Fatal(err)
		}
		// The identity block at the blob start is host-written; the kernel
		// fills in the remaining wrapper fields and the payload.
		binary.LittleEndian.PutUint64(q.mem[dstAddr+32:], header.SerializationSize)
		binary.LittleEndian.PutUint64(q.mem[dstAddr+40:], header.CompactedSize)
		binary.LittleEndian.PutUint64(q.mem[dstAddr+48:], uint64(header.InstanceCount))
		for i, groups := range header.CopyDispatchSize {
			binary.LittleEndian.PutUint32(q.mem[dstAddr+accel.SerializationDispatchOffset+uint64(i)*4:], groups)
		}
		payloadOffset := accel.SerializedPayloadOffset(uint64(header.InstanceCount))
		copy(q.mem[dstAddr+payloadOffset:], q.mem[srcAddr:srcAddr+header.CompactedSize])

	case CopyModeDeserialize:
		wrapper, err := accel.DecodeSerializationHeader(q.mem[srcAddr:])
		if err != nil {
			q.t.Fatal(err)
		}
		payloadOffset := accel.SerializedPayloadOffset(wrapper.InstanceCount)
		copy(q.mem[dstAddr:], q.mem[srcAddr+payloadOffset:srcAddr+payloadOffset+wrapper.CompactedSize])

	default:
		q.t.Fatalf("unsupported copy mode %d", mode)
	}

	return nil
}

func (q *memQueue) DispatchIndirect(kernel KernelType, args []byte, argAddr uint64) error {
	return q.Dispatch(
		kernel,
		args,
		binary.LittleEndian.Uint32(q.mem[argAddr:]),
		binary.LittleEndian.Uint32(q.mem[argAddr+4:]),
		binary.LittleEndian.Uint32(q.mem[argAddr+8:]),
	)
}

// Place a plausible built structure into queue memory and return its size.
func placeStructure(q *memQueue, addr uint64, totalSize uint64, instanceCount uint32) {
	header := accel.Header{
		BVHOffset:         192,
		GeometryCount:     1,
		InstanceCount:     instanceCount,
		CompactedSize:     totalSize,
		SerializationSize: accel.SerializedSize(totalSize, uint64(instanceCount)),
		Size:              totalSize,
		CopyDispatchSize:  accel.CopyDispatchGroups(totalSize),
	}
	copy(q.mem[addr:], header.Encode())

	// Recognizable payload pattern past the header
	for i := uint64(accel.HeaderSize); i < totalSize; i++ {
		q.mem[addr+i] = byte(i*31 + 7)
	}
}

func TestCopyClone(t *testing.T) {
	queue := newMemQueue(t, 1<<16)
	e := NewEngine(queue, nil)

	src, dst := uint64(0x1000), uint64(0x2000)
	placeStructure(queue, src, 652, 0)

	if err := e.Copy(src, dst, CopyModeClone); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(queue.mem[dst:dst+652], queue.mem[src:src+652]) {
		t.Fatal("cloned structure does not match the source")
	}
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	queue := newMemQueue(t, 1<<16)
	e := NewEngine(queue, nil)

	src, blob, dst := uint64(0x1000), uint64(0x2000), uint64(0x4000)
	totalSize := uint64(652)
	placeStructure(queue, src, totalSize, 0)

	if err := e.Copy(src, blob, CopyModeSerialize); err != nil {
		t.Fatal(err)
	}

	identity := accel.Identity()
	if !bytes.Equal(queue.mem[blob:blob+32], identity[:]) {
		t.Fatal("serialized blob does not start with the engine identity block")
	}

	wrapper, err := accel.DecodeSerializationHeader(queue.mem[blob:])
	if err != nil {
		t.Fatal(err)
	}
	if wrapper.CompactedSize != totalSize {
		t.Fatalf("expected compacted size %d in the wrapper; got %d", totalSize, wrapper.CompactedSize)
	}
	if wrapper.SerializationSize != accel.SerializedSize(totalSize, 0) {
		t.Fatalf("expected serialization size %d in the wrapper; got %d", accel.SerializedSize(totalSize, 0), wrapper.SerializationSize)
	}
	if wrapper.CopyDispatchSize != accel.CopyDispatchGroups(totalSize) {
		t.Fatalf("expected deserialize dispatch %v in the wrapper; got %v", accel.CopyDispatchGroups(totalSize), wrapper.CopyDispatchSize)
	}
	if !accel.IsCompatible([32]byte(queue.mem[blob : blob+32])) {
		t.Fatal("expected the produced blob to pass the compatibility check")
	}

	if err := e.Copy(blob, dst, CopyModeDeserialize); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(queue.mem[dst:dst+totalSize], queue.mem[src:src+totalSize]) {
		t.Fatal("deserialized structure does not match the original")
	}
}

func TestSerializeTopLevelPayloadOffset(t *testing.T) {
	queue := newMemQueue(t, 1<<16)
	e := NewEngine(queue, nil)

	// 8 instance addresses push the payload past the first 128-byte block.
	src, blob, dst := uint64(0x1000), uint64(0x2000), uint64(0x4000)
	totalSize := uint64(1024)
	placeStructure(queue, src, totalSize, 8)

	if err := e.Copy(src, blob, CopyModeSerialize); err != nil {
		t.Fatal(err)
	}

	if expOffset := uint64(256); accel.SerializedPayloadOffset(8) != expOffset {
		t.Fatalf("expected payload offset %d for 8 instances; got %d", expOffset, accel.SerializedPayloadOffset(8))
	}
	if !bytes.Equal(queue.mem[blob+256:blob+256+totalSize], queue.mem[src:src+totalSize]) {
		t.Fatal("serialized payload not found at the instance-adjusted offset")
	}

	if err := e.Copy(blob, dst, CopyModeDeserialize); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(queue.mem[dst:dst+totalSize], queue.mem[src:src+totalSize]) {
		t.Fatal("deserialized top-level structure does not match the original")
	}
}

func TestCopyFeedbackAddresses(t *testing.T) {
	src, dst := uint64(0x1000), uint64(0x2000)

	type spec struct {
		mode    CopyMode
		expAddr uint64
	}
	specs := []spec{
		{CopyModeClone, src + accel.HeaderCopyDispatchOffset},
		{CopyModeSerialize, src + accel.HeaderCopyDispatchOffset},
		{CopyModeDeserialize, src + accel.SerializationDispatchOffset},
	}

	for idx, s := range specs {
		queue := &recordingQueue{}
		e := NewEngine(queue, nil)

		if err := e.Copy(src, dst, s.mode); err != nil {
			t.Fatalf("[spec %d] %v", idx, err)
		}

		ops := queue.dispatches(KernelCopy)
		if len(ops) != 1 || ops[0].kind != "indirect" {
			t.Fatalf("[spec %d] expected one indirect copy dispatch; got %+v", idx, ops)
		}
		if ops[0].addr != s.expAddr {
			t.Fatalf("[spec %d] expected feedback address %#x; got %#x", idx, s.expAddr, ops[0].addr)
		}
		if got := binary.LittleEndian.Uint64(ops[0].args[0:]); got != src {
			t.Fatalf("[spec %d] expected source %#x in the arg block; got %#x", idx, src, got)
		}
		if got := CopyMode(binary.LittleEndian.Uint32(ops[0].args[16:])); got != s.mode {
			t.Fatalf("[spec %d] expected mode %s in the arg block; got %s", idx, s.mode, got)
		}

		if s.mode == CopyModeSerialize {
			// The identity block write must be recorded before the dispatch.
			if queue.ops[0].kind != "write" || queue.ops[0].addr != dst+accel.SerializationIdentityOffset || len(queue.ops[0].data) != 32 {
				t.Fatalf("[spec %d] expected a 32-byte identity write at the blob start first; got %+v", idx, queue.ops[0])
			}
		}
	}
}

func TestInspectBlob(t *testing.T) {
	queue := newMemQueue(t, 1<<16)
	e := NewEngine(queue, nil)

	src, blob := uint64(0x1000), uint64(0x2000)
	placeStructure(queue, src, 652, 0)
	if err := e.Copy(src, blob, CopyModeSerialize); err != nil {
		t.Fatal(err)
	}

	wrapper, err := InspectBlob(queue.mem[blob : blob+accel.SerializedSize(652, 0)])
	if err != nil {
		t.Fatal(err)
	}
	if wrapper.CompactedSize != 652 {
		t.Fatalf("expected compacted size 652; got %d", wrapper.CompactedSize)
	}

	if _, err = InspectBlob(queue.mem[blob : blob+32]); !errors.Is(err, ErrBadBlob) {
		t.Fatalf("expected ErrBadBlob for a short prefix; got %v", err)
	}
	if _, err = InspectBlob(queue.mem[blob : blob+128]); !errors.Is(err, ErrBadBlob) {
		t.Fatalf("expected ErrBadBlob for a truncated blob; got %v", err)
	}

	corrupt := append([]byte(nil), queue.mem[blob:blob+accel.SerializedSize(652, 0)]...)
	binary.LittleEndian.PutUint64(corrupt[32:], 99999)
	if _, err = InspectBlob(corrupt); !errors.Is(err, ErrBadBlob) {
		t.Fatalf("expected ErrBadBlob for disagreeing wrapper sizes; got %v", err)
	}
}

func TestInitNull(t *testing.T) {
	queue := newMemQueue(t, 1<<12)
	e := NewEngine(queue, nil)

	dst, err := BindAccelStruct(fakeBuffer{addr: 0x100, size: accel.NullStructureSize}, 0, accel.NullStructureSize, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err = e.InitNull(dst); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(queue.mem[0x100:0x100+accel.NullStructureSize], accel.EncodeNullStructure()) {
		t.Fatal("null structure bytes do not match the canonical encoding")
	}

	small, err := BindAccelStruct(fakeBuffer{addr: 0x800, size: 64}, 0, 64, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err = e.InitNull(small); err != ErrDestinationTooSmall {
		t.Fatalf("expected ErrDestinationTooSmall; got %v", err)
	}
}
