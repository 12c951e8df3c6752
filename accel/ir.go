package accel

import (
	"encoding/binary"
	"math"

	"github.com/achilleasa/go-accel/types"
)

// Sizes of the intermediate (scratch-only) node records. IR records are wider
// than their packed counterparts so build kernels never need to repack data
// mid-build; the encode phase discards them.
const (
	IRHeaderSize   = 96
	IRBoxSize      = 128
	IRTriangleSize = 64
	IRAABBSize     = 64
	IRInstanceSize = 128

	// Byte offset of IRHeader.DispatchSize inside the encoded header. The
	// encode phase dispatches indirectly off this triple.
	IRDispatchFeedbackOffset = 32

	// Byte offset and size of the SyncData block inside the encoded header.
	IRSyncDataOffset = 48
	SyncDataSize     = 32
)

// TaskIndexInvalid is the "not yet established" sentinel for every SyncData
// counter. Stale counters from a previous build must never be observable, so
// the block is rewritten with sentinels before each dispatch that uses it.
const TaskIndexInvalid uint32 = 0xffffffff

// SyncData is the device-side protocol block used by the clustering kernel to
// order its workgroups within a single dispatch. The kernel advances through
// phases: workgroup k may enter phase n only once CurrentPhaseEndCounter
// records that workgroup k-1 published its phase n-1 boundary. The host only
// ever resets the block; all transitions happen on the device.
type SyncData struct {
	TaskCounts               [2]uint32
	TaskStartedCounter       uint32
	TaskDoneCounter          uint32
	CurrentPhaseStartCounter uint32
	CurrentPhaseEndCounter   uint32
	CurrentPhaseIndex        uint32
	NextPhaseExitFlag        uint32
}

// ResetSyncData returns the canonical pre-dispatch block: task counts at the
// invalid sentinel, every counter zeroed.
func ResetSyncData() SyncData {
	return SyncData{
		TaskCounts: [2]uint32{TaskIndexInvalid, TaskIndexInvalid},
	}
}

// Encode the block into its device layout.
func (s *SyncData) Encode() []byte {
	out := make([]byte, SyncDataSize)
	binary.LittleEndian.PutUint32(out[0:], s.TaskCounts[0])
	binary.LittleEndian.PutUint32(out[4:], s.TaskCounts[1])
	binary.LittleEndian.PutUint32(out[8:], s.TaskStartedCounter)
	binary.LittleEndian.PutUint32(out[12:], s.TaskDoneCounter)
	binary.LittleEndian.PutUint32(out[16:], s.CurrentPhaseStartCounter)
	binary.LittleEndian.PutUint32(out[20:], s.CurrentPhaseEndCounter)
	binary.LittleEndian.PutUint32(out[24:], s.CurrentPhaseIndex)
	binary.LittleEndian.PutUint32(out[28:], s.NextPhaseExitFlag)
	return out
}

// IRHeader is the transient build header at the start of the scratch arena.
// Build kernels accumulate running bounds and node counts into it with
// atomics and publish the encode dispatch size through DispatchSize.
//
// Encoded layout (little endian):
//
//	0   MinBounds    3 x f32
//	12  MaxBounds    3 x f32
//	24  ActiveLeaves u32
//	28  IRBoxOffset  u32
//	32  DispatchSize 3 x u32
//	44  reserved
//	48  Sync         SyncDataSize bytes, pad to IRHeaderSize
type IRHeader struct {
	MinBounds    types.Vec3
	MaxBounds    types.Vec3
	ActiveLeaves uint32

	// Scratch byte offset where IR box records begin.
	IRBoxOffset uint32

	DispatchSize [3]uint32
	Sync         SyncData
}

// NewIRHeader returns the canonical phase-one header: bounds at the +inf/-inf
// sentinels so the first atomic min/max from any leaf tightens them, dispatch
// feedback at one workgroup, sync block reset.
func NewIRHeader() IRHeader {
	inf := float32(math.Inf(1))
	return IRHeader{
		MinBounds:    types.XYZ(inf, inf, inf),
		MaxBounds:    types.XYZ(-inf, -inf, -inf),
		DispatchSize: [3]uint32{1, 1, 1},
		Sync:         ResetSyncData(),
	}
}

// Encode the header into its device layout.
func (h *IRHeader) Encode() []byte {
	out := make([]byte, IRHeaderSize)
	for i := 0; i < 3; i++ {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(h.MinBounds[i]))
		binary.LittleEndian.PutUint32(out[12+i*4:], math.Float32bits(h.MaxBounds[i]))
	}
	binary.LittleEndian.PutUint32(out[24:], h.ActiveLeaves)
	binary.LittleEndian.PutUint32(out[28:], h.IRBoxOffset)
	for i, groups := range h.DispatchSize {
		binary.LittleEndian.PutUint32(out[32+i*4:], groups)
	}
	copy(out[IRSyncDataOffset:], h.Sync.Encode())
	return out
}
