package accel

import (
	"math"

	"github.com/achilleasa/go-accel/types"
)

// NullStructureSize is the buffer size the canonical null structure occupies:
// a header, the parent link table for one box node, and the box node itself.
const NullStructureSize = 320

// EncodeNullStructure returns the canonical minimum-size structure used to
// satisfy reads against an unbound structure slot. Its single root node has
// every child at the InvalidChild sentinel and every child AABB at NaN, so
// any slab test against it misses and traversal yields zero hits.
func EncodeNullStructure() []byte {
	bvhSize := uint64(Box32NodeSize)
	bvhOffset := uint32(alignUp64(HeaderSize+bvhSize/NodeAlignment*parentLinkEntrySize, NodeAlignment))

	header := Header{
		BVHOffset:         bvhOffset,
		CompactedSize:     NullStructureSize,
		SerializationSize: SerializedSize(NullStructureSize, 0),
		Size:              NullStructureSize,
		CopyDispatchSize:  CopyDispatchGroups(NullStructureSize),
	}

	nan := float32(math.NaN())
	nanBounds := [2]types.Vec3{
		types.XYZ(nan, nan, nan),
		types.XYZ(nan, nan, nan),
	}
	root := Box32Node{
		Children: [4]uint32{InvalidChild, InvalidChild, InvalidChild, InvalidChild},
		Bounds:   [4][2]types.Vec3{nanBounds, nanBounds, nanBounds, nanBounds},
	}

	out := make([]byte, NullStructureSize)
	copy(out, header.Encode())
	copy(out[bvhOffset:], root.Encode())
	return out
}
