package accel

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/achilleasa/go-accel/types"
)

// Sizes of the packed node records produced by the encode phase. Traversal
// addresses nodes in 64-byte units, so every record is a multiple of 64.
const (
	Box32NodeSize    = 128
	Box16NodeSize    = 64
	TriangleNodeSize = 64
	AABBNodeSize     = 64
	InstanceNodeSize = 128

	// Node records must start at 64-byte boundaries.
	NodeAlignment = 64
)

// InvalidChild marks an absent child slot in a box node.
const InvalidChild uint32 = 0xffffffff

// Box32Node is a 4-wide internal node with full-precision child bounds.
// Device layout: 4 child ids, then per-child min/max bounds, padded to
// Box32NodeSize.
type Box32Node struct {
	Children [4]uint32
	Bounds   [4][2]types.Vec3
}

// Encode the node into its device layout.
func (n *Box32Node) Encode() []byte {
	out := make([]byte, Box32NodeSize)
	for i, child := range n.Children {
		binary.LittleEndian.PutUint32(out[i*4:], child)
	}
	offset := 16
	for i := 0; i < 4; i++ {
		for j := 0; j < 2; j++ {
			for c := 0; c < 3; c++ {
				binary.LittleEndian.PutUint32(out[offset:], math.Float32bits(n.Bounds[i][j][c]))
				offset += 4
			}
		}
	}
	return out
}

// Decode a box node from its device layout.
func DecodeBox32Node(data []byte) (Box32Node, error) {
	var n Box32Node
	if len(data) < Box32NodeSize {
		return n, fmt.Errorf("accel: box32 node requires %d bytes; got %d", Box32NodeSize, len(data))
	}
	for i := range n.Children {
		n.Children[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	offset := 16
	for i := 0; i < 4; i++ {
		for j := 0; j < 2; j++ {
			for c := 0; c < 3; c++ {
				n.Bounds[i][j][c] = math.Float32frombits(binary.LittleEndian.Uint32(data[offset:]))
				offset += 4
			}
		}
	}
	return n, nil
}

// Box16Node is the compressed internal node variant: child bounds are stored
// as 16-bit quantized extents relative to the node origin. The format is part
// of the on-device contract but the builder never emits it.
type Box16Node struct {
	Children [4]uint32
	Origin   types.Vec3
	Bounds   [4][6]uint16
}

// TriangleNode is the packed triangle leaf: three vertices plus the
// geometry/primitive ids needed to locate shading data.
type TriangleNode struct {
	Coords      [3]types.Vec3
	GeometryID  uint32
	PrimitiveID uint32
}

// AABBNode is the packed procedural-geometry leaf.
type AABBNode struct {
	Bounds      [2]types.Vec3
	GeometryID  uint32
	PrimitiveID uint32
}

// InstanceNode is the packed top-level leaf: a world-to-object transform
// plus the address of the referenced bottom-level structure.
type InstanceNode struct {
	Transform     [12]float32
	StructAddr    uint64
	InstanceID    uint32
	Mask          uint32
	SBTOffset     uint32
	InstanceFlags uint32
}
