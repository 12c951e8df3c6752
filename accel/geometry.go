package accel

import "fmt"

// GeometryKind enumerates the primitive classes an acceleration structure
// can be built over. A structure holds geometries of a single kind.
type GeometryKind uint8

const (
	Triangles GeometryKind = iota
	AABBs
	Instances
)

// Implements Stringer.
func (k GeometryKind) String() string {
	switch k {
	case Triangles:
		return "triangles"
	case AABBs:
		return "aabbs"
	case Instances:
		return "instances"
	}
	panic(fmt.Sprintf("accel: unsupported geometry kind: %d", uint8(k)))
}

// LeafSize returns the size of the packed leaf node record emitted by the
// encode phase for primitives of this kind.
func (k GeometryKind) LeafSize() uint32 {
	switch k {
	case Triangles:
		return TriangleNodeSize
	case AABBs:
		return AABBNodeSize
	case Instances:
		return InstanceNodeSize
	}
	panic(fmt.Sprintf("accel: unsupported geometry kind: %d", uint8(k)))
}

// IRLeafSize returns the size of the intermediate leaf record written by the
// leaf-generation phase for primitives of this kind.
func (k GeometryKind) IRLeafSize() uint32 {
	switch k {
	case Triangles:
		return IRTriangleSize
	case AABBs:
		return IRAABBSize
	case Instances:
		return IRInstanceSize
	}
	panic(fmt.Sprintf("accel: unsupported geometry kind: %d", uint8(k)))
}

// Per-geometry behavior flags. These are copied verbatim into the
// geometry metadata table and consumed by traversal, not by the builder.
type GeometryFlags uint32

const (
	GeometryOpaque GeometryFlags = 1 << iota
	GeometryNoDuplicateAnyHit
)

// Structure-level build preference flags.
type BuildFlags uint32

const (
	AllowUpdate BuildFlags = 1 << iota
	AllowCompaction
	PreferFastTrace
	PreferFastBuild
	LowMemory
)

// Triangle geometry source data. Addresses are device virtual addresses
// into caller-owned buffers; the builder never dereferences them on the host.
type TriangleData struct {
	VertexAddr   uint64
	VertexStride uint32

	// IndexAddr is zero for non-indexed geometry.
	IndexAddr   uint64
	IndexStride uint32

	// TransformAddr is zero when the geometry carries no transform.
	TransformAddr uint64
}

// Axis-aligned bounding box geometry source data.
type AABBData struct {
	Addr   uint64
	Stride uint32
}

// Instance geometry source data. When ArrayOfPointers is set the array at
// Addr holds 8-byte addresses of instance records instead of the records
// themselves.
type InstanceData struct {
	Addr            uint64
	ArrayOfPointers bool
}

// Geometry describes one geometry record inside a structure. Only the
// payload matching Kind is consulted; the other payloads are ignored.
type Geometry struct {
	Kind  GeometryKind
	Flags GeometryFlags

	Triangles TriangleData
	AABBs     AABBData
	Instances InstanceData
}

// BuildRange selects the primitives a build consumes from one geometry.
type BuildRange struct {
	PrimitiveCount  uint32
	PrimitiveOffset uint32
	FirstVertex     uint32
	TransformOffset uint32
}
