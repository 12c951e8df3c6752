package accel

// Workgroup sizing assumptions baked into the scratch layout. These mirror
// the kernel contract and must match the kernel library in use.
const (
	// PLOCWorkgroupSize is the workgroup width of the clustering kernel;
	// its dispatch and its partition scratch are both sized by it.
	PLOCWorkgroupSize = 1024

	plocPartitionInfoSize = 32
	lbvhNodeInfoSize      = 16
)

// Region is a byte range inside a larger allocation.
type Region struct {
	Offset uint64
	Size   uint64
}

// End returns the first byte past the region.
func (r Region) End() uint64 {
	return r.Offset + r.Size
}

// Overlaps reports whether two regions share any byte.
func (r Region) Overlaps(other Region) bool {
	return r.Size > 0 && other.Size > 0 && r.Offset < other.End() && other.Offset < r.End()
}

// SortMemory describes the memory requirements reported by the external
// key/value sort routine for a given pair count.
type SortMemory struct {
	// Size of each of the two ping-pong key/value buffers.
	KeyValueSize uint64

	// Transient sort-internal scratch; a candidate for the aliased
	// internal region.
	InternalSize uint64
}

// Layout describes the final acceleration structure buffer for one build.
type Layout struct {
	// Byte offset of the root node; always 64-byte aligned.
	BVHOffset uint32

	// Total buffer bytes the structure occupies, geometry metadata included.
	TotalSize uint64

	LeafCount     uint32
	InternalCount uint32

	// Node payload bytes starting at BVHOffset.
	BVHSize uint64

	// Byte offset of the per-geometry metadata table.
	GeometryInfoOffset uint64
}

// ScratchLayout subdivides the transient build arena. Regions are assigned
// strictly in declaration order; each region's size is fixed before the next
// offset is chosen.
//
// The Internal region is deliberately aliased: sort-internal scratch, the
// clustering partition prefix-sum scratch and the radix-tree bookkeeping
// records are mutually exclusive in time for a given structure, so they share
// the byte range and it is sized to the largest of the three. Regions whose
// lifetimes overlap (header, keys, IR) never alias.
type ScratchLayout struct {
	Header   Region
	Keys     [2]Region
	Internal Region
	IR       Region

	// Scratch byte offset where IR box records begin once every leaf has
	// been emitted (leaves first, boxes after).
	IRBoxOffset uint64

	TotalSize uint64
}

// PlanLayout maps a geometry description to the final-buffer and scratch
// layouts its build will use. Pure: calling it twice with identical inputs
// yields identical results, so a size query and the build it precedes always
// agree.
//
// primCounts holds the maximum primitive count of each geometry; sortMem is
// the sort collaborator's memory requirement for the summed count.
func PlanLayout(kind GeometryKind, geometryCount uint32, primCounts []uint32, sortMem SortMemory) (Layout, ScratchLayout) {
	var leafCount uint32
	for _, count := range primCounts {
		leafCount += count
	}

	// A single-leaf structure still allocates one internal node as root.
	internalCount := leafCount
	if internalCount < 2 {
		internalCount = 2
	}
	internalCount--

	var layout Layout
	layout.LeafCount = leafCount
	layout.InternalCount = internalCount
	layout.BVHSize = uint64(kind.LeafSize())*uint64(leafCount) + Box32NodeSize*uint64(internalCount)

	parentLinkBytes := layout.BVHSize / NodeAlignment * parentLinkEntrySize
	layout.BVHOffset = uint32(alignUp64(HeaderSize+parentLinkBytes, NodeAlignment))
	layout.GeometryInfoOffset = uint64(layout.BVHOffset) + layout.BVHSize
	layout.TotalSize = layout.GeometryInfoOffset + GeometryInfoSize*uint64(geometryCount)

	var scratch ScratchLayout
	cursor := uint64(0)
	place := func(size uint64) Region {
		region := Region{Offset: cursor, Size: size}
		cursor = alignUp64(region.End(), NodeAlignment)
		return region
	}

	scratch.Header = place(IRHeaderSize)
	scratch.Keys[0] = place(sortMem.KeyValueSize)
	scratch.Keys[1] = place(sortMem.KeyValueSize)
	scratch.Internal = place(maxUint64(
		sortMem.InternalSize,
		plocScratchSize(leafCount),
		lbvhScratchSize(internalCount),
	))
	irLeafBytes := uint64(kind.IRLeafSize()) * uint64(leafCount)
	scratch.IR = place(irLeafBytes + IRBoxSize*uint64(internalCount))
	scratch.IRBoxOffset = scratch.IR.Offset + irLeafBytes
	scratch.TotalSize = cursor

	return layout, scratch
}

// Partition prefix-sum scratch used by the clustering strategy.
func plocScratchSize(leafCount uint32) uint64 {
	return uint64(divRoundUp32(leafCount, PLOCWorkgroupSize)) * plocPartitionInfoSize
}

// Per-node bookkeeping used by the radix-tree strategy.
func lbvhScratchSize(internalCount uint32) uint64 {
	return uint64(internalCount) * lbvhNodeInfoSize
}

func maxUint64(values ...uint64) uint64 {
	var out uint64
	for _, v := range values {
		if v > out {
			out = v
		}
	}
	return out
}
