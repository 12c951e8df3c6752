package accel

import "testing"

func TestPlanLayoutTriangles(t *testing.T) {
	layout, _ := PlanLayout(Triangles, 1, []uint32{3}, SortMemory{})

	if layout.LeafCount != 3 {
		t.Fatalf("expected leaf count 3; got %d", layout.LeafCount)
	}
	if layout.InternalCount != 2 {
		t.Fatalf("expected internal count 2; got %d", layout.InternalCount)
	}

	// 3 triangle leaves + 2 box nodes
	if expSize := uint64(3*TriangleNodeSize + 2*Box32NodeSize); layout.BVHSize != expSize {
		t.Fatalf("expected bvh size %d; got %d", expSize, layout.BVHSize)
	}

	// header (128) + parent links (448/64*4 = 28) rounded up to 64 bytes
	if layout.BVHOffset != 192 {
		t.Fatalf("expected bvh offset 192; got %d", layout.BVHOffset)
	}
	if layout.GeometryInfoOffset != 640 {
		t.Fatalf("expected geometry info offset 640; got %d", layout.GeometryInfoOffset)
	}
	if layout.TotalSize != 652 {
		t.Fatalf("expected total size 652; got %d", layout.TotalSize)
	}
}

func TestPlanLayoutSingleLeafAllocatesRoot(t *testing.T) {
	for _, primCounts := range [][]uint32{{}, {0}, {1}} {
		layout, _ := PlanLayout(AABBs, uint32(len(primCounts)), primCounts, SortMemory{})
		if layout.InternalCount != 1 {
			t.Fatalf("expected an internal root for prim counts %v; got %d internal nodes", primCounts, layout.InternalCount)
		}
		if layout.TotalSize < uint64(layout.BVHOffset)+Box32NodeSize {
			t.Fatalf("total size %d cannot hold the root node at offset %d", layout.TotalSize, layout.BVHOffset)
		}
	}
}

func TestPlanLayoutAlignment(t *testing.T) {
	sortMem := SortMemory{KeyValueSize: 1000, InternalSize: 777}

	for _, primCount := range []uint32{1, 7, 63, 64, 65, 4096, 100000} {
		layout, scratch := PlanLayout(Triangles, 1, []uint32{primCount}, sortMem)

		if layout.BVHOffset%NodeAlignment != 0 {
			t.Fatalf("[%d prims] bvh offset %d is not %d-byte aligned", primCount, layout.BVHOffset, NodeAlignment)
		}

		for idx, region := range []Region{scratch.Header, scratch.Keys[0], scratch.Keys[1], scratch.Internal, scratch.IR} {
			if region.Offset%NodeAlignment != 0 {
				t.Fatalf("[%d prims] scratch region %d offset %d is not %d-byte aligned", primCount, idx, region.Offset, NodeAlignment)
			}
			if region.End() > scratch.TotalSize {
				t.Fatalf("[%d prims] scratch region %d ends at %d past total size %d", primCount, idx, region.End(), scratch.TotalSize)
			}
		}
	}
}

func TestPlanLayoutScratchRegionsAreDisjoint(t *testing.T) {
	sortMem := SortMemory{KeyValueSize: 8 * 1000, InternalSize: 4096}
	_, scratch := PlanLayout(Triangles, 1, []uint32{1000}, sortMem)

	regions := []Region{scratch.Header, scratch.Keys[0], scratch.Keys[1], scratch.Internal, scratch.IR}
	for i := 0; i < len(regions); i++ {
		for j := i + 1; j < len(regions); j++ {
			if regions[i].Overlaps(regions[j]) {
				t.Fatalf("scratch regions %d and %d overlap: %+v vs %+v", i, j, regions[i], regions[j])
			}
		}
	}
}

func TestPlanLayoutInternalRegionAliasing(t *testing.T) {
	// The aliased internal region must fit whichever of its three tenants is
	// largest. Pick a sort-internal size that dwarfs the strategy scratch and
	// a leaf count where the strategy scratch dwarfs the sort.
	_, scratch := PlanLayout(Triangles, 1, []uint32{8}, SortMemory{KeyValueSize: 64, InternalSize: 1 << 20})
	if scratch.Internal.Size != 1<<20 {
		t.Fatalf("expected internal region sized by the sort scratch (%d); got %d", 1<<20, scratch.Internal.Size)
	}

	leafCount := uint32(100000)
	internalCount := leafCount - 1
	_, scratch = PlanLayout(Triangles, 1, []uint32{leafCount}, SortMemory{KeyValueSize: 8 * uint64(leafCount)})
	if expSize := uint64(internalCount) * lbvhNodeInfoSize; scratch.Internal.Size != expSize {
		t.Fatalf("expected internal region sized by the radix-tree bookkeeping (%d); got %d", expSize, scratch.Internal.Size)
	}
}

func TestPlanLayoutIRBoxOffset(t *testing.T) {
	_, scratch := PlanLayout(Instances, 1, []uint32{10}, SortMemory{KeyValueSize: 80})

	if expOffset := scratch.IR.Offset + 10*IRInstanceSize; scratch.IRBoxOffset != expOffset {
		t.Fatalf("expected IR box records at %d; got %d", expOffset, scratch.IRBoxOffset)
	}
	if expSize := uint64(10*IRInstanceSize + 9*IRBoxSize); scratch.IR.Size != expSize {
		t.Fatalf("expected IR region size %d; got %d", expSize, scratch.IR.Size)
	}
}

func TestPlanLayoutIsPure(t *testing.T) {
	sortMem := SortMemory{KeyValueSize: 12345, InternalSize: 678}
	firstLayout, firstScratch := PlanLayout(Triangles, 3, []uint32{10, 20, 30}, sortMem)

	for attempt := 0; attempt < 10; attempt++ {
		layout, scratch := PlanLayout(Triangles, 3, []uint32{10, 20, 30}, sortMem)
		if layout != firstLayout {
			t.Fatalf("[attempt %d] layout not reproducible: %+v vs %+v", attempt, layout, firstLayout)
		}
		if scratch != firstScratch {
			t.Fatalf("[attempt %d] scratch layout not reproducible: %+v vs %+v", attempt, scratch, firstScratch)
		}
	}
}

func TestPlanLayoutMultipleGeometries(t *testing.T) {
	layout, _ := PlanLayout(Triangles, 3, []uint32{10, 0, 20}, SortMemory{})

	if layout.LeafCount != 30 {
		t.Fatalf("expected leaf count 30; got %d", layout.LeafCount)
	}
	if expOffset := uint64(layout.BVHOffset) + layout.BVHSize; layout.GeometryInfoOffset != expOffset {
		t.Fatalf("expected geometry info offset %d; got %d", expOffset, layout.GeometryInfoOffset)
	}
	if expTotal := layout.GeometryInfoOffset + 3*GeometryInfoSize; layout.TotalSize != expTotal {
		t.Fatalf("expected total size %d; got %d", expTotal, layout.TotalSize)
	}
}

func TestRegionOverlaps(t *testing.T) {
	type spec struct {
		a, b Region
		exp  bool
	}
	specs := []spec{
		{Region{0, 64}, Region{64, 64}, false},
		{Region{0, 64}, Region{63, 1}, true},
		{Region{0, 0}, Region{0, 64}, false},
		{Region{128, 64}, Region{0, 256}, true},
	}
	for idx, s := range specs {
		if got := s.a.Overlaps(s.b); got != s.exp {
			t.Fatalf("[spec %d] expected overlap %t; got %t", idx, s.exp, got)
		}
		if got := s.b.Overlaps(s.a); got != s.exp {
			t.Fatalf("[spec %d] expected symmetric overlap %t; got %t", idx, s.exp, got)
		}
	}
}
