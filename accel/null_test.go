package accel

import (
	"math"
	"testing"
)

func TestEncodeNullStructure(t *testing.T) {
	blob := EncodeNullStructure()
	if len(blob) != NullStructureSize {
		t.Fatalf("expected null structure to be %d bytes; got %d", NullStructureSize, len(blob))
	}

	header, err := DecodeHeader(blob)
	if err != nil {
		t.Fatal(err)
	}

	if header.BVHOffset%NodeAlignment != 0 {
		t.Fatalf("bvh offset %d is not %d-byte aligned", header.BVHOffset, NodeAlignment)
	}
	if uint64(header.BVHOffset)+Box32NodeSize > NullStructureSize {
		t.Fatalf("root node at offset %d does not fit in %d bytes", header.BVHOffset, NullStructureSize)
	}
	if header.CompactedSize != NullStructureSize || header.Size != NullStructureSize {
		t.Fatalf("expected compacted/payload size %d; got %d/%d", NullStructureSize, header.CompactedSize, header.Size)
	}
	if header.SerializationSize != SerializedSize(NullStructureSize, 0) {
		t.Fatalf("expected serialization size %d; got %d", SerializedSize(NullStructureSize, 0), header.SerializationSize)
	}
	if header.CopyDispatchSize != CopyDispatchGroups(NullStructureSize) {
		t.Fatalf("expected copy dispatch %v; got %v", CopyDispatchGroups(NullStructureSize), header.CopyDispatchSize)
	}

	root, err := DecodeBox32Node(blob[header.BVHOffset:])
	if err != nil {
		t.Fatal(err)
	}

	// Every child slot invalid and every child box NaN: all rays miss.
	for slot := 0; slot < 4; slot++ {
		if root.Children[slot] != InvalidChild {
			t.Fatalf("expected child slot %d to be invalid; got %#x", slot, root.Children[slot])
		}
		for _, bound := range root.Bounds[slot] {
			for axis := 0; axis < 3; axis++ {
				if !math.IsNaN(float64(bound[axis])) {
					t.Fatalf("expected NaN bound in slot %d axis %d; got %f", slot, axis, bound[axis])
				}
			}
		}
	}
}

func TestNullStructureMissesAllRays(t *testing.T) {
	blob := EncodeNullStructure()
	header, err := DecodeHeader(blob)
	if err != nil {
		t.Fatal(err)
	}
	root, err := DecodeBox32Node(blob[header.BVHOffset:])
	if err != nil {
		t.Fatal(err)
	}

	// Slab test against each child box. The NaN bounds propagate through
	// min/max into the interval, so tmin <= tmax can never hold.
	origins := [][3]float64{{0, 0, 0}, {-10, 5, 3}, {1e6, -1e6, 0.5}}
	dirs := [][3]float64{{1, 0, 0}, {0.5, 0.5, 0.5}, {-1, 2, -3}}

	for _, origin := range origins {
		for _, dir := range dirs {
			for slot := 0; slot < 4; slot++ {
				tmin, tmax := 0.0, math.MaxFloat64
				for axis := 0; axis < 3; axis++ {
					if dir[axis] == 0 {
						continue
					}
					t0 := (float64(root.Bounds[slot][0][axis]) - origin[axis]) / dir[axis]
					t1 := (float64(root.Bounds[slot][1][axis]) - origin[axis]) / dir[axis]
					tmin = math.Max(tmin, math.Min(t0, t1))
					tmax = math.Min(tmax, math.Max(t0, t1))
				}
				if tmin <= tmax {
					t.Fatalf("ray origin %v dir %v unexpectedly hit child slot %d", origin, dir, slot)
				}
			}
		}
	}
}
