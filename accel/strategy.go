package accel

import "fmt"

// StrategyKind selects the parallel tree-construction algorithm.
type StrategyKind uint8

const (
	// LBVH builds the tree in one radix-tree pass over Morton-sorted
	// leaves; cheap to build, lower traversal quality.
	LBVH StrategyKind = iota

	// PLOC iteratively merges nearest-neighbor clusters; more expensive
	// to build, better traversal quality.
	PLOC
)

// Implements Stringer.
func (k StrategyKind) String() string {
	switch k {
	case LBVH:
		return "lbvh"
	case PLOC:
		return "ploc"
	}
	panic(fmt.Sprintf("accel: unsupported strategy kind: %d", uint8(k)))
}

// BuildStrategy is the per-structure algorithm choice for one build call.
type BuildStrategy struct {
	Kind StrategyKind

	// ExtendedHeuristic widens the clustering search radius. The wider
	// radius needs an 8-entry base-4 local stack, so it is only free to
	// enable below 4^8 leaves.
	ExtendedHeuristic bool
}

const extendedHeuristicMaxLeaves = 1 << 16 // 4^8

// SelectStrategy picks the construction algorithm for a structure. Total and
// stateless: the choice is derived from the four inputs alone.
//
// Tiny structures and top-level structures are not worth the clustering
// machinery; callers that declare neither a fast-build preference nor update
// support are willing to trade build time for quality and get PLOC.
func SelectStrategy(leafCount uint32, topLevel bool, flags BuildFlags) BuildStrategy {
	strategy := BuildStrategy{
		Kind:              LBVH,
		ExtendedHeuristic: leafCount < extendedHeuristicMaxLeaves,
	}

	switch {
	case leafCount <= 4:
	case topLevel:
	case flags&PreferFastBuild == 0 && flags&AllowUpdate == 0:
		strategy.Kind = PLOC
	}

	return strategy
}
