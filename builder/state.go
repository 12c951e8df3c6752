package builder

import "github.com/achilleasa/go-accel/accel"

// Per-structure state for one build call. Instances live only across the
// call's recorded dispatches and are discarded once the final header write is
// recorded; a rebuild recomputes everything.
type buildState struct {
	req      *BuildRequest
	kind     accel.GeometryKind
	layout   accel.Layout
	scratch  accel.ScratchLayout
	strategy accel.BuildStrategy

	dstAddr     uint64
	scratchAddr uint64

	// Running node counts. nodeCount starts as the leaf count and is
	// reassigned to the internal count once radix-tree topology exists.
	leafNodeCount     uint32
	internalNodeCount uint32
	nodeCount         uint32

	// Device address of the first IR box record; fixed when the last leaf
	// is emitted, since the leaf record size depends on the geometry kind.
	irBoxAddr uint64

	// Which ping-pong key buffer holds the live sorted key set.
	keyCursor int
}

func (st *buildState) headerAddr() uint64 {
	return st.scratchAddr + st.scratch.Header.Offset
}

func (st *buildState) keysAddr(index int) uint64 {
	return st.scratchAddr + st.scratch.Keys[index].Offset
}

func (st *buildState) internalAddr() uint64 {
	return st.scratchAddr + st.scratch.Internal.Offset
}

func (st *buildState) irLeafAddr() uint64 {
	return st.scratchAddr + st.scratch.IR.Offset
}
