package builder

import (
	"fmt"

	"github.com/achilleasa/go-accel/accel"
	"github.com/achilleasa/go-accel/log"
)

// Workgroup widths of the per-primitive kernels.
const (
	leafWorkgroupSize   = 64
	mortonWorkgroupSize = 64
	lbvhWorkgroupSize   = 64
)

// BuildRequest describes one acceleration structure of a batched build call.
// Dst and Scratch are caller-owned; the scratch region belongs exclusively to
// this call until its completion is observed.
type BuildRequest struct {
	// Top-level structures hold instance geometry; bottom-level structures
	// hold triangles or AABBs.
	TopLevel bool

	Flags      accel.BuildFlags
	Geometries []accel.Geometry
	Ranges     []accel.BuildRange

	Dst     *AccelStruct
	Scratch Buffer
}

// SizeInfo is the response to a size query.
type SizeInfo struct {
	AccelerationStructureSize uint64
	BuildScratchSize          uint64
	UpdateScratchSize         uint64
}

// Engine orchestrates acceleration structure builds and copies over an
// injected dispatch queue and sort collaborator. The engine performs no
// internal locking: callers serialize access to shared destination buffers
// themselves.
type Engine struct {
	logger log.Logger
	queue  Queue
	sorter Sorter
}

// Create a build engine on top of the given queue. A nil sorter selects the
// default radix sorter.
func NewEngine(queue Queue, sorter Sorter) *Engine {
	if sorter == nil {
		sorter = RadixSorter{}
	}
	return &Engine{
		logger: log.New("accelBuilder"),
		queue:  queue,
		sorter: sorter,
	}
}

// SizeQuery returns the buffer sizes a build for the described geometry would
// use. No device work; deterministic, and guaranteed to match the layout a
// subsequent build for the same inputs computes.
func (e *Engine) SizeQuery(kind accel.GeometryKind, geometryCount uint32, maxPrimCounts []uint32) SizeInfo {
	var leafCount uint32
	for _, count := range maxPrimCounts {
		leafCount += count
	}

	layout, scratch := accel.PlanLayout(kind, geometryCount, maxPrimCounts, e.sorter.MemoryRequirements(leafCount))

	// Updates are full rebuilds, so they need the full build scratch.
	return SizeInfo{
		AccelerationStructureSize: layout.TotalSize,
		BuildScratchSize:          scratch.TotalSize,
		UpdateScratchSize:         scratch.TotalSize,
	}
}

// Build records the device work for a batch of structures. Phases run
// batched: phase i is recorded for every structure before phase i+1 for any,
// with a full memory barrier at each phase boundary. All planning and
// validation completes before the first queue call, so a failing request
// aborts the whole call with no device work submitted.
func (e *Engine) Build(requests []BuildRequest) error {
	if len(requests) == 0 {
		return nil
	}

	states := make([]*buildState, len(requests))
	for i := range requests {
		st, err := e.planState(&requests[i])
		if err != nil {
			return fmt.Errorf("accel builder: request %d: %w", i, err)
		}
		states[i] = st
	}

	phases := []struct {
		name string
		emit func([]*buildState) error
	}{
		{"initHeaders", e.emitHeaderInit},
		{"emitLeaves", e.emitLeaves},
		{"mortonKeys", e.emitMortonKeys},
		{"sortKeys", e.emitSort},
		{"resetSync", e.emitSyncReset},
		{"buildInternal", e.emitInternalNodes},
		{"collapseTopology", e.emitLBVHConvert},
		{"encode", e.emitEncode},
		{"finalize", e.emitFinalize},
	}

	for _, phase := range phases {
		if err := phase.emit(states); err != nil {
			return fmt.Errorf("accel builder: phase %s: %w", phase.name, err)
		}
		if err := e.queue.Barrier(); err != nil {
			return fmt.Errorf("accel builder: phase %s: %w", phase.name, err)
		}
	}

	return nil
}

// Validate one request and compute its layouts and strategy.
func (e *Engine) planState(req *BuildRequest) (*buildState, error) {
	if len(req.Geometries) == 0 {
		return nil, ErrNoGeometries
	}
	if len(req.Ranges) != len(req.Geometries) {
		return nil, ErrRangeMismatch
	}

	kind := req.Geometries[0].Kind
	for i := range req.Geometries {
		if req.Geometries[i].Kind != kind {
			return nil, ErrMixedGeometry
		}
	}
	if req.TopLevel != (kind == accel.Instances) {
		return nil, ErrKindForLevel
	}

	primCounts := make([]uint32, len(req.Ranges))
	var leafCount uint32
	for i := range req.Ranges {
		primCounts[i] = req.Ranges[i].PrimitiveCount
		leafCount += primCounts[i]
	}

	layout, scratch := accel.PlanLayout(kind, uint32(len(req.Geometries)), primCounts, e.sorter.MemoryRequirements(leafCount))
	if req.Dst.Size() < layout.TotalSize {
		return nil, ErrDestinationTooSmall
	}
	if req.Scratch.Size() < scratch.TotalSize {
		return nil, ErrScratchTooSmall
	}

	strategy := accel.SelectStrategy(layout.LeafCount, req.TopLevel, req.Flags)
	e.logger.Debugf(
		"planned %s build: %d leaves, %d internal nodes, strategy %s, size %d, scratch %d",
		kind, layout.LeafCount, layout.InternalCount, strategy.Kind, layout.TotalSize, scratch.TotalSize,
	)

	return &buildState{
		req:               req,
		kind:              kind,
		layout:            layout,
		scratch:           scratch,
		strategy:          strategy,
		dstAddr:           req.Dst.Address(),
		scratchAddr:       req.Scratch.Address(),
		internalNodeCount: layout.InternalCount,
	}, nil
}

// Phase 1: write the canonical IR header. Bounds start at the +inf/-inf
// sentinels so the first leaf's atomic min/max unconditionally tightens them.
func (e *Engine) emitHeaderInit(states []*buildState) error {
	for _, st := range states {
		header := accel.NewIRHeader()
		header.IRBoxOffset = uint32(st.scratch.IRBoxOffset)
		if err := e.queue.Write(st.headerAddr(), header.Encode()); err != nil {
			return err
		}
	}
	return nil
}

type leafArgs struct {
	HeaderAddr    uint64
	OutAddr       uint64
	DataAddr      uint64
	IndexAddr     uint64
	TransformAddr uint64

	PrimitiveCount  uint32
	PrimitiveOffset uint32
	FirstVertex     uint32
	DataStride      uint32
	IndexStride     uint32
	GeometryID      uint32
	GeometryFlags   uint32
	ArrayOfPointers uint32
}

// Phase 2: emit one IR leaf record per primitive, appended in geometry order.
// The IR box base is fixed here because the leaf record size depends on the
// geometry kind.
func (e *Engine) emitLeaves(states []*buildState) error {
	for _, st := range states {
		outAddr := st.irLeafAddr()
		leafSize := uint64(st.kind.IRLeafSize())

		for gi := range st.req.Geometries {
			geom := &st.req.Geometries[gi]
			rng := &st.req.Ranges[gi]

			args := leafArgs{
				HeaderAddr:      st.headerAddr(),
				OutAddr:         outAddr,
				PrimitiveCount:  rng.PrimitiveCount,
				PrimitiveOffset: rng.PrimitiveOffset,
				FirstVertex:     rng.FirstVertex,
				GeometryID:      uint32(gi),
				GeometryFlags:   uint32(geom.Flags),
			}

			switch geom.Kind {
			case accel.Triangles:
				args.DataAddr = geom.Triangles.VertexAddr
				args.DataStride = geom.Triangles.VertexStride
				args.IndexAddr = geom.Triangles.IndexAddr
				args.IndexStride = geom.Triangles.IndexStride
				args.TransformAddr = geom.Triangles.TransformAddr
			case accel.AABBs:
				args.DataAddr = geom.AABBs.Addr
				args.DataStride = geom.AABBs.Stride
			case accel.Instances:
				args.DataAddr = geom.Instances.Addr
				if geom.Instances.ArrayOfPointers {
					args.ArrayOfPointers = 1
				}
			default:
				panic(fmt.Sprintf("accel builder: unsupported geometry kind: %d", geom.Kind))
			}

			if rng.PrimitiveCount > 0 {
				groups := divRoundUp(rng.PrimitiveCount, leafWorkgroupSize)
				if err := e.queue.Dispatch(leafKernel(geom.Kind), encodeArgs(&args), groups, 1, 1); err != nil {
					return err
				}
			}

			outAddr += leafSize * uint64(rng.PrimitiveCount)
			st.leafNodeCount += rng.PrimitiveCount
		}

		st.nodeCount = st.leafNodeCount
		st.irBoxAddr = outAddr
	}
	return nil
}

func leafKernel(kind accel.GeometryKind) KernelType {
	switch kind {
	case accel.Triangles:
		return KernelLeafTriangles
	case accel.AABBs:
		return KernelLeafAABBs
	case accel.Instances:
		return KernelLeafInstances
	default:
		panic(fmt.Sprintf("accel builder: unsupported geometry kind: %d", kind))
	}
}

type mortonArgs struct {
	HeaderAddr uint64
	LeafAddr   uint64
	KeysAddr   uint64

	Count      uint32
	LeafStride uint32
}

// Phase 3: one spatial-locality key per leaf, paired with the leaf index,
// into ping-pong buffer zero.
func (e *Engine) emitMortonKeys(states []*buildState) error {
	for _, st := range states {
		if st.nodeCount == 0 {
			continue
		}

		args := mortonArgs{
			HeaderAddr: st.headerAddr(),
			LeafAddr:   st.irLeafAddr(),
			KeysAddr:   st.keysAddr(0),
			Count:      st.nodeCount,
			LeafStride: st.kind.IRLeafSize(),
		}
		groups := divRoundUp(st.nodeCount, mortonWorkgroupSize)
		if err := e.queue.Dispatch(KernelMortonKeys, encodeArgs(&args), groups, 1, 1); err != nil {
			return err
		}
		st.keyCursor = 0
	}
	return nil
}

// Phase 4: delegate to the sort collaborator and track which ping-pong buffer
// holds the result; the builder never assumes a fixed side.
func (e *Engine) emitSort(states []*buildState) error {
	for _, st := range states {
		cursor, err := e.sorter.Sort(
			e.queue,
			[2]uint64{st.keysAddr(0), st.keysAddr(1)},
			st.internalAddr(),
			st.nodeCount,
		)
		if err != nil {
			return err
		}
		st.keyCursor = cursor
	}
	return nil
}

// Phase 5 prologue: rewrite the sync block with its sentinels for every
// structure that will run the clustering kernel. Stale counters from a prior
// build must never leak into the workgroup-ordering protocol.
func (e *Engine) emitSyncReset(states []*buildState) error {
	for _, st := range states {
		if st.strategy.Kind != accel.PLOC {
			continue
		}
		reset := accel.ResetSyncData()
		if err := e.queue.Write(st.headerAddr()+accel.IRSyncDataOffset, reset.Encode()); err != nil {
			return err
		}
	}
	return nil
}

type lbvhMainArgs struct {
	HeaderAddr uint64
	KeysAddr   uint64
	BoxesAddr  uint64
	InfoAddr   uint64

	LeafCount uint32
}

type plocArgs struct {
	HeaderAddr    uint64
	BoxesAddr     uint64
	LeafAddr      uint64
	KeysAddr      uint64
	PartitionAddr uint64

	LeafCount  uint32
	LeafStride uint32
}

// Phase 5: internal-node construction. The radix-tree path derives every
// split from the sorted keys with no inter-node communication; the clustering
// path is a single dispatch whose workgroups self-order through the sync
// block.
func (e *Engine) emitInternalNodes(states []*buildState) error {
	for _, st := range states {
		switch st.strategy.Kind {
		case accel.LBVH:
			args := lbvhMainArgs{
				HeaderAddr: st.headerAddr(),
				KeysAddr:   st.keysAddr(st.keyCursor),
				BoxesAddr:  st.irBoxAddr,
				InfoAddr:   st.internalAddr(),
				LeafCount:  st.nodeCount,
			}
			groups := divRoundUp(st.internalNodeCount, lbvhWorkgroupSize)
			if err := e.queue.Dispatch(KernelLBVHMain, encodeArgs(&args), groups, 1, 1); err != nil {
				return err
			}
			// Topology exists; the leaf count no longer matters downstream.
			st.nodeCount = st.internalNodeCount

		case accel.PLOC:
			kernel := KernelPLOCMerge
			if st.strategy.ExtendedHeuristic {
				kernel = KernelPLOCMergeExtended
			}
			args := plocArgs{
				HeaderAddr:    st.headerAddr(),
				BoxesAddr:     st.irBoxAddr,
				LeafAddr:      st.irLeafAddr(),
				KeysAddr:      st.keysAddr(st.keyCursor),
				PartitionAddr: st.internalAddr(),
				LeafCount:     st.nodeCount,
				LeafStride:    st.kind.IRLeafSize(),
			}
			groups := divRoundUp(st.nodeCount, accel.PLOCWorkgroupSize)
			if groups == 0 {
				groups = 1
			}
			if err := e.queue.Dispatch(kernel, encodeArgs(&args), groups, 1, 1); err != nil {
				return err
			}

		default:
			panic(fmt.Sprintf("accel builder: unsupported strategy kind: %d", st.strategy.Kind))
		}
	}
	return nil
}

type lbvhConvertArgs struct {
	HeaderAddr uint64
	BoxesAddr  uint64
	InfoAddr   uint64
	LeafAddr   uint64

	InternalCount uint32
	LeafStride    uint32
}

// Phase 5b (radix-tree path only): convert topology records into IR boxes and
// recompute bounds bottom-up.
func (e *Engine) emitLBVHConvert(states []*buildState) error {
	for _, st := range states {
		if st.strategy.Kind != accel.LBVH {
			continue
		}

		args := lbvhConvertArgs{
			HeaderAddr:    st.headerAddr(),
			BoxesAddr:     st.irBoxAddr,
			InfoAddr:      st.internalAddr(),
			LeafAddr:      st.irLeafAddr(),
			InternalCount: st.internalNodeCount,
			LeafStride:    st.kind.IRLeafSize(),
		}
		groups := divRoundUp(st.internalNodeCount, lbvhWorkgroupSize)
		if err := e.queue.Dispatch(KernelLBVHIR, encodeArgs(&args), groups, 1, 1); err != nil {
			return err
		}
	}
	return nil
}

type encodePhaseArgs struct {
	HeaderAddr uint64
	LeafAddr   uint64
	BoxesAddr  uint64
	DstAddr    uint64

	BVHOffset  uint32
	LeafSize   uint32
	LeafStride uint32
	TopLevel   uint32
}

// Phase 6: convert the IR tree into the packed node format at the final
// buffer's BVH offset, writing parent back-links along the way. The final
// internal-node count is unknown to the host for the clustering path, so the
// dispatch is sized indirectly off the IR header's feedback triple.
func (e *Engine) emitEncode(states []*buildState) error {
	for _, st := range states {
		args := encodePhaseArgs{
			HeaderAddr: st.headerAddr(),
			LeafAddr:   st.irLeafAddr(),
			BoxesAddr:  st.irBoxAddr,
			DstAddr:    st.dstAddr,
			BVHOffset:  st.layout.BVHOffset,
			LeafSize:   st.kind.LeafSize(),
			LeafStride: st.kind.IRLeafSize(),
		}
		if st.req.TopLevel {
			args.TopLevel = 1
		}

		feedbackAddr := st.headerAddr() + accel.IRDispatchFeedbackOffset
		if err := e.queue.DispatchIndirect(KernelEncode, encodeArgs(&args), feedbackAddr); err != nil {
			return err
		}
	}
	return nil
}

// Phase 7: write the persistent header and the per-geometry metadata table.
// Until this write lands the structure must not be treated as valid.
func (e *Engine) emitFinalize(states []*buildState) error {
	for _, st := range states {
		var instanceOffset, instanceCount uint32
		if st.req.TopLevel {
			instanceOffset = st.layout.BVHOffset + accel.Box32NodeSize*st.layout.InternalCount
			instanceCount = st.layout.LeafCount
		}

		header := accel.Header{
			BVHOffset:         st.layout.BVHOffset,
			GeometryCount:     uint32(len(st.req.Geometries)),
			InstanceOffset:    instanceOffset,
			InstanceCount:     instanceCount,
			CompactedSize:     st.layout.TotalSize,
			SerializationSize: accel.SerializedSize(st.layout.TotalSize, uint64(instanceCount)),
			Size:              st.layout.TotalSize,
			BuildFlags:        uint32(st.req.Flags),
			CopyDispatchSize:  accel.CopyDispatchGroups(st.layout.TotalSize),
		}
		if err := e.queue.Write(st.dstAddr, header.Encode()); err != nil {
			return err
		}

		table := make([]byte, 0, accel.GeometryInfoSize*len(st.req.Geometries))
		for gi := range st.req.Geometries {
			info := accel.GeometryInfo{
				Kind:           st.req.Geometries[gi].Kind,
				Flags:          st.req.Geometries[gi].Flags,
				PrimitiveCount: st.req.Ranges[gi].PrimitiveCount,
			}
			table = append(table, info.Encode()...)
		}
		if err := e.queue.Write(st.dstAddr+st.layout.GeometryInfoOffset, table); err != nil {
			return err
		}

		e.logger.Debugf(
			"finalized %s structure: %d leaves, strategy %s, %d bytes at offset %d",
			st.kind, st.leafNodeCount, st.strategy.Kind, st.layout.TotalSize, st.layout.BVHOffset,
		)
	}
	return nil
}
