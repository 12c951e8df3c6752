package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/achilleasa/go-accel/accel"
	"github.com/achilleasa/go-accel/builder"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Plan a build without touching a device: print the structure layout, the
// scratch arena subdivision and the selected construction strategy for a
// geometry description given on the command line.
func PlanBuild(ctx *cli.Context) {
	setupLogging(ctx)

	kind, err := parseKind(ctx.String("kind"))
	if err != nil {
		logger.Errorf("error: %s", err.Error())
		os.Exit(1)
	}

	primCounts, err := parsePrimCounts(ctx.String("prims"))
	if err != nil {
		logger.Errorf("error: %s", err.Error())
		os.Exit(1)
	}

	topLevel := kind == accel.Instances
	flags := parseBuildFlags(ctx)

	var leafCount uint32
	for _, count := range primCounts {
		leafCount += count
	}

	sorter := builder.RadixSorter{}
	layout, scratch := accel.PlanLayout(kind, uint32(len(primCounts)), primCounts, sorter.MemoryRequirements(leafCount))
	strategy := accel.SelectStrategy(leafCount, topLevel, flags)

	fmt.Printf(
		"\nPlanned %s build: %d geometries, %d leaves, strategy %s (extended heuristic: %t)\n\n",
		kind, len(primCounts), leafCount, strategy.Kind, strategy.ExtendedHeuristic,
	)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Structure Region", "Offset", "Size"})
	table.Append([]string{"header", "0", fmt.Sprintf("%d", accel.HeaderSize)})
	table.Append([]string{"parent links", fmt.Sprintf("%d", accel.HeaderSize), fmt.Sprintf("%d", uint64(layout.BVHOffset)-accel.HeaderSize)})
	table.Append([]string{fmt.Sprintf("nodes (%d internal, %d leaf)", layout.InternalCount, layout.LeafCount), fmt.Sprintf("%d", layout.BVHOffset), fmt.Sprintf("%d", layout.BVHSize)})
	table.Append([]string{"geometry metadata", fmt.Sprintf("%d", layout.GeometryInfoOffset), fmt.Sprintf("%d", layout.TotalSize-layout.GeometryInfoOffset)})
	table.SetFooter([]string{"total", "", fmt.Sprintf("%d", layout.TotalSize)})
	table.Render()

	fmt.Println()

	table = tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Scratch Region", "Offset", "Size"})
	table.Append([]string{"IR header", fmt.Sprintf("%d", scratch.Header.Offset), fmt.Sprintf("%d", scratch.Header.Size)})
	table.Append([]string{"keys A", fmt.Sprintf("%d", scratch.Keys[0].Offset), fmt.Sprintf("%d", scratch.Keys[0].Size)})
	table.Append([]string{"keys B", fmt.Sprintf("%d", scratch.Keys[1].Offset), fmt.Sprintf("%d", scratch.Keys[1].Size)})
	table.Append([]string{"internal (aliased)", fmt.Sprintf("%d", scratch.Internal.Offset), fmt.Sprintf("%d", scratch.Internal.Size)})
	table.Append([]string{"IR nodes", fmt.Sprintf("%d", scratch.IR.Offset), fmt.Sprintf("%d", scratch.IR.Size)})
	table.SetFooter([]string{"total", "", fmt.Sprintf("%d", scratch.TotalSize)})
	table.Render()
}

func parseKind(value string) (accel.GeometryKind, error) {
	switch strings.ToLower(value) {
	case "triangles":
		return accel.Triangles, nil
	case "aabbs":
		return accel.AABBs, nil
	case "instances":
		return accel.Instances, nil
	}
	return 0, fmt.Errorf("unsupported geometry kind %q; expected triangles, aabbs or instances", value)
}

func parsePrimCounts(value string) ([]uint32, error) {
	if value == "" {
		return nil, fmt.Errorf("no primitive counts given; pass --prims N[,N...]")
	}

	parts := strings.Split(value, ",")
	counts := make([]uint32, len(parts))
	for idx, part := range parts {
		count, err := strconv.ParseUint(strings.TrimSpace(part), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid primitive count %q", part)
		}
		counts[idx] = uint32(count)
	}
	return counts, nil
}

func parseBuildFlags(ctx *cli.Context) accel.BuildFlags {
	var flags accel.BuildFlags
	if ctx.Bool("allow-update") {
		flags |= accel.AllowUpdate
	}
	if ctx.Bool("allow-compaction") {
		flags |= accel.AllowCompaction
	}
	if ctx.Bool("fast-trace") {
		flags |= accel.PreferFastTrace
	}
	if ctx.Bool("fast-build") {
		flags |= accel.PreferFastBuild
	}
	if ctx.Bool("low-memory") {
		flags |= accel.LowMemory
	}
	return flags
}
