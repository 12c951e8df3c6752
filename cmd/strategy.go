package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/achilleasa/go-accel/accel"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Print the construction strategy the engine would select for each given
// leaf count under the flags supplied on the command line.
func ShowStrategy(ctx *cli.Context) {
	setupLogging(ctx)

	if ctx.NArg() == 0 {
		logger.Errorf("error: expected one or more leaf counts")
		os.Exit(1)
	}

	topLevel := ctx.Bool("top-level")
	flags := parseBuildFlags(ctx)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Leaves", "Top Level", "Strategy", "Extended Heuristic"})
	for idx := 0; idx < ctx.NArg(); idx++ {
		arg := ctx.Args().Get(idx)
		leafCount, err := strconv.ParseUint(arg, 10, 32)
		if err != nil {
			logger.Errorf("error: invalid leaf count %q", arg)
			os.Exit(1)
		}

		strategy := accel.SelectStrategy(uint32(leafCount), topLevel, flags)
		table.Append([]string{
			arg,
			fmt.Sprintf("%t", topLevel),
			strategy.Kind.String(),
			fmt.Sprintf("%t", strategy.ExtendedHeuristic),
		})
	}
	table.Render()
}
