package main

import (
	"os"

	"github.com/achilleasa/go-accel/cmd"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "go-accel"
	app.Usage = "plan and inspect GPU acceleration structure builds"
	app.Version = "0.0.1"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "plan",
			Usage: "plan a build without touching a device",
			Description: `
Compute the buffer layout, scratch arena subdivision and construction strategy
the engine would use for the described geometry, and print them as tables.`,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "kind",
					Value: "triangles",
					Usage: "geometry kind: triangles, aabbs or instances",
				},
				cli.StringFlag{
					Name:  "prims",
					Usage: "comma-separated primitive count per geometry",
				},
				cli.BoolFlag{
					Name:  "allow-update",
					Usage: "structure will be updated in place",
				},
				cli.BoolFlag{
					Name:  "allow-compaction",
					Usage: "structure may be compacted after the build",
				},
				cli.BoolFlag{
					Name:  "fast-trace",
					Usage: "prefer traversal speed over build speed",
				},
				cli.BoolFlag{
					Name:  "fast-build",
					Usage: "prefer build speed over traversal speed",
				},
				cli.BoolFlag{
					Name:  "low-memory",
					Usage: "minimize scratch and structure memory",
				},
			},
			Action: cmd.PlanBuild,
		},
		{
			Name:      "strategy",
			Usage:     "show the construction strategy selected for given leaf counts",
			ArgsUsage: "leaf_count [leaf_count ...]",
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "top-level",
					Usage: "treat the structure as top-level (instance) geometry",
				},
				cli.BoolFlag{
					Name:  "allow-update",
					Usage: "structure will be updated in place",
				},
				cli.BoolFlag{
					Name:  "allow-compaction",
					Usage: "structure may be compacted after the build",
				},
				cli.BoolFlag{
					Name:  "fast-trace",
					Usage: "prefer traversal speed over build speed",
				},
				cli.BoolFlag{
					Name:  "fast-build",
					Usage: "prefer build speed over traversal speed",
				},
				cli.BoolFlag{
					Name:  "low-memory",
					Usage: "minimize scratch and structure memory",
				},
			},
			Action: cmd.ShowStrategy,
		},
		{
			Name:   "list-devices",
			Usage:  "list available opencl devices",
			Action: cmd.ListDevices,
		},
		{
			Name:      "compat",
			Usage:     "check whether a serialized structure blob is deserializable",
			ArgsUsage: "blob_file",
			Action:    cmd.CheckCompat,
		},
	}

	app.Run(os.Args)
}
