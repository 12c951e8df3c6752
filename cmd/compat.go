package cmd

import (
	"fmt"
	"os"

	"github.com/achilleasa/go-accel/accel"
	"github.com/achilleasa/go-accel/builder"
	"github.com/urfave/cli"
)

// Inspect a serialized structure blob and report whether this engine build
// can deserialize it.
func CheckCompat(ctx *cli.Context) {
	setupLogging(ctx)

	if ctx.NArg() != 1 {
		logger.Errorf("error: expected exactly one blob file argument")
		os.Exit(1)
	}

	blobFile := ctx.Args().Get(0)
	data, err := os.ReadFile(blobFile)
	if err != nil {
		logger.Errorf("error: %s", err.Error())
		os.Exit(1)
	}

	wrapper, err := builder.InspectBlob(data)
	if err != nil {
		logger.Errorf("error: %s: %s", blobFile, err.Error())
		os.Exit(1)
	}

	var identity [32]byte
	copy(identity[:], data[0:32])

	fmt.Printf("Blob:               %s\n", blobFile)
	fmt.Printf("Driver UUID:        %x\n", wrapper.DriverUUID)
	fmt.Printf("Format UUID:        %x\n", wrapper.CompatUUID)
	fmt.Printf("Serialization size: %d\n", wrapper.SerializationSize)
	fmt.Printf("Compacted size:     %d\n", wrapper.CompactedSize)
	fmt.Printf("Instance count:     %d\n", wrapper.InstanceCount)

	if !accel.IsCompatible(identity) {
		fmt.Println("\nIncompatible: produced by a different engine build or format version")
		os.Exit(1)
	}
	fmt.Println("\nCompatible")
}
