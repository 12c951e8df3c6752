package accel

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
)

// FormatVersion is bumped whenever the on-device layout changes in a way that
// breaks serialized blobs.
const FormatVersion = 1

// The identity pair stamped into every serialized blob. Both halves are
// derived deterministically so independently linked binaries of the same
// version agree on them.
var (
	driverUUID = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/achilleasa/go-accel/driver"))
	compatUUID = uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("https://github.com/achilleasa/go-accel/format/v%d", FormatVersion)))
)

// DriverUUID identifies the producing engine build.
func DriverUUID() [16]byte {
	return [16]byte(driverUUID)
}

// CompatUUID identifies the on-device structure format.
func CompatUUID() [16]byte {
	return [16]byte(compatUUID)
}

// Identity returns the 32-byte driver+format block written at the start of
// every serialized blob.
func Identity() [32]byte {
	var out [32]byte
	copy(out[0:16], driverUUID[:])
	copy(out[16:32], compatUUID[:])
	return out
}

// IsCompatible reports whether a candidate identity block matches the current
// driver and format identity. Pure byte equality; no device access.
func IsCompatible(candidate [32]byte) bool {
	identity := Identity()
	return bytes.Equal(candidate[:], identity[:])
}
