package builder

import "errors"

var (
	// ErrUnsupported is wrapped by every entry point the engine declares
	// but does not implement; callers may probe for it with errors.Is.
	ErrUnsupported = errors.New("accel builder: feature not present")

	ErrDestinationTooSmall = errors.New("accel builder: destination buffer too small for computed layout")
	ErrScratchTooSmall     = errors.New("accel builder: scratch buffer too small for computed layout")
	ErrAddressMismatch     = errors.New("accel builder: buffer not bound at the requested device address")
	ErrRangeMismatch       = errors.New("accel builder: build range count does not match geometry count")
	ErrNoGeometries        = errors.New("accel builder: build request contains no geometries")
	ErrMixedGeometry       = errors.New("accel builder: geometries in one structure must share a kind")
	ErrKindForLevel        = errors.New("accel builder: geometry kind not valid for the structure's level")
	ErrBadBlob             = errors.New("accel builder: malformed serialized blob header")
)
