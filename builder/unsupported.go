package builder

import "fmt"

// StructProperty identifies a per-structure property query.
type StructProperty uint8

const (
	PropertyCompactedSize StructProperty = iota
	PropertySerializationSize
)

// Implements Stringer.
func (p StructProperty) String() string {
	switch p {
	case PropertyCompactedSize:
		return "compacted size"
	case PropertySerializationSize:
		return "serialization size"
	}
	panic(fmt.Sprintf("accel builder: unsupported property: %d", uint8(p)))
}

// The entry points below are part of the engine surface but intentionally
// unimplemented. They fail with ErrUnsupported so callers can probe for them;
// an unsupported operation is not a contract violation.

// BuildHost would build structures on the CPU.
func (e *Engine) BuildHost(requests []BuildRequest) error {
	return fmt.Errorf("host build: %w", ErrUnsupported)
}

// BuildIndirect would build structures with device-resident build parameters.
func (e *Engine) BuildIndirect(requests []BuildRequest, paramsAddr uint64) error {
	return fmt.Errorf("indirect build: %w", ErrUnsupported)
}

// CopyMemoryToStruct would copy host memory into a structure by value.
func (e *Engine) CopyMemoryToStruct(src []byte, dst *AccelStruct) error {
	return fmt.Errorf("memory-to-structure copy: %w", ErrUnsupported)
}

// QueryProperty would read back a property of a built structure.
func (e *Engine) QueryProperty(s *AccelStruct, property StructProperty) (uint64, error) {
	return 0, fmt.Errorf("%s query: %w", property, ErrUnsupported)
}
