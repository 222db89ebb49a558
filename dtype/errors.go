package dtype

import errors "gopkg.in/src-d/go-errors.v1"

var (
	// ErrTypeConflict is returned when the leaves of a value cannot be
	// unified into one element type.
	ErrTypeConflict = errors.NewKind("conflicting element types %s and %s at %s")

	// ErrUnknownType is returned when no element type can be derived.
	ErrUnknownType = errors.NewKind("cannot infer element type of %s: %s")

	// ErrEncode is returned when a value does not fit its descriptor.
	ErrEncode = errors.NewKind("cannot encode %s as %s")
)
