package export

import errors "gopkg.in/src-d/go-errors.v1"

var (
	// ErrMissingField is returned when a planned location has no field in
	// the graph being written.
	ErrMissingField = errors.NewKind("no field at planned location %q")

	// ErrMismatch is returned when a field no longer matches its plan.
	ErrMismatch = errors.NewKind("field at %q does not match its plan: %s")

	// ErrNotReadable is returned for array values that cannot be read by
	// region.
	ErrNotReadable = errors.NewKind("field at %q has no region reader")
)
