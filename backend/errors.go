package backend

import errors "gopkg.in/src-d/go-errors.v1"

var (
	// ErrValidation is returned when a dataset configuration violates its
	// invariants: name and location disagree, the plan does not fit the
	// shape, or compression belongs to another backend.
	ErrValidation = errors.NewKind("invalid dataset configuration for %q: %s")

	// ErrDuplicateLocation is returned when two datasets share a location.
	ErrDuplicateLocation = errors.NewKind("duplicate dataset location %q")

	// ErrBackendMismatch is returned when a configuration for one backend is
	// added to an aggregate of another.
	ErrBackendMismatch = errors.NewKind("configuration for %q targets %s, want %s")

	// ErrUnknownLocation is returned when overriding a location that was
	// never planned.
	ErrUnknownLocation = errors.NewKind("no dataset planned at %q")

	// ErrUnknownBackend is returned for an unrecognized backend name.
	ErrUnknownBackend = errors.NewKind("unknown backend %q")
)
