package graph

import errors "gopkg.in/src-d/go-errors.v1"

var (
	// ErrNotFound is returned when a field is not reachable from a root.
	ErrNotFound = errors.NewKind("field %q is not reachable from container %q")

	// ErrNoIdentity is returned when a field cannot be compared by identity.
	ErrNoIdentity = errors.NewKind("field %q has non-comparable type %s; implement Field on a pointer type")

	// ErrRagged is returned when a nested sequence has no rectangular shape.
	ErrRagged = errors.NewKind("ragged sequence at %s: %s")

	// ErrRegion is returned when a region read falls outside an array.
	ErrRegion = errors.NewKind("region start %v count %v is outside shape %v")
)
