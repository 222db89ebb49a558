package zarr

import "errors"

// Common errors
var (
	ErrNotZarr     = errors.New("not a zarr v2 hierarchy")
	ErrNotFound    = errors.New("node not found")
	ErrNotArray    = errors.New("node is not an array")
	ErrNotGroup    = errors.New("node is not a group")
	ErrExists      = errors.New("name already exists")
	ErrUnsupported = errors.New("unsupported feature")
	ErrInvalidPath = errors.New("invalid path")
	ErrReadOnly    = errors.New("store is not writable")
)
