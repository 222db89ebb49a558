package hdf5

import "errors"

// Common errors
var (
	ErrNotFound    = errors.New("object not found")
	ErrNotDataset  = errors.New("object is not a dataset")
	ErrNotGroup    = errors.New("object is not a group")
	ErrExists      = errors.New("name already exists")
	ErrUnsupported = errors.New("unsupported feature")
	ErrInvalidPath = errors.New("invalid path")
	ErrClosed      = errors.New("file is closed")
	ErrReadOnly    = errors.New("file is not writable")
	ErrLinkDepth   = errors.New("maximum link depth exceeded")
)

// MaxLinkDepth is the maximum number of soft and external links followed
// while resolving one path.
const MaxLinkDepth = 100
