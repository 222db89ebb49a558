package backend

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind selects a storage backend.
type Kind uint8

// Backends.
const (
	HDF5 Kind = iota + 1
	Zarr
)

// ParseKind parses "hdf5" or "zarr", ignoring case.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hdf5", "h5":
		return HDF5, nil
	case "zarr":
		return Zarr, nil
	default:
		return 0, ErrUnknownBackend.New(s)
	}
}

// Valid reports whether k is a known backend.
func (k Kind) Valid() bool {
	return k == HDF5 || k == Zarr
}

func (k Kind) String() string {
	switch k {
	case HDF5:
		return "hdf5"
	case Zarr:
		return "zarr"
	default:
		return "unknown"
	}
}

// MarshalYAML implements yaml.Marshaler.
func (k Kind) MarshalYAML() (any, error) {
	return k.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (k *Kind) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseKind(node.Value)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Ext returns the conventional file extension of the backend.
func (k Kind) Ext() string {
	switch k {
	case HDF5:
		return ".h5"
	case Zarr:
		return ".zarr"
	default:
		return ""
	}
}
