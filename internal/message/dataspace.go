package message

import (
	"fmt"

	"github.com/robert-malhotra/go-chunkplan/internal/binary"
)

// DataspaceType is the shape class of a dataspace.
type DataspaceType uint8

const (
	DataspaceScalar DataspaceType = 0
	DataspaceSimple DataspaceType = 1
	DataspaceNull   DataspaceType = 2
)

// Unlimited is the maximum dimension of an extendible axis.
const Unlimited = binary.Undefined

// Dataspace describes the dimensions of a dataset (type 0x0001).
type Dataspace struct {
	SpaceType  DataspaceType
	Dimensions []uint64
	MaxDims    []uint64 // nil when equal to Dimensions
}

func (m *Dataspace) Type() Type { return TypeDataspace }

// NumElements returns the number of elements in the dataspace.
func (m *Dataspace) NumElements() uint64 {
	switch m.SpaceType {
	case DataspaceScalar:
		return 1
	case DataspaceSimple:
		n := uint64(1)
		for _, d := range m.Dimensions {
			n *= d
		}
		return n
	}
	return 0
}

// NewDataspace returns a simple dataspace with fixed dimensions.
func NewDataspace(dims []uint64) *Dataspace {
	return &Dataspace{SpaceType: DataspaceSimple, Dimensions: dims}
}

// Encode writes a version 2 dataspace.
func (m *Dataspace) Encode(e *binary.Encoder) {
	e.Uint8(2)
	e.Uint8(uint8(len(m.Dimensions)))
	var flags uint8
	if m.MaxDims != nil {
		flags |= 0x01
	}
	e.Uint8(flags)
	e.Uint8(uint8(m.SpaceType))
	for _, d := range m.Dimensions {
		e.Length(d)
	}
	for _, d := range m.MaxDims {
		e.Length(d)
	}
}

func parseDataspace(data []byte, cfg binary.Config) (*Dataspace, error) {
	d := binary.NewDecoder(data, cfg)
	version := d.Uint8()
	rank := int(d.Uint8())
	flags := d.Uint8()

	m := &Dataspace{}
	switch version {
	case 1:
		d.Skip(5)
		m.SpaceType = DataspaceSimple
		if rank == 0 {
			m.SpaceType = DataspaceScalar
		}
	case 2:
		m.SpaceType = DataspaceType(d.Uint8())
	default:
		return nil, fmt.Errorf("%w: dataspace version %d", ErrUnsupported, version)
	}
	if m.SpaceType != DataspaceSimple {
		return m, d.Err()
	}

	m.Dimensions = make([]uint64, rank)
	for i := range m.Dimensions {
		m.Dimensions[i] = d.Length()
	}
	if flags&0x01 != 0 {
		m.MaxDims = make([]uint64, rank)
		for i := range m.MaxDims {
			m.MaxDims[i] = d.Length()
		}
	}
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("dataspace: %w", err)
	}
	return m, nil
}
