package message

import (
	"fmt"

	"github.com/robert-malhotra/go-chunkplan/internal/binary"
)

// LayoutClass is the storage class of a dataset.
type LayoutClass uint8

const (
	LayoutCompact    LayoutClass = 0
	LayoutContiguous LayoutClass = 1
	LayoutChunked    LayoutClass = 2
	LayoutVirtual    LayoutClass = 3
)

func (c LayoutClass) String() string {
	switch c {
	case LayoutCompact:
		return "compact"
	case LayoutContiguous:
		return "contiguous"
	case LayoutChunked:
		return "chunked"
	case LayoutVirtual:
		return "virtual"
	}
	return fmt.Sprintf("layout(%d)", uint8(c))
}

// ChunkIndexType identifies how the chunks of a dataset are located.
// Version 3 layouts always use a version 1 B-tree.
type ChunkIndexType uint8

const (
	ChunkIndexBTreeV1         ChunkIndexType = 0
	ChunkIndexSingleChunk     ChunkIndexType = 1
	ChunkIndexImplicit        ChunkIndexType = 2
	ChunkIndexFixedArray      ChunkIndexType = 3
	ChunkIndexExtensibleArray ChunkIndexType = 4
	ChunkIndexBTreeV2         ChunkIndexType = 5
)

// Chunked layout flags.
const (
	FlagDontFilterPartialChunks uint8 = 0x01
	FlagSingleIndexWithFilter   uint8 = 0x02
)

// DataLayout describes where a dataset's elements are stored (type 0x0008).
type DataLayout struct {
	Version uint8
	Class   LayoutClass

	// Address of contiguous data or of the chunk index.
	Address uint64
	// Size of contiguous or compact data.
	Size        uint64
	CompactData []byte

	Flags       uint8
	ChunkDims   []uint64 // per dataset axis
	ElementSize uint64
	Index       ChunkIndexType

	// ChunkIndexSingleChunk with FlagSingleIndexWithFilter.
	FilteredSize uint64
	FilterMask   uint32

	// ChunkIndexFixedArray.
	PageBits uint8
}

func (m *DataLayout) Type() Type { return TypeDataLayout }

// NewChunkedLayout returns a version 4 chunked layout. The index fields are
// filled in once the chunks are written.
func NewChunkedLayout(chunk []uint64, elementSize uint64) *DataLayout {
	return &DataLayout{
		Version:     4,
		Class:       LayoutChunked,
		Address:     binary.Undefined,
		ChunkDims:   chunk,
		ElementSize: elementSize,
	}
}

// Encode writes a version 4 layout. Only the chunked class with a single
// chunk or fixed array index, and the contiguous class, are written.
func (m *DataLayout) Encode(e *binary.Encoder) {
	e.Uint8(4)
	e.Uint8(uint8(m.Class))
	switch m.Class {
	case LayoutContiguous:
		e.Offset(m.Address)
		e.Length(m.Size)
	case LayoutChunked:
		e.Uint8(m.Flags)
		e.Uint8(uint8(len(m.ChunkDims) + 1))
		width := m.dimWidth()
		e.Uint8(uint8(width))
		for _, c := range m.ChunkDims {
			e.UintN(c, width)
		}
		e.UintN(m.ElementSize, width)
		e.Uint8(uint8(m.Index))
		switch m.Index {
		case ChunkIndexSingleChunk:
			if m.Flags&FlagSingleIndexWithFilter != 0 {
				e.Length(m.FilteredSize)
				e.Uint32(m.FilterMask)
			}
		case ChunkIndexFixedArray:
			e.Uint8(m.PageBits)
		}
		e.Offset(m.Address)
	}
}

func (m *DataLayout) dimWidth() int {
	largest := m.ElementSize
	for _, c := range m.ChunkDims {
		largest = max(largest, c)
	}
	return binary.SizeBytes(largest)
}

func parseDataLayout(data []byte, cfg binary.Config) (*DataLayout, error) {
	d := binary.NewDecoder(data, cfg)
	m := &DataLayout{Version: d.Uint8(), Class: LayoutClass(d.Uint8())}
	if m.Version < 3 || m.Version > 4 {
		return nil, fmt.Errorf("%w: layout version %d", ErrUnsupported, m.Version)
	}

	switch m.Class {
	case LayoutCompact:
		m.Size = uint64(d.Uint16())
		m.CompactData = d.Bytes(int(m.Size))
	case LayoutContiguous:
		m.Address = d.Offset64()
		m.Size = d.Length()
	case LayoutChunked:
		if m.Version == 3 {
			parseChunkedV3(d, m)
		} else if err := parseChunkedV4(d, m); err != nil {
			return nil, err
		}
	case LayoutVirtual:
	default:
		return nil, fmt.Errorf("%w: layout class %d", ErrUnsupported, m.Class)
	}
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("data layout: %w", err)
	}
	return m, nil
}

func parseChunkedV3(d *binary.Decoder, m *DataLayout) {
	ndims := int(d.Uint8())
	m.Address = d.Offset64()
	m.Index = ChunkIndexBTreeV1
	dims := make([]uint64, ndims)
	for i := range dims {
		dims[i] = uint64(d.Uint32())
	}
	if ndims > 0 {
		m.ChunkDims = dims[:ndims-1]
		m.ElementSize = dims[ndims-1]
	}
}

func parseChunkedV4(d *binary.Decoder, m *DataLayout) error {
	m.Flags = d.Uint8()
	ndims := int(d.Uint8())
	width := int(d.Uint8())
	if width < 1 || width > 8 {
		return fmt.Errorf("%w: chunk dimension width %d", ErrUnsupported, width)
	}
	dims := make([]uint64, ndims)
	for i := range dims {
		dims[i] = d.UintN(width)
	}
	if ndims > 0 {
		m.ChunkDims = dims[:ndims-1]
		m.ElementSize = dims[ndims-1]
	}

	m.Index = ChunkIndexType(d.Uint8())
	switch m.Index {
	case ChunkIndexSingleChunk:
		if m.Flags&FlagSingleIndexWithFilter != 0 {
			m.FilteredSize = d.Length()
			m.FilterMask = d.Uint32()
		}
	case ChunkIndexImplicit:
	case ChunkIndexFixedArray:
		m.PageBits = d.Uint8()
	case ChunkIndexExtensibleArray:
		d.Skip(5)
	case ChunkIndexBTreeV2:
		d.Skip(6)
	default:
		return fmt.Errorf("%w: chunk index type %d", ErrUnsupported, m.Index)
	}
	m.Address = d.Offset64()
	return nil
}
