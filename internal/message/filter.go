package message

import (
	"fmt"

	"github.com/robert-malhotra/go-chunkplan/internal/binary"
)

// Filter IDs.
const (
	FilterDeflate     uint16 = 1
	FilterShuffle     uint16 = 2
	FilterFletcher32  uint16 = 3
	FilterSZIP        uint16 = 4
	FilterNBit        uint16 = 5
	FilterScaleOffset uint16 = 6
)

// FilterInfo is one stage of a filter pipeline.
type FilterInfo struct {
	ID         uint16
	Flags      uint16 // bit 0: optional
	Name       string
	ClientData []uint32
}

// IsOptional reports whether a failure of this filter may be skipped.
func (f *FilterInfo) IsOptional() bool {
	return f.Flags&0x01 != 0
}

// FilterPipeline lists the filters applied to every chunk (type 0x000B),
// in write order.
type FilterPipeline struct {
	Filters []FilterInfo
}

func (m *FilterPipeline) Type() Type { return TypeFilterPipeline }

// Has reports whether the pipeline contains filter id.
func (m *FilterPipeline) Has(id uint16) bool {
	for _, f := range m.Filters {
		if f.ID == id {
			return true
		}
	}
	return false
}

// Encode writes a version 2 pipeline.
func (m *FilterPipeline) Encode(e *binary.Encoder) {
	e.Uint8(2)
	e.Uint8(uint8(len(m.Filters)))
	for _, f := range m.Filters {
		e.Uint16(f.ID)
		if f.ID >= 256 {
			e.Uint16(uint16(len(f.Name) + 1))
		}
		e.Uint16(f.Flags)
		e.Uint16(uint16(len(f.ClientData)))
		if f.ID >= 256 {
			e.String(f.Name)
			e.Uint8(0)
		}
		for _, v := range f.ClientData {
			e.Uint32(v)
		}
	}
}

func parseFilterPipeline(data []byte) (*FilterPipeline, error) {
	d := binary.NewDecoder(data, binary.DefaultConfig())
	version := d.Uint8()
	n := int(d.Uint8())
	if version != 1 && version != 2 {
		return nil, fmt.Errorf("%w: filter pipeline version %d", ErrUnsupported, version)
	}
	if version == 1 {
		d.Skip(6)
	}

	m := &FilterPipeline{Filters: make([]FilterInfo, n)}
	for i := range m.Filters {
		f := &m.Filters[i]
		f.ID = d.Uint16()
		nameLen := 0
		if version == 1 || f.ID >= 256 {
			nameLen = int(d.Uint16())
		}
		f.Flags = d.Uint16()
		values := int(d.Uint16())
		if nameLen > 0 {
			name := d.Bytes(nameLen)
			if version == 1 {
				d.Skip(pad8(nameLen) - nameLen)
			}
			f.Name = trimNUL(name)
		}
		f.ClientData = make([]uint32, values)
		for j := range f.ClientData {
			f.ClientData[j] = d.Uint32()
		}
		if version == 1 && values%2 == 1 {
			d.Skip(4)
		}
	}
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("filter pipeline: %w", err)
	}
	return m, nil
}

func trimNUL(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
