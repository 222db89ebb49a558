package filter

import (
	"fmt"

	"github.com/robert-malhotra/go-chunkplan/internal/message"
)

// Pipeline applies the filters of a pipeline message to whole chunks.
type Pipeline struct {
	filters []Filter
}

// NewPipeline builds the pipeline described by fp. A nil message gives an
// empty pipeline.
func NewPipeline(fp *message.FilterPipeline) (*Pipeline, error) {
	p := &Pipeline{}
	if fp == nil {
		return p, nil
	}
	for _, info := range fp.Filters {
		f, err := New(info)
		if err != nil {
			return nil, err
		}
		if f != nil {
			p.filters = append(p.filters, f)
		}
	}
	return p, nil
}

// Encode runs the filters in order. The returned mask is always zero: every
// filter is applied.
func (p *Pipeline) Encode(input []byte) ([]byte, uint32, error) {
	data := input
	for _, f := range p.filters {
		var err error
		if data, err = f.Encode(data); err != nil {
			return nil, 0, fmt.Errorf("%s encode: %w", Name(f.ID()), err)
		}
	}
	return data, 0, nil
}

// Decode runs the filters in reverse order, skipping filter i when bit i
// of mask is set.
func (p *Pipeline) Decode(input []byte, mask uint32) ([]byte, error) {
	data := input
	for i := len(p.filters) - 1; i >= 0; i-- {
		if mask&(1<<uint(i)) != 0 {
			continue
		}
		var err error
		if data, err = p.filters[i].Decode(data); err != nil {
			return nil, fmt.Errorf("%s decode: %w", Name(p.filters[i].ID()), err)
		}
	}
	return data, nil
}

// Empty reports whether the pipeline has no filters.
func (p *Pipeline) Empty() bool {
	return len(p.filters) == 0
}

// Settings selects the filters of a new dataset.
type Settings struct {
	Deflate    bool
	Level      int
	Shuffle    bool
	Fletcher32 bool
}

// Message returns the pipeline message for elements of elemSize bytes, in
// the order shuffle, deflate, fletcher32. It returns nil when no filter is
// selected.
func (s Settings) Message(elemSize uint64) *message.FilterPipeline {
	var fp message.FilterPipeline
	if s.Shuffle {
		fp.Filters = append(fp.Filters, message.FilterInfo{ID: message.FilterShuffle, Flags: 0x01, ClientData: []uint32{uint32(elemSize)}})
	}
	if s.Deflate {
		fp.Filters = append(fp.Filters, message.FilterInfo{ID: message.FilterDeflate, Flags: 0x01, ClientData: []uint32{uint32(s.Level)}})
	}
	if s.Fletcher32 {
		fp.Filters = append(fp.Filters, message.FilterInfo{ID: message.FilterFletcher32})
	}
	if len(fp.Filters) == 0 {
		return nil
	}
	return &fp
}
