package filter

import (
	"fmt"

	"github.com/robert-malhotra/go-chunkplan/internal/message"
)

// Filter is one reversible stage of a chunk pipeline.
type Filter interface {
	ID() uint16
	Encode(input []byte) ([]byte, error)
	Decode(input []byte) ([]byte, error)
}

// Registry maps filter IDs to constructors taking the filter's client data.
var Registry = map[uint16]func([]uint32) Filter{
	message.FilterDeflate:    func(cd []uint32) Filter { return NewDeflate(cd) },
	message.FilterShuffle:    func(cd []uint32) Filter { return NewShuffle(cd) },
	message.FilterFletcher32: func(cd []uint32) Filter { return NewFletcher32(cd) },
}

var filterNames = map[uint16]string{
	message.FilterDeflate:     "deflate",
	message.FilterShuffle:     "shuffle",
	message.FilterFletcher32:  "fletcher32",
	message.FilterSZIP:        "szip",
	message.FilterNBit:        "nbit",
	message.FilterScaleOffset: "scaleoffset",
}

// Name returns the conventional name of filter id.
func Name(id uint16) string {
	if n, ok := filterNames[id]; ok {
		return n
	}
	return fmt.Sprintf("filter-%d", id)
}

// New returns the filter described by info. An optional filter with no
// implementation returns nil, nil.
func New(info message.FilterInfo) (Filter, error) {
	constructor, ok := Registry[info.ID]
	if !ok {
		if info.IsOptional() {
			return nil, nil
		}
		return nil, fmt.Errorf("%s filter (ID %d) is not supported", Name(info.ID), info.ID)
	}
	return constructor(info.ClientData), nil
}
