package filter

import (
	"encoding/binary"
	"fmt"

	binpkg "github.com/robert-malhotra/go-chunkplan/internal/binary"
	"github.com/robert-malhotra/go-chunkplan/internal/message"
)

// Fletcher32Filter appends a Fletcher-32 checksum to each chunk and checks
// it on the way back.
type Fletcher32Filter struct{}

// NewFletcher32 returns a checksum filter. It takes no client data.
func NewFletcher32([]uint32) *Fletcher32Filter {
	return &Fletcher32Filter{}
}

func (f *Fletcher32Filter) ID() uint16 { return message.FilterFletcher32 }

func (f *Fletcher32Filter) Encode(input []byte) ([]byte, error) {
	return binary.LittleEndian.AppendUint32(append([]byte(nil), input...), binpkg.Fletcher32(input)), nil
}

func (f *Fletcher32Filter) Decode(input []byte) ([]byte, error) {
	if len(input) < 4 {
		return nil, fmt.Errorf("fletcher32: input too short for checksum")
	}
	data := input[:len(input)-4]
	stored := binary.LittleEndian.Uint32(input[len(input)-4:])
	if computed := binpkg.Fletcher32(data); stored != computed {
		return nil, fmt.Errorf("fletcher32: checksum mismatch (stored=0x%08x, computed=0x%08x)", stored, computed)
	}
	return data, nil
}
