package filter

import (
	"github.com/robert-malhotra/go-chunkplan/internal/message"
)

// Shuffle groups byte i of every element together, which usually makes
// numeric chunks compress better. Trailing bytes that do not form a whole
// element are left in place.
type Shuffle struct {
	elemSize int
}

// NewShuffle returns a shuffle filter. Client data: [0] = element size.
func NewShuffle(clientData []uint32) *Shuffle {
	elemSize := 1
	if len(clientData) > 0 && clientData[0] > 0 {
		elemSize = int(clientData[0])
	}
	return &Shuffle{elemSize: elemSize}
}

func (f *Shuffle) ID() uint16 { return message.FilterShuffle }

func (f *Shuffle) Encode(input []byte) ([]byte, error) {
	n := len(input) / f.elemSize
	if f.elemSize <= 1 || n <= 1 {
		return input, nil
	}
	output := make([]byte, len(input))
	for i := 0; i < n; i++ {
		for j := 0; j < f.elemSize; j++ {
			output[j*n+i] = input[i*f.elemSize+j]
		}
	}
	copy(output[n*f.elemSize:], input[n*f.elemSize:])
	return output, nil
}

// Decode reverses Encode: [all byte 0s][all byte 1s]... back to elements.
func (f *Shuffle) Decode(input []byte) ([]byte, error) {
	n := len(input) / f.elemSize
	if f.elemSize <= 1 || n <= 1 {
		return input, nil
	}
	output := make([]byte, len(input))
	for i := 0; i < n; i++ {
		for j := 0; j < f.elemSize; j++ {
			output[i*f.elemSize+j] = input[j*n+i]
		}
	}
	copy(output[n*f.elemSize:], input[n*f.elemSize:])
	return output, nil
}
