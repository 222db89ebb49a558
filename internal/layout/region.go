package layout

import "fmt"

// Strides returns the byte stride of each axis of a row-major array.
func Strides(shape []uint64, item uint64) []uint64 {
	strides := make([]uint64, len(shape))
	s := item
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = s
		s *= shape[i]
	}
	return strides
}

// CopyBox copies a box of count elements from src, an array of srcShape,
// starting at srcOrigin, into dst, an array of dstShape, at dstOrigin.
func CopyBox(dst []byte, dstShape, dstOrigin []uint64, src []byte, srcShape, srcOrigin []uint64, count []uint64, item uint64) {
	ndims := len(count)
	if ndims == 0 {
		copy(dst[:item], src[:item])
		return
	}
	for _, c := range count {
		if c == 0 {
			return
		}
	}
	copyBoxRecursive(dst, Strides(dstShape, item), dstOrigin, src, Strides(srcShape, item), srcOrigin, count, 0, 0, 0, item)
}

// copyBoxRecursive walks the outer axes and copies whole rows along the
// innermost axis, which is contiguous in both buffers.
func copyBoxRecursive(dst []byte, dstStrides, dstOrigin []uint64, src []byte, srcStrides, srcOrigin []uint64, count []uint64, dstIdx, srcIdx uint64, dim int, item uint64) {
	if dim == len(count)-1 {
		row := count[dim] * item
		d := dstIdx + dstOrigin[dim]*dstStrides[dim]
		s := srcIdx + srcOrigin[dim]*srcStrides[dim]
		copy(dst[d:d+row], src[s:s+row])
		return
	}
	for i := uint64(0); i < count[dim]; i++ {
		copyBoxRecursive(dst, dstStrides, dstOrigin, src, srcStrides, srcOrigin, count,
			dstIdx+(dstOrigin[dim]+i)*dstStrides[dim],
			srcIdx+(srcOrigin[dim]+i)*srcStrides[dim],
			dim+1, item)
	}
}

// CopyRegion returns the row-major bytes of the hyperslab start+count of
// src, an array of shape with item bytes per element.
func CopyRegion(src []byte, shape []uint64, item uint64, start, count []uint64) []byte {
	out := make([]byte, numElements(count)*item)
	CopyBox(out, count, make([]uint64, len(count)), src, shape, start, count, item)
	return out
}

// Grid is the tiling of a dataset of Shape by chunks of Chunk.
type Grid struct {
	Shape []uint64
	Chunk []uint64
}

// NewGrid returns the grid for shape and chunk.
func NewGrid(shape, chunk []uint64) (Grid, error) {
	if len(shape) != len(chunk) {
		return Grid{}, fmt.Errorf("chunk rank %d does not match dataset rank %d", len(chunk), len(shape))
	}
	for i, c := range chunk {
		if c == 0 {
			return Grid{}, fmt.Errorf("chunk dimension %d is zero", i)
		}
	}
	return Grid{Shape: shape, Chunk: chunk}, nil
}

// Counts returns the number of chunks along each axis.
func (g Grid) Counts() []uint64 {
	n := make([]uint64, len(g.Shape))
	for i := range g.Shape {
		n[i] = (g.Shape[i] + g.Chunk[i] - 1) / g.Chunk[i]
	}
	return n
}

// Len returns the total number of chunks.
func (g Grid) Len() uint64 {
	return numElements(g.Counts())
}

// ChunkBytes returns the size of one full chunk.
func (g Grid) ChunkBytes(item uint64) uint64 {
	return numElements(g.Chunk) * item
}

// Index returns the row-major index of the chunk at coords.
func (g Grid) Index(coords []uint64) uint64 {
	counts := g.Counts()
	idx := uint64(0)
	for i := range coords {
		idx = idx*counts[i] + coords[i]
	}
	return idx
}

// Coords returns the chunk coordinates of a row-major index.
func (g Grid) Coords(index uint64) []uint64 {
	counts := g.Counts()
	coords := make([]uint64, len(counts))
	for i := len(counts) - 1; i >= 0; i-- {
		coords[i] = index % counts[i]
		index /= counts[i]
	}
	return coords
}

// Chunk is one full-size chunk produced by SplitRegion.
type Chunk struct {
	Coords []uint64
	Data   []byte
}

// SplitRegion cuts data, the row-major bytes of the region start+count,
// into full-size chunks. Edge chunks are zero padded. The region must be
// aligned to the grid: every start is a chunk multiple and every end is
// a chunk multiple or the dataset extent.
func (g Grid) SplitRegion(data []byte, start, count []uint64, item uint64) ([]Chunk, error) {
	ndims := len(g.Shape)
	if len(start) != ndims || len(count) != ndims {
		return nil, fmt.Errorf("region rank does not match dataset rank %d", ndims)
	}
	if uint64(len(data)) != numElements(count)*item {
		return nil, fmt.Errorf("region holds %d bytes, want %d", len(data), numElements(count)*item)
	}

	first := make([]uint64, ndims)
	span := make([]uint64, ndims)
	for i := 0; i < ndims; i++ {
		end := start[i] + count[i]
		if start[i]%g.Chunk[i] != 0 || end > g.Shape[i] || (end%g.Chunk[i] != 0 && end != g.Shape[i]) {
			return nil, fmt.Errorf("region start %v count %v is not aligned to chunks %v", start, count, g.Chunk)
		}
		first[i] = start[i] / g.Chunk[i]
		span[i] = (count[i] + g.Chunk[i] - 1) / g.Chunk[i]
	}

	chunkBytes := g.ChunkBytes(item)
	chunks := make([]Chunk, 0, numElements(span))
	local := make([]uint64, ndims)
	for {
		coords := make([]uint64, ndims)
		srcOrigin := make([]uint64, ndims)
		extent := make([]uint64, ndims)
		for i := 0; i < ndims; i++ {
			coords[i] = first[i] + local[i]
			srcOrigin[i] = local[i] * g.Chunk[i]
			extent[i] = min(g.Chunk[i], count[i]-srcOrigin[i])
		}

		buf := make([]byte, chunkBytes)
		CopyBox(buf, g.Chunk, make([]uint64, ndims), data, count, srcOrigin, extent, item)
		chunks = append(chunks, Chunk{Coords: coords, Data: buf})

		i := ndims - 1
		for ; i >= 0; i-- {
			local[i]++
			if local[i] < span[i] {
				break
			}
			local[i] = 0
		}
		if i < 0 {
			break
		}
	}
	return chunks, nil
}

func numElements(shape []uint64) uint64 {
	n := uint64(1)
	for _, d := range shape {
		n *= d
	}
	return n
}
