package chunking

import (
	"fmt"

	errors "gopkg.in/src-d/go-errors.v1"
)

// Default budgets.
const (
	DefaultChunkBytes  uint64 = 10_000_000
	DefaultBufferBytes uint64 = 1_000_000_000
)

var (
	// ErrEmptyDataset is returned for datasets with a zero-length axis.
	ErrEmptyDataset = errors.NewKind("dataset of shape %v is empty")

	// ErrConfiguration is returned for shapes, budgets or plans that cannot
	// produce a valid layout.
	ErrConfiguration = errors.NewKind("invalid chunk configuration: %s")
)

// Options holds planning budgets. Zero values select the defaults.
type Options struct {
	// ChunkBytes is the upper bound on the bytes of one chunk.
	ChunkBytes uint64

	// BufferBytes is the upper bound on the bytes of one buffer.
	BufferBytes uint64

	// AxisPriority is the order in which axes grow. It must be a
	// permutation of the dataset axes. Nil selects DefaultAxisPriority.
	AxisPriority []int
}

func (o Options) withDefaults(rank int) (Options, error) {
	if o.ChunkBytes == 0 {
		o.ChunkBytes = DefaultChunkBytes
	}
	if o.BufferBytes == 0 {
		o.BufferBytes = DefaultBufferBytes
	}
	if o.AxisPriority == nil {
		o.AxisPriority = DefaultAxisPriority(rank)
	} else if err := checkPriority(o.AxisPriority, rank); err != nil {
		return o, err
	}
	return o, nil
}

// DefaultAxisPriority returns the primary axis, then the extent axis, then
// the middle axes in index order.
func DefaultAxisPriority(rank int) []int {
	if rank == 0 {
		return nil
	}
	order := make([]int, 0, rank)
	order = append(order, 0)
	if rank > 1 {
		order = append(order, rank-1)
	}
	for i := 1; i < rank-1; i++ {
		order = append(order, i)
	}
	return order
}

func checkPriority(order []int, rank int) error {
	if len(order) != rank {
		return ErrConfiguration.New(fmt.Sprintf("axis priority %v does not cover %d axes", order, rank))
	}
	seen := make([]bool, rank)
	for _, ax := range order {
		if ax < 0 || ax >= rank || seen[ax] {
			return ErrConfiguration.New(fmt.Sprintf("axis priority %v is not a permutation", order))
		}
		seen[ax] = true
	}
	return nil
}

// Plan is the chunk and buffer shape of one dataset.
type Plan struct {
	ChunkShape  []uint64
	BufferShape []uint64
}

// NewPlan returns a plan after checking it against the full shape.
func NewPlan(full, chunk, buffer []uint64) (Plan, error) {
	p := Plan{
		ChunkShape:  append([]uint64(nil), chunk...),
		BufferShape: append([]uint64(nil), buffer...),
	}
	if err := p.Validate(full); err != nil {
		return Plan{}, err
	}
	return p, nil
}

// Validate checks the plan invariants against full.
func (p Plan) Validate(full []uint64) error {
	if len(p.ChunkShape) != len(full) || len(p.BufferShape) != len(full) {
		return ErrConfiguration.New(fmt.Sprintf("plan rank (chunk %v, buffer %v) does not match shape %v", p.ChunkShape, p.BufferShape, full))
	}
	for i := range full {
		c, b, f := p.ChunkShape[i], p.BufferShape[i], full[i]
		switch {
		case c < 1 || c > f:
			return ErrConfiguration.New(fmt.Sprintf("chunk shape %v is outside shape %v on axis %d", p.ChunkShape, full, i))
		case b < c || b > f:
			return ErrConfiguration.New(fmt.Sprintf("buffer shape %v is outside chunk %v and shape %v on axis %d", p.BufferShape, p.ChunkShape, full, i))
		case f > c && b%c != 0 && b != f:
			return ErrConfiguration.New(fmt.Sprintf("buffer shape %v is not a multiple of chunk shape %v on axis %d", p.BufferShape, p.ChunkShape, i))
		}
	}
	return nil
}

// Equal reports whether p and o have the same shapes.
func (p Plan) Equal(o Plan) bool {
	return equal(p.ChunkShape, o.ChunkShape) && equal(p.BufferShape, o.BufferShape)
}

// ChunkBytes returns the size of one chunk, saturating.
func (p Plan) ChunkBytes(item uint64) uint64 {
	return productSat(item, p.ChunkShape)
}

// BufferBytes returns the size of one buffer, saturating.
func (p Plan) BufferBytes(item uint64) uint64 {
	return productSat(item, p.BufferShape)
}

func (p Plan) String() string {
	return fmt.Sprintf("chunk %v buffer %v", p.ChunkShape, p.BufferShape)
}

// Compute plans a dataset of shape full with itemSize bytes per element.
func Compute(full []uint64, itemSize uint64, opts Options) (Plan, error) {
	if err := checkShape(full, itemSize); err != nil {
		return Plan{}, err
	}
	opts, err := opts.withDefaults(len(full))
	if err != nil {
		return Plan{}, err
	}

	chunk, err := chunkShape(full, itemSize, opts.ChunkBytes, opts.AxisPriority)
	if err != nil {
		return Plan{}, err
	}
	buffer := bufferShape(full, chunk, itemSize, opts.BufferBytes, opts.AxisPriority)
	return NewPlan(full, chunk, buffer)
}

// BufferShape derives a buffer shape for an existing chunk shape.
func BufferShape(full, chunk []uint64, itemSize uint64, opts Options) ([]uint64, error) {
	if err := checkShape(full, itemSize); err != nil {
		return nil, err
	}
	opts, err := opts.withDefaults(len(full))
	if err != nil {
		return nil, err
	}
	if len(chunk) != len(full) {
		return nil, ErrConfiguration.New(fmt.Sprintf("chunk shape %v does not match shape %v", chunk, full))
	}
	for i := range chunk {
		if chunk[i] < 1 || chunk[i] > full[i] {
			return nil, ErrConfiguration.New(fmt.Sprintf("chunk shape %v is outside shape %v", chunk, full))
		}
	}
	return bufferShape(full, chunk, itemSize, opts.BufferBytes, opts.AxisPriority), nil
}

func checkShape(full []uint64, itemSize uint64) error {
	if len(full) == 0 {
		return ErrConfiguration.New("scalar datasets cannot be chunked")
	}
	for _, d := range full {
		if d == 0 {
			return ErrEmptyDataset.New(full)
		}
	}
	if itemSize == 0 {
		return ErrConfiguration.New("item size is zero")
	}
	return nil
}

// chunkShape grows each axis in order as far as the budget allows. An axis
// that stops short of its extent leaves too little budget for any later
// axis to grow, so later axes only grow once earlier ones are saturated.
func chunkShape(full []uint64, item, budget uint64, order []int) ([]uint64, error) {
	if productSat(item, full) <= budget {
		return append([]uint64(nil), full...), nil
	}
	if item > budget {
		return nil, ErrConfiguration.New(fmt.Sprintf("item size %d exceeds chunk budget %d", item, budget))
	}

	chunk := make([]uint64, len(full))
	for i := range chunk {
		chunk[i] = 1
	}
	for _, ax := range order {
		unit := productExcept(item, chunk, ax)
		chunk[ax] = max(1, largestFit(budget, unit, full[ax]))
	}
	return chunk, nil
}

// bufferShape grows each axis of chunk to the full extent or to the
// largest chunk multiple within budget. A chunk larger than the budget
// is its own buffer.
func bufferShape(full, chunk []uint64, item, budget uint64, order []int) []uint64 {
	buffer := append([]uint64(nil), chunk...)
	for _, ax := range order {
		rest := productExcept(item, buffer, ax)
		if mulSat(rest, full[ax]) <= budget {
			buffer[ax] = full[ax]
			continue
		}
		k := largestFit(budget, mulSat(rest, chunk[ax]), full[ax])
		buffer[ax] = max(1, k) * chunk[ax]
	}
	return buffer
}

// EachRegion calls fn for every buffer-sized region of full in row-major
// order. Edge regions are truncated to the dataset extent.
func EachRegion(full, buffer []uint64, fn func(start, count []uint64) error) error {
	if len(full) != len(buffer) {
		return ErrConfiguration.New(fmt.Sprintf("buffer shape %v does not match shape %v", buffer, full))
	}
	for i := range full {
		if full[i] == 0 {
			return nil
		}
		if buffer[i] == 0 {
			return ErrConfiguration.New(fmt.Sprintf("buffer shape %v has a zero axis", buffer))
		}
	}

	ndims := len(full)
	start := make([]uint64, ndims)
	for {
		count := make([]uint64, ndims)
		for i := range full {
			count[i] = min(buffer[i], full[i]-start[i])
		}
		if err := fn(append([]uint64(nil), start...), count); err != nil {
			return err
		}

		i := ndims - 1
		for ; i >= 0; i-- {
			start[i] += buffer[i]
			if start[i] < full[i] {
				break
			}
			start[i] = 0
		}
		if i < 0 {
			return nil
		}
	}
}

func equal(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
