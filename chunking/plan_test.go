package chunking

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeRecordingScenario(t *testing.T) {
	full := []uint64{64, 30_000_000}
	p, err := Compute(full, 8, Options{ChunkBytes: MB(10)})
	require.NoError(t, err)

	assert.Equal(t, []uint64{64, 19531}, p.ChunkShape)
	assert.Equal(t, []uint64{64, 1_953_100}, p.BufferShape)
	assert.LessOrEqual(t, p.ChunkBytes(8), MB(10))
	assert.LessOrEqual(t, p.BufferBytes(8), GB(1))
}

func TestComputeSmallDatasetIsOneChunk(t *testing.T) {
	p, err := Compute([]uint64{3}, 8, Options{})
	require.NoError(t, err)
	assert.Equal(t, []uint64{3}, p.ChunkShape)
	assert.Equal(t, []uint64{3}, p.BufferShape)
}

func TestComputeExactBudget(t *testing.T) {
	// 1000 x 1250 float64 is exactly 10 MB.
	p, err := Compute([]uint64{1000, 1250}, 8, Options{})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1000, 1250}, p.ChunkShape)
}

func TestComputeOneDimensional(t *testing.T) {
	p, err := Compute([]uint64{100_000_000}, 4, Options{})
	require.NoError(t, err)
	assert.Equal(t, []uint64{2_500_000}, p.ChunkShape)
	assert.Equal(t, []uint64{100_000_000}, p.BufferShape)
}

func TestComputePrimaryAxisLimitsExtent(t *testing.T) {
	// 2M rows of 8 bytes fill the budget before the extent axis can grow.
	p, err := Compute([]uint64{5_000_000, 10}, 8, Options{ChunkBytes: 16_000_000})
	require.NoError(t, err)
	assert.Equal(t, []uint64{2_000_000, 1}, p.ChunkShape)
}

func TestComputeMiddleAxesGrowLast(t *testing.T) {
	// primary and extent saturate at 4*8*1 = 32 bytes, leaving room for axis 1.
	p, err := Compute([]uint64{4, 100, 8}, 1, Options{ChunkBytes: 32 * 10})
	require.NoError(t, err)
	assert.Equal(t, []uint64{4, 10, 8}, p.ChunkShape)

	// primary does not saturate, so neither extent nor middle axes grow.
	p, err = Compute([]uint64{1000, 100, 8}, 1, Options{ChunkBytes: 500})
	require.NoError(t, err)
	assert.Equal(t, []uint64{500, 1, 1}, p.ChunkShape)
}

func TestComputeAxisPriority(t *testing.T) {
	p, err := Compute([]uint64{64, 30_000_000}, 8, Options{AxisPriority: []int{1, 0}})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 1_250_000}, p.ChunkShape)

	_, err = Compute([]uint64{4, 4}, 8, Options{ChunkBytes: 8, AxisPriority: []int{0, 0}})
	require.Error(t, err)
	assert.True(t, ErrConfiguration.Is(err))

	_, err = Compute([]uint64{4, 4}, 8, Options{ChunkBytes: 8, AxisPriority: []int{0}})
	require.Error(t, err)
	assert.True(t, ErrConfiguration.Is(err))
}

func TestComputeEmptyDataset(t *testing.T) {
	_, err := Compute([]uint64{64, 0}, 8, Options{})
	require.Error(t, err)
	assert.True(t, ErrEmptyDataset.Is(err))
}

func TestComputeConfigurationErrors(t *testing.T) {
	_, err := Compute(nil, 8, Options{})
	require.Error(t, err)
	assert.True(t, ErrConfiguration.Is(err))

	_, err = Compute([]uint64{10}, 0, Options{})
	require.Error(t, err)
	assert.True(t, ErrConfiguration.Is(err))

	_, err = Compute([]uint64{10, 10}, 64, Options{ChunkBytes: 32})
	require.Error(t, err)
	assert.True(t, ErrConfiguration.Is(err))
}

func TestComputeHugeShapesDoNotOverflow(t *testing.T) {
	full := []uint64{math.MaxUint32, math.MaxUint32, math.MaxUint32}
	p, err := Compute(full, 16, Options{})
	require.NoError(t, err)
	assert.LessOrEqual(t, p.ChunkBytes(16), DefaultChunkBytes)
	assert.Equal(t, []uint64{625_000, 1, 1}, p.ChunkShape)
	require.NoError(t, p.Validate(full))
}

func TestBufferNeverSmallerThanChunk(t *testing.T) {
	p, err := Compute([]uint64{10_000, 10_000}, 8, Options{ChunkBytes: MB(10), BufferBytes: MB(1)})
	require.NoError(t, err)
	assert.Equal(t, p.ChunkShape, p.BufferShape)
}

func TestBufferShapeForExistingChunks(t *testing.T) {
	buf, err := BufferShape([]uint64{100, 1000}, []uint64{10, 100}, 1, Options{BufferBytes: 10_000})
	require.NoError(t, err)
	assert.Equal(t, []uint64{100, 100}, buf)

	_, err = BufferShape([]uint64{100}, []uint64{200}, 1, Options{})
	require.Error(t, err)
	assert.True(t, ErrConfiguration.Is(err))
}

func TestNewPlanValidates(t *testing.T) {
	_, err := NewPlan([]uint64{10}, []uint64{4}, []uint64{10})
	require.NoError(t, err)

	_, err = NewPlan([]uint64{10}, []uint64{4}, []uint64{6})
	require.Error(t, err)
	assert.True(t, ErrConfiguration.Is(err))

	_, err = NewPlan([]uint64{10}, []uint64{11}, []uint64{11})
	require.Error(t, err)

	_, err = NewPlan([]uint64{10}, []uint64{0}, []uint64{10})
	require.Error(t, err)

	_, err = NewPlan([]uint64{10}, []uint64{4}, []uint64{2})
	require.Error(t, err)

	_, err = NewPlan([]uint64{10, 2}, []uint64{4}, []uint64{4})
	require.Error(t, err)
}

func TestComputeProperties(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	items := []uint64{1, 2, 4, 8, 16, 100}

	for n := 0; n < 2000; n++ {
		rank := 1 + rng.IntN(4)
		full := make([]uint64, rank)
		for i := range full {
			full[i] = 1 + rng.Uint64N(1<<uint(4+rng.IntN(24)))
		}
		item := items[rng.IntN(len(items))]
		opts := Options{
			ChunkBytes:  item + rng.Uint64N(MB(20)),
			BufferBytes: rng.Uint64N(GB(2)),
		}

		p, err := Compute(full, item, opts)
		require.NoError(t, err, "shape %v item %d", full, item)

		budget := opts.ChunkBytes
		if budget == 0 {
			budget = DefaultChunkBytes
		}
		whole := productSat(item, full) <= budget
		for i := range full {
			assert.LessOrEqual(t, p.ChunkShape[i], full[i])
			assert.LessOrEqual(t, p.BufferShape[i], full[i])
			assert.GreaterOrEqual(t, p.BufferShape[i], p.ChunkShape[i])
			if full[i] > p.ChunkShape[i] {
				assert.True(t, p.BufferShape[i]%p.ChunkShape[i] == 0 || p.BufferShape[i] == full[i])
			}
		}
		if !whole {
			assert.LessOrEqual(t, p.ChunkBytes(item), budget, "shape %v item %d", full, item)
		}

		again, err := Compute(full, item, opts)
		require.NoError(t, err)
		assert.True(t, p.Equal(again))
	}
}

func TestEachRegion(t *testing.T) {
	var starts, counts [][]uint64
	err := EachRegion([]uint64{5, 3}, []uint64{2, 3}, func(start, count []uint64) error {
		starts = append(starts, start)
		counts = append(counts, count)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, [][]uint64{{0, 0}, {2, 0}, {4, 0}}, starts)
	assert.Equal(t, [][]uint64{{2, 3}, {2, 3}, {1, 3}}, counts)
}

func TestMBGB(t *testing.T) {
	assert.Equal(t, uint64(10_000_000), MB(10))
	assert.Equal(t, uint64(500_000), MB(0.5))
	assert.Equal(t, uint64(1_000_000_000), GB(1))
	assert.Equal(t, uint64(0), MB(-1))
	assert.Equal(t, uint64(math.MaxUint64), GB(1e30))
}
