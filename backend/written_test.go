package backend

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/robert-malhotra/go-chunkplan/dtype"
	"github.com/robert-malhotra/go-chunkplan/graph"
	"github.com/robert-malhotra/go-chunkplan/hdf5"
	"github.com/robert-malhotra/go-chunkplan/zarr"
)

func TestFromWrittenFileHDF5(t *testing.T) {
	path := filepath.Join(t.TempDir(), "written.h5")
	f, err := hdf5.Create(path)
	require.NoError(t, err)
	g, err := f.Root().RequireGroup("acquisition/ts")
	require.NoError(t, err)

	_, err = g.CreateDataset("data", []uint64{100, 8}, dtype.Int16,
		hdf5.WithChunks(10, 8), hdf5.WithGzip(6), hdf5.WithShuffle(), hdf5.WithFletcher32())
	require.NoError(t, err)
	_, err = g.CreateDataset("timestamps", []uint64{100}, dtype.Float64)
	require.NoError(t, err)
	_, err = f.Root().CreateDataset("names", []uint64{3}, dtype.StringOf(4), hdf5.WithChunks(2))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	c, err := FromWrittenFile(path, HDF5, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	assert.Equal(t, HDF5, c.Backend())
	assert.Equal(t, []graph.Location{
		"acquisition/ts/data",
		"acquisition/ts/timestamps",
		"names",
	}, c.Locations())

	d, _ := c.Get("acquisition/ts/data")
	assert.Equal(t, "data", d.DatasetName())
	assert.Equal(t, []uint64{10, 8}, d.Plan().ChunkShape)
	assert.Equal(t, []uint64{100, 8}, d.Plan().BufferShape)
	assert.Equal(t, dtype.Int16, d.Identity().Dtype)
	assert.Equal(t, "gzip(fletcher32=true,level=6,shuffle=true)", d.Compression().String())
	assert.False(t, d.Provisional())

	ts, _ := c.Get("acquisition/ts/timestamps")
	assert.Equal(t, []uint64{100}, ts.Plan().ChunkShape)
	assert.Equal(t, "none", ts.Compression().String())

	names, _ := c.Get("names")
	assert.Equal(t, dtype.StringOf(4), names.Identity().Dtype)
	assert.Equal(t, []uint64{2}, names.Plan().ChunkShape)
}

func TestFromWrittenFileZarr(t *testing.T) {
	path := filepath.Join(t.TempDir(), "written.zarr")
	root, err := zarr.Create(path)
	require.NoError(t, err)
	g, err := root.RequireGroup("acquisition")
	require.NoError(t, err)

	_, err = g.CreateArray("data", []uint64{100, 8}, dtype.Float32,
		zarr.WithChunks(25, 8),
		zarr.WithFilters(map[string]any{"id": "shuffle", "elementsize": 4}),
		zarr.WithCompressor(map[string]any{"id": "zstd", "level": 3}))
	require.NoError(t, err)
	_, err = g.CreateArray("oversized", []uint64{10}, dtype.Int8, zarr.WithChunks(64))
	require.NoError(t, err)
	writeArrayDocument(t, filepath.Join(path, "acquisition", "delta"))
	_, err = root.CreateArray("scalar", nil, dtype.Float64)
	require.NoError(t, err)
	_, err = root.CreateArray("empty", []uint64{0, 3}, dtype.Float64)
	require.NoError(t, err)

	c, err := FromWrittenFile(path, Zarr)
	require.NoError(t, err)
	assert.Equal(t, []graph.Location{
		"acquisition/data",
		"acquisition/delta",
		"acquisition/oversized",
	}, c.Locations())

	d, _ := c.Get("acquisition/data")
	assert.Equal(t, []uint64{25, 8}, d.Plan().ChunkShape)
	assert.Equal(t, "shuffle(elementsize=4) | zstd(level=3)", d.Compression().String())
	assert.False(t, d.Provisional())

	over, _ := c.Get("acquisition/oversized")
	assert.Equal(t, []uint64{10}, over.Plan().ChunkShape)
	assert.True(t, over.Provisional())
	assert.Equal(t, "none", over.Compression().String())

	unknown, _ := c.Get("acquisition/delta")
	assert.True(t, unknown.Provisional())
	assert.Equal(t, "gzip(level=1)", unknown.Compression().String())
}

func writeArrayDocument(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	doc := `{
    "zarr_format": 2,
    "shape": [10],
    "chunks": [5],
    "dtype": "|i1",
    "compressor": {"id": "gzip", "level": 1},
    "fill_value": 0,
    "order": "C",
    "filters": [{"id": "delta", "dtype": "|i1"}]
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".zarray"), []byte(doc), 0o644))
}

func TestFromWrittenFileErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := FromWrittenFile(filepath.Join(dir, "missing.h5"), HDF5)
	assert.Error(t, err)

	_, err = FromWrittenFile(dir, Zarr)
	assert.ErrorIs(t, err, zarr.ErrNotZarr)

	_, err = FromWrittenFile(dir, Kind(0))
	assert.True(t, ErrUnknownBackend.Is(err))
}

func TestDetectKind(t *testing.T) {
	dir := t.TempDir()

	store := filepath.Join(dir, "a.zarr")
	_, err := zarr.Create(store)
	require.NoError(t, err)
	k, err := DetectKind(store)
	require.NoError(t, err)
	assert.Equal(t, Zarr, k)

	file := filepath.Join(dir, "a.h5")
	f, err := hdf5.Create(file)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	k, err = DetectKind(file)
	require.NoError(t, err)
	assert.Equal(t, HDF5, k)

	_, err = DetectKind(dir)
	assert.True(t, ErrUnknownBackend.Is(err))
}

func TestClampChunk(t *testing.T) {
	chunk, clamped := clampChunk([]uint64{10, 20}, nil)
	assert.Equal(t, []uint64{10, 20}, chunk)
	assert.True(t, clamped)

	chunk, clamped = clampChunk([]uint64{10, 20}, []uint64{5, 40})
	assert.Equal(t, []uint64{5, 20}, chunk)
	assert.True(t, clamped)

	chunk, clamped = clampChunk([]uint64{10, 20}, []uint64{5, 20})
	assert.Equal(t, []uint64{5, 20}, chunk)
	assert.False(t, clamped)
}

func TestHDF5CompressionFromFilters(t *testing.T) {
	comp, exact := hdf5Compression([]hdf5.FilterInfo{
		{ID: filterShuffle},
		{ID: filterDeflate, ClientData: []uint32{9}},
	})
	assert.True(t, exact)
	assert.Equal(t, "gzip(level=9,shuffle=true)", comp.String())

	comp, exact = hdf5Compression([]hdf5.FilterInfo{{ID: filterLZF}})
	assert.True(t, exact)
	assert.Equal(t, "lzf", comp.String())

	comp, exact = hdf5Compression([]hdf5.FilterInfo{{ID: 307}})
	assert.False(t, exact)
	assert.Equal(t, "none", comp.String())
}
