package backend

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-chunkplan/dtype"
)

func overrideFixture(t *testing.T, k Kind) *Configuration {
	t.Helper()
	c := New(k)
	require.NoError(t, c.Insert(newTestConfig(t, k, "acquisition/data", []uint64{1000, 64}, dtype.Float64)))
	require.NoError(t, c.Insert(newTestConfig(t, k, "acquisition/timestamps", []uint64{1000}, dtype.Float64)))
	return c
}

func TestWriteYAMLReadBack(t *testing.T) {
	c := overrideFixture(t, Zarr)

	var buf bytes.Buffer
	require.NoError(t, c.WriteYAML(&buf))
	out := buf.String()
	assert.Contains(t, out, "backend: zarr")
	assert.Contains(t, out, "full_shape: [1000, 64]")

	doc, err := ReadOverrides(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, Zarr, doc.Backend)
	assert.Equal(t, "<f8", doc.Datasets["acquisition/data"].Dtype)

	other := overrideFixture(t, Zarr)
	require.NoError(t, other.ApplyOverrides(doc))
	assert.True(t, c.Equal(other))
}

func TestApplyOverridesChunkShape(t *testing.T) {
	c := overrideFixture(t, HDF5)
	doc, err := ReadOverrides(strings.NewReader(`
datasets:
  acquisition/data:
    chunk_shape: [100, 64]
    compression:
      method: gzip
      options: {level: 9, shuffle: true}
`))
	require.NoError(t, err)
	require.NoError(t, c.ApplyOverrides(doc))

	d, _ := c.Get("acquisition/data")
	assert.Equal(t, []uint64{100, 64}, d.Plan().ChunkShape)
	assert.Equal(t, []uint64{1000, 64}, d.Plan().BufferShape)
	assert.Equal(t, "gzip(level=9,shuffle=true)", d.Compression().String())

	ts, _ := c.Get("acquisition/timestamps")
	assert.Equal(t, []uint64{1000}, ts.Plan().ChunkShape)
}

func TestApplyOverridesZarrFilters(t *testing.T) {
	c := overrideFixture(t, Zarr)
	doc, err := ReadOverrides(strings.NewReader(`
backend: zarr
datasets:
  acquisition/timestamps:
    compression:
      filters:
        - {id: shuffle, elementsize: 8}
        - {id: zstd, level: 5}
`))
	require.NoError(t, err)
	require.NoError(t, c.ApplyOverrides(doc))

	d, _ := c.Get("acquisition/timestamps")
	assert.Equal(t, "shuffle(elementsize=8) | zstd(level=5)", d.Compression().String())
}

func TestApplyOverridesErrors(t *testing.T) {
	cases := []struct {
		name string
		kind Kind
		yaml string
		is   func(error) bool
	}{
		{"backend mismatch", HDF5, "backend: zarr\n", ErrBackendMismatch.Is},
		{"unknown location", HDF5, "datasets:\n  nowhere: {chunk_shape: [1]}\n", ErrUnknownLocation.Is},
		{"shape change", HDF5, "datasets:\n  acquisition/timestamps: {full_shape: [10]}\n", ErrValidation.Is},
		{"dtype change", HDF5, "datasets:\n  acquisition/timestamps: {dtype: <i4}\n", ErrValidation.Is},
		{"chunk too big", HDF5, "datasets:\n  acquisition/timestamps: {chunk_shape: [2000]}\n", ErrValidation.Is},
		{"zarr filters on hdf5", HDF5,
			"datasets:\n  acquisition/timestamps:\n    compression: {filters: [{id: gzip}]}\n", ErrValidation.Is},
		{"hdf5 method on zarr", Zarr,
			"datasets:\n  acquisition/timestamps:\n    compression: {method: gzip}\n", ErrValidation.Is},
		{"unknown codec", Zarr,
			"datasets:\n  acquisition/timestamps:\n    compression: {filters: [{id: blosc}]}\n", ErrValidation.Is},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := overrideFixture(t, tc.kind)
			before := c.Fingerprint()
			doc, err := ReadOverrides(strings.NewReader(tc.yaml))
			require.NoError(t, err)
			err = c.ApplyOverrides(doc)
			assert.True(t, tc.is(err), "got %v", err)
			assert.Equal(t, before, c.Fingerprint())
		})
	}
}

func TestApplyOverridesStopsAtFirstError(t *testing.T) {
	c := overrideFixture(t, HDF5)
	doc, err := ReadOverrides(strings.NewReader(`
datasets:
  acquisition/data: {chunk_shape: [10, 64]}
  acquisition/timestamps: {chunk_shape: [0]}
`))
	require.NoError(t, err)
	assert.Error(t, c.ApplyOverrides(doc))

	d, _ := c.Get("acquisition/data")
	assert.Equal(t, []uint64{10, 64}, d.Plan().ChunkShape)
}

func TestReadOverrides(t *testing.T) {
	doc, err := ReadOverrides(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, doc.Datasets)

	_, err = ReadOverrides(strings.NewReader("datasets:\n  x: {chunks: [1]}\n"))
	assert.Error(t, err)

	_, err = ReadOverrides(strings.NewReader("backend: netcdf\n"))
	assert.Error(t, err)
}
