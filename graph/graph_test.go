package graph

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-chunkplan/dtype"
)

type handle struct{ file string }

func (h *handle) BackingFile() string { return h.file }

func sampleGraph() (*Group, *Dataset, *Dataset) {
	data := NewDataset("data", []float64{1, 2, 3})
	ts := NewDataset("timestamps", []float64{0, 0.1, 0.2})
	series := NewGroup("ElectricalSeries", data, ts)
	root := NewGroup("root",
		NewGroup("acquisition", series),
		NewGroup("processing", NewGroup("ecephys", series)),
	)
	return root, data, ts
}

func TestWalkOrderAndDedup(t *testing.T) {
	root, _, _ := sampleGraph()

	var locs []Location
	err := Walk(root, func(loc Location, f Field) error {
		locs = append(locs, loc)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []Location{
		"acquisition/ElectricalSeries/data",
		"acquisition/ElectricalSeries/timestamps",
	}, locs)
}

func TestWalkSharedField(t *testing.T) {
	shared := NewDataset("x", []int32{1})
	root := NewGroup("root", NewGroup("a", shared), NewGroup("b", shared))

	var locs []Location
	require.NoError(t, Walk(root, func(loc Location, f Field) error {
		locs = append(locs, loc)
		return nil
	}))
	assert.Equal(t, []Location{"a/x"}, locs)
}

func TestWalkCycle(t *testing.T) {
	a := NewGroup("a", NewDataset("x", []int8{1}))
	b := NewGroup("b", a)
	a.Add(b)
	root := NewGroup("root", a)

	var n int
	require.NoError(t, Walk(root, func(Location, Field) error {
		n++
		return nil
	}))
	assert.Equal(t, 1, n)
}

func TestWalkStop(t *testing.T) {
	root, _, _ := sampleGraph()

	var n int
	require.NoError(t, Walk(root, func(Location, Field) error {
		n++
		return SkipAll
	}))
	assert.Equal(t, 1, n)

	boom := errors.New("boom")
	err := Walk(root, func(Location, Field) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestResolveLocation(t *testing.T) {
	root, data, ts := sampleGraph()

	loc, err := ResolveLocation(root, data)
	require.NoError(t, err)
	assert.Equal(t, Location("acquisition/ElectricalSeries/data"), loc)

	loc, err = ResolveLocation(root, ts)
	require.NoError(t, err)
	assert.Equal(t, "timestamps", loc.LastSegment())

	_, err = ResolveLocation(root, NewDataset("orphan", []int8{1}))
	assert.True(t, ErrNotFound.Is(err))
}

// columnField is a value-type Field whose slice makes it non-comparable.
type columnField struct {
	name   string
	values []float32
}

func (c columnField) Name() string { return c.name }
func (c columnField) Value() any   { return c.values }

func TestResolveLocationNonComparableField(t *testing.T) {
	col := columnField{name: "col", values: []float32{1, 2}}
	root := NewGroup("root", NewGroup("table", col))

	var locs []Location
	require.NoError(t, Walk(root, func(loc Location, f Field) error {
		locs = append(locs, loc)
		return nil
	}))
	assert.Equal(t, []Location{"table/col"}, locs)

	_, err := ResolveLocation(root, col)
	require.Error(t, err)
	assert.True(t, ErrNoIdentity.Is(err), "got %v", err)
	assert.False(t, ErrNotFound.Is(err))
	assert.Contains(t, err.Error(), "graph.columnField")
}

func TestIsAlreadyBacked(t *testing.T) {
	cases := []struct {
		name  string
		value any
		want  bool
	}{
		{"slice", []int32{1}, false},
		{"external link", ExternalLink{File: "raw.h5", Path: "/data"}, true},
		{"external link pointer", &ExternalLink{File: "raw.h5"}, true},
		{"open handle", &handle{file: "raw.h5"}, true},
		{"detached handle", &handle{}, false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsAlreadyBacked(NewDataset("f", tc.value)))
		})
	}
	assert.False(t, IsAlreadyBacked(nil))
}

func TestLocation(t *testing.T) {
	l := NewLocation("acquisition", "ts", "data")
	assert.Equal(t, []string{"acquisition", "ts", "data"}, l.Segments())
	assert.Equal(t, "data", l.LastSegment())
	assert.Equal(t, Location("acquisition/ts"), l.Parent())
	assert.Equal(t, Location("acquisition/ts/data/x"), l.Child("x"))
	assert.Equal(t, Location("x"), Location("").Child("x"))
	assert.Equal(t, Location(""), Location("x").Parent())
	assert.Nil(t, Location("").Segments())

	assert.NoError(t, l.Validate())
	assert.Error(t, Location("").Validate())
	assert.Error(t, Location("a//b").Validate())
}

func TestShapeOf(t *testing.T) {
	s, err := ShapeOf([][]int32{{1, 2, 3}, {4, 5, 6}})
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 3}, s)

	s, err = ShapeOf([]any{[]any{1, 2}, []any{3, 4}})
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 2}, s)

	s, err = ShapeOf([]any{[]byte("ab"), []byte("cd")})
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, s)

	_, err = ShapeOf([][]int32{{1, 2}, {3}})
	assert.True(t, ErrRagged.Is(err))

	_, err = ShapeOf(nil)
	assert.Error(t, err)
}

func TestArrayReadRegion(t *testing.T) {
	a, err := NewArray([][]int32{{1, 2, 3}, {4, 5, 6}})
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 3}, a.Shape())
	assert.Equal(t, dtype.Int32, a.Dtype())

	b, err := a.ReadRegion([]uint64{0, 1}, []uint64{2, 2})
	require.NoError(t, err)
	require.Len(t, b, 16)
	var got []int32
	for i := 0; i < len(b); i += 4 {
		got = append(got, int32(binary.LittleEndian.Uint32(b[i:])))
	}
	assert.Equal(t, []int32{2, 3, 5, 6}, got)

	_, err = a.ReadRegion([]uint64{1, 0}, []uint64{2, 1})
	assert.True(t, ErrRegion.Is(err))
}

func TestNewArrayOfReshape(t *testing.T) {
	a, err := NewArrayOf(dtype.Float64, []float64{1, 2, 3, 4, 5, 6}, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 2}, a.Shape())

	_, err = NewArrayOf(dtype.Float64, []float64{1, 2, 3}, 2, 2)
	assert.Error(t, err)
}

func TestLazyArray(t *testing.T) {
	zeros := NewLazyArray([]uint64{4}, dtype.Int16, nil)
	b, err := zeros.ReadRegion([]uint64{1}, []uint64{2})
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 4), b)

	short := NewLazyArray([]uint64{4}, dtype.Int16, func(start, count []uint64) ([]byte, error) {
		return []byte{1}, nil
	})
	_, err = short.ReadRegion([]uint64{0}, []uint64{1})
	assert.Error(t, err)

	arr, err := AsArray(zeros)
	require.NoError(t, err)
	assert.Same(t, zeros, arr)

	arr, err = AsArray([]uint8{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, arr.Shape())
}
