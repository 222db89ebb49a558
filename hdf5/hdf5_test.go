package hdf5

import (
	"bytes"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/robert-malhotra/go-chunkplan/dtype"
	"github.com/robert-malhotra/go-chunkplan/internal/message"
)

func int16Data(t *testing.T, n int) []byte {
	t.Helper()
	vals := make([]int16, n)
	for i := range vals {
		vals[i] = int16(i*3 - 100)
	}
	b, err := dtype.Encode(dtype.Int16, vals)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return b
}

func TestCreateEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.h5")

	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !f.IsWritable() {
		t.Error("File should be writable")
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f2, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f2.Close()

	if f2.Version() != 3 {
		t.Errorf("Expected superblock version 3, got %d", f2.Version())
	}
	members, err := f2.Root().Members()
	if err != nil {
		t.Fatalf("Members failed: %v", err)
	}
	if len(members) != 0 {
		t.Errorf("Expected no members, got %v", members)
	}
}

func TestDatasetRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		opts    []DatasetOption
		filters []uint16
	}{
		{"plain", []DatasetOption{WithChunks(2, 3)}, nil},
		{"gzip", []DatasetOption{WithChunks(2, 3), WithGzip(4)}, []uint16{message.FilterDeflate}},
		{"all filters", []DatasetOption{WithChunks(2, 3), WithShuffle(), WithGzip(9), WithFletcher32()},
			[]uint16{message.FilterShuffle, message.FilterDeflate, message.FilterFletcher32}},
		{"single chunk", []DatasetOption{WithGzip(1)}, []uint16{message.FilterDeflate}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "data.h5")
			shape := []uint64{5, 7}
			data := int16Data(t, 35)

			f, err := Create(path)
			if err != nil {
				t.Fatalf("Create failed: %v", err)
			}
			w, err := f.Root().CreateDataset("values", shape, dtype.Int16, tt.opts...)
			if err != nil {
				t.Fatalf("CreateDataset failed: %v", err)
			}
			if err := w.Write(data); err != nil {
				t.Fatalf("Write failed: %v", err)
			}
			if err := f.Close(); err != nil {
				t.Fatalf("Close failed: %v", err)
			}

			f2, err := Open(path)
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			defer f2.Close()

			ds, err := f2.OpenDataset("/values")
			if err != nil {
				t.Fatalf("OpenDataset failed: %v", err)
			}
			if got := ds.Shape(); got[0] != 5 || got[1] != 7 {
				t.Errorf("Shape = %v, want [5 7]", got)
			}
			d, err := ds.Dtype()
			if err != nil {
				t.Fatalf("Dtype failed: %v", err)
			}
			if d != dtype.Int16 {
				t.Errorf("Dtype = %v, want int16", d)
			}
			if ds.Layout() != "chunked" {
				t.Errorf("Layout = %s, want chunked", ds.Layout())
			}
			if ds.BackingFile() != path {
				t.Errorf("BackingFile = %s, want %s", ds.BackingFile(), path)
			}

			filters := ds.Filters()
			if len(filters) != len(tt.filters) {
				t.Fatalf("Filters = %v, want ids %v", filters, tt.filters)
			}
			for i, id := range tt.filters {
				if filters[i].ID != id {
					t.Errorf("filter %d: ID = %d, want %d", i, filters[i].ID, id)
				}
			}

			got, err := ds.Read()
			if err != nil {
				t.Fatalf("Read failed: %v", err)
			}
			if !bytes.Equal(got, data) {
				t.Error("Read data does not match written data")
			}

			size, err := ds.StorageSize()
			if err != nil {
				t.Fatalf("StorageSize failed: %v", err)
			}
			if size == 0 {
				t.Error("StorageSize should be positive")
			}
		})
	}
}

func TestChunkShapeReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunks.h5")

	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	w, err := f.Root().CreateDataset("x", []uint64{100, 4}, dtype.Float64, WithChunks(30, 4))
	if err != nil {
		t.Fatalf("CreateDataset failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("DatasetWriter.Close failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f2, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f2.Close()
	ds, err := f2.OpenDataset("x")
	if err != nil {
		t.Fatalf("OpenDataset failed: %v", err)
	}
	chunks := ds.ChunkShape()
	if len(chunks) != 2 || chunks[0] != 30 || chunks[1] != 4 {
		t.Errorf("ChunkShape = %v, want [30 4]", chunks)
	}

	// nothing was written
	size, err := ds.StorageSize()
	if err != nil {
		t.Fatalf("StorageSize failed: %v", err)
	}
	if size != 0 {
		t.Errorf("StorageSize = %d, want 0", size)
	}
	got, err := ds.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(got, make([]byte, 100*4*8)) {
		t.Error("unwritten dataset should read as zeros")
	}
}

func TestConcurrentRegions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regions.h5")
	shape := []uint64{10, 6}
	data := int16Data(t, 60)

	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	w, err := f.Root().CreateDataset("series", shape, dtype.Int16, WithChunks(4, 6), WithGzip(4))
	if err != nil {
		t.Fatalf("CreateDataset failed: %v", err)
	}

	// rows 0-3, 4-7, 8-9
	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i, rows := range [][2]uint64{{0, 4}, {4, 4}, {8, 2}} {
		wg.Add(1)
		go func(i int, start, count uint64) {
			defer wg.Done()
			region := data[start*6*2 : (start+count)*6*2]
			errs[i] = w.WriteRegion([]uint64{start, 0}, []uint64{count, 6}, region)
		}(i, rows[0], rows[1])
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("region %d: %v", i, err)
		}
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f2, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f2.Close()
	ds, err := f2.OpenDataset("series")
	if err != nil {
		t.Fatalf("OpenDataset failed: %v", err)
	}
	got, err := ds.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("Read data does not match written regions")
	}

	part, err := ds.ReadRegion([]uint64{8, 2}, []uint64{2, 3})
	if err != nil {
		t.Fatalf("ReadRegion failed: %v", err)
	}
	want := append(append([]byte(nil), data[(8*6+2)*2:(8*6+5)*2]...), data[(9*6+2)*2:(9*6+5)*2]...)
	if !bytes.Equal(part, want) {
		t.Errorf("ReadRegion = %v, want %v", part, want)
	}
}

func TestUnalignedRegion(t *testing.T) {
	f, err := Create(filepath.Join(t.TempDir(), "bad.h5"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer f.Close()
	w, err := f.Root().CreateDataset("x", []uint64{10}, dtype.Uint8, WithChunks(4))
	if err != nil {
		t.Fatalf("CreateDataset failed: %v", err)
	}
	if err := w.WriteRegion([]uint64{2}, []uint64{4}, make([]byte, 4)); err == nil {
		t.Error("expected error for a region not aligned to chunks")
	}
}

func TestElementTypes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "types.h5")

	boolData, _ := dtype.Encode(dtype.Bool8, []bool{true, false, true})
	strType := dtype.StringOf(5)
	strData, err := dtype.Encode(strType, []string{"ab", "hello", ""})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	floatData, _ := dtype.Encode(dtype.Float32, []float32{1.5, -2, 3.25})

	cases := []struct {
		name string
		d    dtype.Descriptor
		data []byte
	}{
		{"flags", dtype.Bool8, boolData},
		{"labels", strType, strData},
		{"gains", dtype.Float32, floatData},
		{"counts", dtype.Uint64, make([]byte, 24)},
	}

	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	for _, c := range cases {
		w, err := f.Root().CreateDataset(c.name, []uint64{3}, c.d)
		if err != nil {
			t.Fatalf("%s: CreateDataset failed: %v", c.name, err)
		}
		if err := w.Write(c.data); err != nil {
			t.Fatalf("%s: Write failed: %v", c.name, err)
		}
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f2, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f2.Close()
	for _, c := range cases {
		ds, err := f2.OpenDataset(c.name)
		if err != nil {
			t.Fatalf("%s: OpenDataset failed: %v", c.name, err)
		}
		d, err := ds.Dtype()
		if err != nil {
			t.Fatalf("%s: Dtype failed: %v", c.name, err)
		}
		if d != c.d {
			t.Errorf("%s: Dtype = %v, want %v", c.name, d, c.d)
		}
		got, err := ds.Read()
		if err != nil {
			t.Fatalf("%s: Read failed: %v", c.name, err)
		}
		if !bytes.Equal(got, c.data) {
			t.Errorf("%s: Read = %v, want %v", c.name, got, c.data)
		}
	}
}

func TestOffsetSize4(t *testing.T) {
	path := filepath.Join(t.TempDir(), "small.h5")

	f, err := Create(path, WithOffsetSize(4), WithLengthSize(4))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	g, err := f.Root().CreateGroup("g")
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	data := int16Data(t, 20)
	w, err := g.CreateDataset("d", []uint64{20}, dtype.Int16, WithChunks(8), WithGzip(4), WithFletcher32())
	if err != nil {
		t.Fatalf("CreateDataset failed: %v", err)
	}
	if err := w.Write(data); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f2, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f2.Close()
	if f2.superblock.OffsetSize != 4 {
		t.Errorf("Expected offset size 4, got %d", f2.superblock.OffsetSize)
	}
	ds, err := f2.OpenDataset("/g/d")
	if err != nil {
		t.Fatalf("OpenDataset failed: %v", err)
	}
	got, err := ds.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("Read data does not match written data")
	}
}

func TestCreateDatasetErrors(t *testing.T) {
	f, err := Create(filepath.Join(t.TempDir(), "errors.h5"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer f.Close()
	root := f.Root()

	if _, err := root.CreateDataset("a", []uint64{4}, dtype.Int8); err != nil {
		t.Fatalf("CreateDataset failed: %v", err)
	}
	if _, err := root.CreateDataset("a", []uint64{4}, dtype.Int8); !errors.Is(err, ErrExists) {
		t.Errorf("duplicate name: got %v, want ErrExists", err)
	}
	if _, err := root.CreateDataset("b", []uint64{4}, dtype.Int8, WithChunks(8)); err == nil {
		t.Error("expected error for a chunk larger than the dataset")
	}
	if _, err := root.CreateDataset("c", []uint64{0}, dtype.Int8); !errors.Is(err, ErrUnsupported) {
		t.Errorf("zero extent: got %v, want ErrUnsupported", err)
	}
	if _, err := root.CreateDataset("d/e", []uint64{4}, dtype.Int8); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("slash in name: got %v, want ErrInvalidPath", err)
	}
	if _, err := root.CreateDataset("f", []uint64{4}, dtype.Int8, WithGzip(11)); err == nil {
		t.Error("expected error for gzip level 11")
	}
}

func TestReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ro.h5")
	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f2, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f2.Close()
	if _, err := f2.Root().CreateGroup("x"); !errors.Is(err, ErrReadOnly) {
		t.Errorf("CreateGroup on read-only file: got %v, want ErrReadOnly", err)
	}
	if _, err := f2.OpenDataset("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("OpenDataset missing: got %v, want ErrNotFound", err)
	}
}

func TestOpenNotHDF5(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing.h5")); err == nil {
		t.Error("expected error opening a missing file")
	}
}
