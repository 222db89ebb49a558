package layout

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/robert-malhotra/go-chunkplan/internal/alloc"
	"github.com/robert-malhotra/go-chunkplan/internal/binary"
	"github.com/robert-malhotra/go-chunkplan/internal/filter"
	"github.com/robert-malhotra/go-chunkplan/internal/message"
)

func tempFile(t *testing.T) *os.File {
	t.Helper()
	f, err := os.Create(filepath.Join(t.TempDir(), "chunks.bin"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func writeAll(t *testing.T, fp *message.FilterPipeline, shape, chunk []uint64) (*os.File, *message.DataLayout, Grid, []byte) {
	t.Helper()
	f := tempFile(t)
	cfg := binary.DefaultConfig()
	grid, err := NewGrid(shape, chunk)
	if err != nil {
		t.Fatal(err)
	}
	data := seq(int(numElements(shape)) * 2)

	cw, err := NewChunkWriter(f, alloc.New(0), cfg, grid, 2, fp)
	if err != nil {
		t.Fatal(err)
	}
	chunks, err := grid.SplitRegion(data, make([]uint64, len(shape)), shape, 2)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range chunks {
		if err := cw.WriteChunk(c.Coords, c.Data); err != nil {
			t.Fatal(err)
		}
	}
	l := message.NewChunkedLayout(chunk, 2)
	if err := cw.Finish(l); err != nil {
		t.Fatal(err)
	}
	return f, l, grid, data
}

func readBack(t *testing.T, f *os.File, l *message.DataLayout, grid Grid, fp *message.FilterPipeline) []byte {
	t.Helper()
	r := binary.NewReader(f, binary.DefaultConfig())
	entries, err := ReadIndex(r, l, grid, 2, fp != nil)
	if err != nil {
		t.Fatalf("ReadIndex: %v", err)
	}
	p, _ := filter.NewPipeline(fp)
	out := make([]byte, numElements(grid.Shape)*2)
	zero := make([]uint64, len(grid.Shape))
	for i, e := range entries {
		chunk, err := ReadChunk(f, e, p, grid.ChunkBytes(2))
		if err != nil {
			t.Fatal(err)
		}
		coords := grid.Coords(uint64(i))
		origin := make([]uint64, len(coords))
		extent := make([]uint64, len(coords))
		for d := range coords {
			origin[d] = coords[d] * grid.Chunk[d]
			extent[d] = min(grid.Chunk[d], grid.Shape[d]-origin[d])
		}
		CopyBox(out, grid.Shape, origin, chunk, grid.Chunk, zero, extent, 2)
	}
	return out
}

func TestFixedArrayUnfiltered(t *testing.T) {
	f, l, grid, data := writeAll(t, nil, []uint64{10, 6}, []uint64{4, 4})
	if l.Index != message.ChunkIndexFixedArray || l.PageBits != minPageBits {
		t.Fatalf("layout %+v", l)
	}
	if got := readBack(t, f, l, grid, nil); !bytes.Equal(got, data) {
		t.Error("unfiltered round trip mismatch")
	}
}

func TestFixedArrayFiltered(t *testing.T) {
	fp := filter.Settings{Deflate: true, Level: 4, Shuffle: true}.Message(2)
	f, l, grid, data := writeAll(t, fp, []uint64{100}, []uint64{30})
	if l.Index != message.ChunkIndexFixedArray {
		t.Fatalf("index %d", l.Index)
	}
	if got := readBack(t, f, l, grid, fp); !bytes.Equal(got, data) {
		t.Error("filtered round trip mismatch")
	}
}

func TestSingleChunk(t *testing.T) {
	fp := filter.Settings{Deflate: true, Level: 1}.Message(2)
	f, l, grid, data := writeAll(t, fp, []uint64{5, 5}, []uint64{5, 5})
	if l.Index != message.ChunkIndexSingleChunk || l.Flags&message.FlagSingleIndexWithFilter == 0 {
		t.Fatalf("layout %+v", l)
	}
	if l.FilteredSize == 0 {
		t.Error("filtered size not recorded")
	}
	if got := readBack(t, f, l, grid, fp); !bytes.Equal(got, data) {
		t.Error("single chunk round trip mismatch")
	}
}

func TestUnwrittenChunksReadAsZero(t *testing.T) {
	f := tempFile(t)
	grid, _ := NewGrid([]uint64{4}, []uint64{2})
	cw, err := NewChunkWriter(f, alloc.New(0), binary.DefaultConfig(), grid, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := cw.WriteChunk([]uint64{1}, []byte{7, 8}); err != nil {
		t.Fatal(err)
	}
	l := message.NewChunkedLayout([]uint64{2}, 1)
	if err := cw.Finish(l); err != nil {
		t.Fatal(err)
	}

	entries, err := ReadIndex(binary.NewReader(f, binary.DefaultConfig()), l, grid, 1, false)
	if err != nil {
		t.Fatal(err)
	}
	if entries[0].Written() || !entries[1].Written() {
		t.Fatalf("entries %+v", entries)
	}
	if StorageSize(entries) != 2 {
		t.Errorf("StorageSize = %d", StorageSize(entries))
	}
	p, _ := filter.NewPipeline(nil)
	z, _ := ReadChunk(f, entries[0], p, 2)
	if !bytes.Equal(z, []byte{0, 0}) {
		t.Errorf("unwritten chunk = %v", z)
	}
}

func TestWriteChunkRejectsPartial(t *testing.T) {
	grid, _ := NewGrid([]uint64{4}, []uint64{2})
	cw, _ := NewChunkWriter(tempFile(t), alloc.New(0), binary.DefaultConfig(), grid, 1, nil)
	if err := cw.WriteChunk([]uint64{0}, []byte{1}); err == nil {
		t.Error("short chunk accepted")
	}
}

func TestChunkSizeWidth(t *testing.T) {
	cases := map[uint64]int{1: 2, 255: 2, 256: 3, 65535: 3, 65536: 4, 10_000_000: 4}
	for in, want := range cases {
		if got := chunkSizeWidth(in); got != want {
			t.Errorf("chunkSizeWidth(%d) = %d, want %d", in, got, want)
		}
	}
}
