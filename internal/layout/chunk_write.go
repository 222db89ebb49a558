package layout

import (
	"fmt"
	"io"
	"math/bits"
	"sync"

	"github.com/robert-malhotra/go-chunkplan/internal/alloc"
	"github.com/robert-malhotra/go-chunkplan/internal/binary"
	"github.com/robert-malhotra/go-chunkplan/internal/filter"
	"github.com/robert-malhotra/go-chunkplan/internal/message"
)

// Entry locates one stored chunk.
type Entry struct {
	Addr       uint64
	Size       uint64 // stored (filtered) size
	FilterMask uint32
}

// Written reports whether the chunk was stored.
func (e Entry) Written() bool {
	return e.Addr != binary.Undefined
}

// Fixed array signatures.
const (
	fixedArrayHeader    = "FAHD"
	fixedArrayDataBlock = "FADB"
)

// Fixed array client IDs.
const (
	clientUnfiltered uint8 = 0
	clientFiltered   uint8 = 1
)

// minPageBits matches the page size HDF5 uses for dataset fixed arrays.
const minPageBits = 10

// ChunkWriter stores the chunks of one dataset and writes its chunk index.
// WriteChunk may be called concurrently.
type ChunkWriter struct {
	w        io.WriterAt
	alloc    *alloc.Allocator
	cfg      binary.Config
	grid     Grid
	item     uint64
	pipeline *filter.Pipeline
	filtered bool

	mu      sync.Mutex
	entries []Entry
}

// NewChunkWriter returns a writer for a dataset tiled by grid with item
// bytes per element. fp may be nil for unfiltered chunks.
func NewChunkWriter(w io.WriterAt, a *alloc.Allocator, cfg binary.Config, grid Grid, item uint64, fp *message.FilterPipeline) (*ChunkWriter, error) {
	p, err := filter.NewPipeline(fp)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, grid.Len())
	for i := range entries {
		entries[i].Addr = binary.Undefined
	}
	return &ChunkWriter{
		w:        w,
		alloc:    a,
		cfg:      cfg,
		grid:     grid,
		item:     item,
		pipeline: p,
		filtered: !p.Empty(),
		entries:  entries,
	}, nil
}

// WriteChunk filters and stores the full-size chunk at coords.
func (cw *ChunkWriter) WriteChunk(coords []uint64, data []byte) error {
	if want := cw.grid.ChunkBytes(cw.item); uint64(len(data)) != want {
		return fmt.Errorf("chunk %v holds %d bytes, want %d", coords, len(data), want)
	}
	idx := cw.grid.Index(coords)
	if idx >= uint64(len(cw.entries)) {
		return fmt.Errorf("chunk %v is outside the grid %v", coords, cw.grid.Counts())
	}

	encoded, mask, err := cw.pipeline.Encode(data)
	if err != nil {
		return fmt.Errorf("chunk %v: %w", coords, err)
	}
	addr := cw.alloc.Alloc(uint64(len(encoded)), alloc.RawData)
	if _, err := cw.w.WriteAt(encoded, int64(addr)); err != nil {
		return fmt.Errorf("chunk %v: %w", coords, err)
	}

	cw.mu.Lock()
	cw.entries[idx] = Entry{Addr: addr, Size: uint64(len(encoded)), FilterMask: mask}
	cw.mu.Unlock()
	return nil
}

// Finish writes the chunk index and records it in l. A dataset of one
// chunk uses the single chunk index; anything larger uses a fixed array.
func (cw *ChunkWriter) Finish(l *message.DataLayout) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if len(cw.entries) == 1 {
		e := cw.entries[0]
		l.Index = message.ChunkIndexSingleChunk
		l.Address = e.Addr
		if cw.filtered {
			l.Flags |= message.FlagSingleIndexWithFilter
			l.FilteredSize = e.Size
			l.FilterMask = e.FilterMask
		}
		return nil
	}

	addr, pageBits, err := cw.writeFixedArray()
	if err != nil {
		return err
	}
	l.Index = message.ChunkIndexFixedArray
	l.PageBits = pageBits
	l.Address = addr
	return nil
}

func (cw *ChunkWriter) writeFixedArray() (uint64, uint8, error) {
	n := uint64(len(cw.entries))
	pageBits := uint8(max(minPageBits, bits.Len64(n-1)))

	client := clientUnfiltered
	sizeWidth := 0
	entrySize := cw.cfg.OffsetSize
	if cw.filtered {
		client = clientFiltered
		sizeWidth = chunkSizeWidth(cw.grid.ChunkBytes(cw.item))
		entrySize += sizeWidth + 4
	}

	headerSize := 4 + 4 + cw.cfg.LengthSize + cw.cfg.OffsetSize + 4
	blockSize := 4 + 2 + cw.cfg.OffsetSize + int(n)*entrySize + 4
	headerAddr := cw.alloc.Alloc(uint64(headerSize), alloc.Metadata)
	blockAddr := cw.alloc.Alloc(uint64(blockSize), alloc.Metadata)

	b := binary.NewEncoder(cw.cfg)
	b.String(fixedArrayDataBlock)
	b.Uint8(0)
	b.Uint8(client)
	b.Offset(headerAddr)
	for _, e := range cw.entries {
		b.Offset(e.Addr)
		if cw.filtered {
			b.UintN(e.Size, sizeWidth)
			b.Uint32(e.FilterMask)
		}
	}
	b.Checksum()

	h := binary.NewEncoder(cw.cfg)
	h.String(fixedArrayHeader)
	h.Uint8(0)
	h.Uint8(client)
	h.Uint8(uint8(entrySize))
	h.Uint8(pageBits)
	h.Length(n)
	h.Offset(blockAddr)
	h.Checksum()

	if _, err := cw.w.WriteAt(b.Bytes(), int64(blockAddr)); err != nil {
		return 0, 0, fmt.Errorf("fixed array data block: %w", err)
	}
	if _, err := cw.w.WriteAt(h.Bytes(), int64(headerAddr)); err != nil {
		return 0, 0, fmt.Errorf("fixed array header: %w", err)
	}
	return headerAddr, pageBits, nil
}

// Entries returns a copy of the chunk entries in row-major grid order.
func (cw *ChunkWriter) Entries() []Entry {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return append([]Entry(nil), cw.entries...)
}

// chunkSizeWidth is the byte width of a filtered chunk size: one more than
// needed for the unfiltered size, capped at 8.
func chunkSizeWidth(chunkBytes uint64) int {
	log2 := bits.Len64(chunkBytes) - 1
	if log2 < 0 {
		log2 = 0
	}
	return min(8, 1+(log2+8)/8)
}
