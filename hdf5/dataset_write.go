package hdf5

import (
	"fmt"
	"sync"

	"github.com/robert-malhotra/go-chunkplan/dtype"
	"github.com/robert-malhotra/go-chunkplan/internal/alloc"
	"github.com/robert-malhotra/go-chunkplan/internal/filter"
	"github.com/robert-malhotra/go-chunkplan/internal/layout"
	"github.com/robert-malhotra/go-chunkplan/internal/message"
	"github.com/robert-malhotra/go-chunkplan/internal/object"
)

// DatasetWriter stores the chunks of a dataset being created. Data is
// written region by region; regions must be aligned to the chunk grid.
// WriteRegion may be called from several goroutines. The object header is
// written when the writer is closed, or when the file is closed.
type DatasetWriter struct {
	file   *File
	path   string
	shape  []uint64
	dtype  dtype.Descriptor
	grid   layout.Grid
	dt     *message.Datatype
	layout *message.DataLayout
	fp     *message.FilterPipeline
	cw     *layout.ChunkWriter

	mu     sync.Mutex
	addr   uint64
	closed bool
}

// CreateDataset creates a chunked dataset named name with the given shape
// and element type. Without WithChunks the dataset is a single chunk.
func (g *Group) CreateDataset(name string, shape []uint64, d dtype.Descriptor, opts ...DatasetOption) (*DatasetWriter, error) {
	if err := g.writable(); err != nil {
		return nil, err
	}
	o := &datasetOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.err != nil {
		return nil, fmt.Errorf("dataset %s: %w", name, o.err)
	}

	if len(shape) == 0 {
		return nil, fmt.Errorf("%w: scalar dataset %s", ErrUnsupported, name)
	}
	for i, n := range shape {
		if n == 0 {
			return nil, fmt.Errorf("%w: dataset %s has zero extent on axis %d", ErrUnsupported, name, i)
		}
	}
	chunks := o.chunks
	if chunks == nil {
		chunks = shape
	}
	grid, err := layout.NewGrid(shape, chunks)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", name, err)
	}
	for i := range chunks {
		if chunks[i] > shape[i] {
			return nil, fmt.Errorf("dataset %s: chunk %v exceeds shape %v", name, chunks, shape)
		}
	}

	dt, err := message.FromDescriptor(d)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", name, err)
	}
	settings := filter.Settings{Deflate: o.deflate, Level: o.level, Shuffle: o.shuffle, Fletcher32: o.fletcher32}
	fp := settings.Message(d.Size)
	cw, err := layout.NewChunkWriter(g.file.file, g.file.allocator, g.file.superblock.Config(), grid, d.Size, fp)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", name, err)
	}

	w := &DatasetWriter{
		file:   g.file,
		path:   JoinPath(g.path, name),
		shape:  append([]uint64(nil), shape...),
		dtype:  d,
		grid:   grid,
		dt:     dt,
		layout: message.NewChunkedLayout(append([]uint64(nil), chunks...), d.Size),
		fp:     fp,
		cw:     cw,
	}

	g.file.mu.Lock()
	defer g.file.mu.Unlock()
	if err := g.addEntry(&groupEntry{name: name, dataset: w}); err != nil {
		return nil, err
	}
	return w, nil
}

// Path returns the full path of the dataset.
func (w *DatasetWriter) Path() string { return w.path }

// Shape returns the dataset dimensions.
func (w *DatasetWriter) Shape() []uint64 { return w.shape }

// ChunkShape returns the chunk dimensions.
func (w *DatasetWriter) ChunkShape() []uint64 { return w.grid.Chunk }

// WriteRegion stores data, the row-major little-endian bytes of the region
// start+count. The region is split into chunks; edge chunks are padded
// with zeros.
func (w *DatasetWriter) WriteRegion(start, count []uint64, data []byte) error {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return fmt.Errorf("dataset %s: %w", w.path, ErrClosed)
	}

	chunks, err := w.grid.SplitRegion(data, start, count, w.dtype.Size)
	if err != nil {
		return fmt.Errorf("dataset %s: %w", w.path, err)
	}
	for _, c := range chunks {
		if err := w.cw.WriteChunk(c.Coords, c.Data); err != nil {
			return fmt.Errorf("dataset %s: %w", w.path, err)
		}
	}
	return nil
}

// Write stores the whole dataset.
func (w *DatasetWriter) Write(data []byte) error {
	return w.WriteRegion(make([]uint64, len(w.shape)), w.shape, data)
}

// StorageSize returns the stored size of the chunks written so far.
func (w *DatasetWriter) StorageSize() uint64 {
	return layout.StorageSize(w.cw.Entries())
}

// Close writes the chunk index and object header. Chunks never written
// read back as zeros.
func (w *DatasetWriter) Close() error {
	_, err := w.commit()
	return err
}

// commit finishes the dataset once and returns its header address.
func (w *DatasetWriter) commit() (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return w.addr, nil
	}

	if err := w.cw.Finish(w.layout); err != nil {
		return 0, fmt.Errorf("dataset %s: %w", w.path, err)
	}
	msgs := []message.Encodable{message.NewDataspace(w.shape), w.dt}
	if w.fp != nil {
		msgs = append(msgs, w.fp)
	}
	msgs = append(msgs, w.layout)

	buf, err := object.Encode(msgs, w.file.superblock.Config(), 0)
	if err != nil {
		return 0, fmt.Errorf("dataset %s: %w", w.path, err)
	}
	addr := w.file.allocator.Alloc(uint64(len(buf)), alloc.Metadata)
	if _, err := w.file.file.WriteAt(buf, int64(addr)); err != nil {
		return 0, fmt.Errorf("dataset %s: %w", w.path, err)
	}
	w.addr = addr
	w.closed = true
	return addr, nil
}
