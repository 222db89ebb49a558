package zarr

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/robert-malhotra/go-chunkplan/dtype"
	"github.com/robert-malhotra/go-chunkplan/internal/layout"
)

// Array is an array of a directory store.
type Array struct {
	root  string
	path  string
	meta  ArrayMetadata
	dtype dtype.Descriptor
	dtErr error
	chain *Chain
	grid  layout.Grid

	concurrency int
	writable    bool
}

func openArray(root, path string) (*Array, error) {
	a := &Array{root: root, path: path, concurrency: 1}
	file := filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(path, "/")), arrayKey)
	if err := readJSON(file, &a.meta); err != nil {
		return nil, fmt.Errorf("array %s: %w", path, err)
	}
	if err := a.meta.validate(); err != nil {
		return nil, fmt.Errorf("array %s: %w", path, err)
	}
	a.dtype, a.dtErr = dtype.ParseTypestr(a.meta.Dtype)
	grid, err := layout.NewGrid(a.meta.Shape, a.meta.Chunks)
	if err != nil {
		return nil, fmt.Errorf("array %s: %w", path, err)
	}
	a.grid = grid
	return a, nil
}

// Name returns the last component of the array path.
func (a *Array) Name() string {
	return a.path[strings.LastIndexByte(a.path, '/')+1:]
}

// Path returns the full path of the array within its store.
func (a *Array) Path() string { return a.path }

// BackingFile returns the store directory holding the array.
func (a *Array) BackingFile() string { return a.root }

// Metadata returns a copy of the array's .zarray document.
func (a *Array) Metadata() ArrayMetadata {
	m := a.meta
	m.Shape = append([]uint64(nil), m.Shape...)
	m.Chunks = append([]uint64(nil), m.Chunks...)
	return m
}

// Shape returns the array dimensions.
func (a *Array) Shape() []uint64 { return append([]uint64(nil), a.meta.Shape...) }

// ChunkShape returns the chunk dimensions.
func (a *Array) ChunkShape() []uint64 { return append([]uint64(nil), a.meta.Chunks...) }

// Dtype returns the element type.
func (a *Array) Dtype() (dtype.Descriptor, error) {
	if a.dtErr != nil {
		return dtype.Descriptor{}, fmt.Errorf("%w: %s: %v", ErrUnsupported, a.path, a.dtErr)
	}
	return a.dtype, nil
}

// Filters returns the filter codec configurations.
func (a *Array) Filters() []map[string]any { return a.meta.Filters }

// Compressor returns the compressor configuration, or nil.
func (a *Array) Compressor() map[string]any { return a.meta.Compressor }

func (a *Array) codecs() (*Chain, error) {
	if a.chain != nil {
		return a.chain, nil
	}
	chain, err := NewChain(a.meta.Filters, a.meta.Compressor)
	if err != nil {
		return nil, fmt.Errorf("array %s: %w", a.path, err)
	}
	a.chain = chain
	return chain, nil
}

// chunkFile returns the file holding the chunk at coords.
func (a *Array) chunkFile(coords []uint64) string {
	parts := make([]string, len(coords))
	for i, c := range coords {
		parts[i] = strconv.FormatUint(c, 10)
	}
	if len(parts) == 0 {
		parts = []string{"0"}
	}
	key := strings.Join(parts, a.meta.separator())
	return filepath.Join(a.root, filepath.FromSlash(strings.TrimPrefix(a.path, "/")), filepath.FromSlash(key))
}

// WriteChunk encodes and stores the full-size chunk at coords.
func (a *Array) WriteChunk(coords []uint64, data []byte) error {
	if !a.writable {
		return ErrReadOnly
	}
	if want := a.grid.ChunkBytes(a.dtype.Size); uint64(len(data)) != want {
		return fmt.Errorf("array %s: chunk %v holds %d bytes, want %d", a.path, coords, len(data), want)
	}
	chain, err := a.codecs()
	if err != nil {
		return err
	}
	encoded, err := chain.Encode(data)
	if err != nil {
		return fmt.Errorf("array %s: chunk %v: %w", a.path, coords, err)
	}
	file := a.chunkFile(coords)
	if a.meta.separator() == "/" {
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(file, encoded, 0o644)
}

// WriteRegion stores data, the row-major little-endian bytes of the region
// start+count, which must be aligned to the chunk grid. Chunks are encoded
// concurrently, up to the array's concurrency.
func (a *Array) WriteRegion(ctx context.Context, start, count []uint64, data []byte) error {
	if !a.writable {
		return ErrReadOnly
	}
	chunks, err := a.grid.SplitRegion(data, start, count, a.dtype.Size)
	if err != nil {
		return fmt.Errorf("array %s: %w", a.path, err)
	}
	if _, err := a.codecs(); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for _, c := range chunks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return a.WriteChunk(c.Coords, c.Data)
		})
	}
	return g.Wait()
}

// Write stores the whole array.
func (a *Array) Write(ctx context.Context, data []byte) error {
	return a.WriteRegion(ctx, make([]uint64, len(a.meta.Shape)), a.meta.Shape, data)
}

// ReadChunk returns the decoded chunk at coords. A chunk with no file
// holds the fill value.
func (a *Array) ReadChunk(coords []uint64) ([]byte, error) {
	d, err := a.Dtype()
	if err != nil {
		return nil, err
	}
	size := a.grid.ChunkBytes(d.Size)

	raw, err := os.ReadFile(a.chunkFile(coords))
	if errors.Is(err, fs.ErrNotExist) {
		fill, err := fillBytes(d, a.meta.FillValue)
		if err != nil {
			return nil, fmt.Errorf("array %s: %w", a.path, err)
		}
		out := make([]byte, 0, size)
		for uint64(len(out)) < size {
			out = append(out, fill...)
		}
		return out, nil
	}
	if err != nil {
		return nil, err
	}

	chain, err := a.codecs()
	if err != nil {
		return nil, err
	}
	data, err := chain.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("array %s: chunk %v: %w", a.path, coords, err)
	}
	if uint64(len(data)) != size {
		return nil, fmt.Errorf("array %s: chunk %v decoded to %d bytes, want %d", a.path, coords, len(data), size)
	}
	return data, nil
}

// Read returns the whole array as row-major bytes.
func (a *Array) Read() ([]byte, error) {
	d, err := a.Dtype()
	if err != nil {
		return nil, err
	}
	shape := a.meta.Shape
	ndims := len(shape)
	total := d.Size
	for _, n := range shape {
		total *= n
	}
	out := make([]byte, total)
	zero := make([]uint64, ndims)

	for i := uint64(0); i < a.grid.Len(); i++ {
		coords := a.grid.Coords(i)
		chunk, err := a.ReadChunk(coords)
		if err != nil {
			return nil, err
		}
		origin := make([]uint64, ndims)
		extent := make([]uint64, ndims)
		for k := range coords {
			origin[k] = coords[k] * a.grid.Chunk[k]
			extent[k] = min(a.grid.Chunk[k], shape[k]-origin[k])
		}
		layout.CopyBox(out, shape, origin, chunk, a.grid.Chunk, zero, extent, d.Size)
	}
	return out, nil
}

// StorageSize returns the total size of the array's chunk files.
func (a *Array) StorageSize() (uint64, error) {
	var total uint64
	for i := uint64(0); i < a.grid.Len(); i++ {
		info, err := os.Stat(a.chunkFile(a.grid.Coords(i)))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return 0, err
		}
		total += uint64(info.Size())
	}
	return total, nil
}
