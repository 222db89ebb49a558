package hdf5

import (
	"fmt"
	"strings"

	"github.com/robert-malhotra/go-chunkplan/dtype"
	"github.com/robert-malhotra/go-chunkplan/internal/filter"
	"github.com/robert-malhotra/go-chunkplan/internal/layout"
	"github.com/robert-malhotra/go-chunkplan/internal/message"
	"github.com/robert-malhotra/go-chunkplan/internal/object"
)

// Dataset is a dataset of a file opened for reading.
type Dataset struct {
	file    *File
	path    string
	header  *object.Header
	space   *message.Dataspace
	dt      *message.Datatype
	layout  *message.DataLayout
	filters *message.FilterPipeline
}

// FilterInfo describes one stage of a dataset's filter pipeline.
type FilterInfo struct {
	ID         uint16
	Name       string
	ClientData []uint32
}

func newDataset(f *File, path string, header *object.Header) (*Dataset, error) {
	d := &Dataset{
		file:    f,
		path:    path,
		header:  header,
		space:   header.Dataspace(),
		dt:      header.Datatype(),
		layout:  header.DataLayout(),
		filters: header.FilterPipeline(),
	}
	if d.space == nil || d.dt == nil || d.layout == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotDataset, path)
	}
	return d, nil
}

// Name returns the last component of the dataset path.
func (d *Dataset) Name() string {
	return d.path[strings.LastIndexByte(d.path, '/')+1:]
}

// Path returns the full path of the dataset within its file.
func (d *Dataset) Path() string {
	return d.path
}

// BackingFile returns the path of the file holding the dataset's data.
func (d *Dataset) BackingFile() string {
	return d.file.path
}

// Shape returns the dataset dimensions.
func (d *Dataset) Shape() []uint64 {
	return append([]uint64(nil), d.space.Dimensions...)
}

// NumElements returns the total number of elements.
func (d *Dataset) NumElements() uint64 {
	return d.space.NumElements()
}

// Dtype returns the element type. Types with no descriptor, such as
// compounds or big-endian numbers, return an error wrapping ErrUnsupported.
func (d *Dataset) Dtype() (dtype.Descriptor, error) {
	desc, err := d.dt.Descriptor()
	if err != nil {
		return dtype.Descriptor{}, fmt.Errorf("%w: %s: %v", ErrUnsupported, d.path, err)
	}
	return desc, nil
}

// ElementSize returns the stored size of one element in bytes.
func (d *Dataset) ElementSize() uint64 {
	return uint64(d.dt.Size)
}

// Layout returns the storage layout class: "compact", "contiguous",
// "chunked" or "virtual".
func (d *Dataset) Layout() string {
	return d.layout.Class.String()
}

// ChunkShape returns the chunk dimensions, or nil when the dataset is not
// chunked.
func (d *Dataset) ChunkShape() []uint64 {
	if d.layout.Class != message.LayoutChunked {
		return nil
	}
	return append([]uint64(nil), d.layout.ChunkDims...)
}

// Filters returns the filter pipeline in write order.
func (d *Dataset) Filters() []FilterInfo {
	if d.filters == nil {
		return nil
	}
	out := make([]FilterInfo, len(d.filters.Filters))
	for i, fi := range d.filters.Filters {
		name := fi.Name
		if name == "" {
			name = filter.Name(fi.ID)
		}
		out[i] = FilterInfo{ID: fi.ID, Name: name, ClientData: append([]uint32(nil), fi.ClientData...)}
	}
	return out
}

func (d *Dataset) grid() (layout.Grid, error) {
	return layout.NewGrid(d.space.Dimensions, d.layout.ChunkDims)
}

func (d *Dataset) entries(g layout.Grid) ([]layout.Entry, error) {
	filtered := d.filters != nil && len(d.filters.Filters) > 0
	return layout.ReadIndex(d.file.reader, d.layout, g, uint64(d.dt.Size), filtered)
}

// StorageSize returns the number of bytes the dataset's data occupies in
// the file.
func (d *Dataset) StorageSize() (uint64, error) {
	switch d.layout.Class {
	case message.LayoutCompact:
		return uint64(len(d.layout.CompactData)), nil
	case message.LayoutContiguous:
		if d.file.reader.Config().IsUndefined(d.layout.Address) {
			return 0, nil
		}
		return d.layout.Size, nil
	case message.LayoutChunked:
		g, err := d.grid()
		if err != nil {
			return 0, err
		}
		entries, err := d.entries(g)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", d.path, err)
		}
		return layout.StorageSize(entries), nil
	}
	return 0, fmt.Errorf("%w: %s layout of %s", ErrUnsupported, d.Layout(), d.path)
}

// Read returns the whole dataset as row-major bytes.
func (d *Dataset) Read() ([]byte, error) {
	item := uint64(d.dt.Size)
	total := d.space.NumElements() * item

	switch d.layout.Class {
	case message.LayoutCompact:
		if uint64(len(d.layout.CompactData)) < total {
			return nil, fmt.Errorf("%s: compact data holds %d bytes, want %d", d.path, len(d.layout.CompactData), total)
		}
		return append([]byte(nil), d.layout.CompactData[:total]...), nil

	case message.LayoutContiguous:
		out := make([]byte, total)
		if d.file.reader.Config().IsUndefined(d.layout.Address) {
			return out, nil
		}
		if _, err := d.file.file.ReadAt(out, int64(d.layout.Address)); err != nil {
			return nil, fmt.Errorf("%s: %w", d.path, err)
		}
		return out, nil

	case message.LayoutChunked:
		return d.readChunked(item, total)
	}
	return nil, fmt.Errorf("%w: %s layout of %s", ErrUnsupported, d.Layout(), d.path)
}

func (d *Dataset) readChunked(item, total uint64) ([]byte, error) {
	g, err := d.grid()
	if err != nil {
		return nil, err
	}
	entries, err := d.entries(g)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.path, err)
	}
	p, err := filter.NewPipeline(d.filters)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.path, err)
	}

	shape := d.space.Dimensions
	ndims := len(shape)
	out := make([]byte, total)
	zero := make([]uint64, ndims)
	for i, e := range entries {
		chunk, err := layout.ReadChunk(d.file.file, e, p, g.ChunkBytes(item))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.path, err)
		}
		coords := g.Coords(uint64(i))
		origin := make([]uint64, ndims)
		extent := make([]uint64, ndims)
		for k := range coords {
			origin[k] = coords[k] * g.Chunk[k]
			extent[k] = min(g.Chunk[k], shape[k]-origin[k])
		}
		layout.CopyBox(out, shape, origin, chunk, g.Chunk, zero, extent, item)
	}
	return out, nil
}

// ReadRegion returns the row-major bytes of the hyperslab start+count.
func (d *Dataset) ReadRegion(start, count []uint64) ([]byte, error) {
	shape := d.space.Dimensions
	if len(start) != len(shape) || len(count) != len(shape) {
		return nil, fmt.Errorf("region rank does not match dataset rank %d", len(shape))
	}
	for i := range shape {
		if start[i] > shape[i] || count[i] > shape[i]-start[i] {
			return nil, fmt.Errorf("region start %v count %v is outside shape %v", start, count, shape)
		}
	}
	all, err := d.Read()
	if err != nil {
		return nil, err
	}
	return layout.CopyRegion(all, shape, uint64(d.dt.Size), start, count), nil
}
