package backend

import (
	"fmt"

	"github.com/robert-malhotra/go-chunkplan/chunking"
	"github.com/robert-malhotra/go-chunkplan/dtype"
	"github.com/robert-malhotra/go-chunkplan/graph"
)

// Identity is the shape and element type of a dataset.
type Identity struct {
	FullShape []uint64
	Dtype     dtype.Descriptor
	ItemSize  uint64
}

// NewIdentity returns the identity of a dataset of shape and type d.
func NewIdentity(shape []uint64, d dtype.Descriptor) Identity {
	return Identity{
		FullShape: append([]uint64(nil), shape...),
		Dtype:     d,
		ItemSize:  d.ItemSize(),
	}
}

func (id Identity) clone() Identity {
	id.FullShape = append([]uint64(nil), id.FullShape...)
	return id
}

func (id Identity) equal(o Identity) bool {
	return id.Dtype == o.Dtype && id.ItemSize == o.ItemSize && equalShape(id.FullShape, o.FullShape)
}

// Params holds the fields of a DatasetIOConfiguration.
type Params struct {
	Location    graph.Location
	DatasetName string
	Identity    Identity
	Plan        chunking.Plan
	Compression Compression
	Backend     Kind

	// Provisional marks plans whose shapes were adjusted or inferred rather
	// than observed, such as chunk shapes read from a contiguous dataset.
	Provisional bool
}

// DatasetIOConfiguration is the storage plan of one dataset for one
// backend. Values are immutable; the With methods return modified copies.
type DatasetIOConfiguration struct {
	p Params
}

// NewDatasetIOConfiguration validates p and returns the configuration.
func NewDatasetIOConfiguration(p Params) (*DatasetIOConfiguration, error) {
	loc := string(p.Location)
	if err := p.Location.Validate(); err != nil {
		return nil, ErrValidation.New(loc, err.Error())
	}
	if p.DatasetName != p.Location.LastSegment() {
		return nil, ErrValidation.New(loc, fmt.Sprintf("dataset name %q does not match location segment %q", p.DatasetName, p.Location.LastSegment()))
	}
	if !p.Backend.Valid() {
		return nil, ErrValidation.New(loc, "unknown backend")
	}

	id := p.Identity
	if len(id.FullShape) == 0 {
		return nil, ErrValidation.New(loc, "scalar datasets have no storage plan")
	}
	if !id.Dtype.Valid() {
		return nil, ErrValidation.New(loc, "invalid element type "+id.Dtype.String())
	}
	if id.ItemSize != id.Dtype.ItemSize() {
		return nil, ErrValidation.New(loc, fmt.Sprintf("item size %d does not match %s", id.ItemSize, id.Dtype))
	}
	if err := p.Plan.Validate(id.FullShape); err != nil {
		return nil, ErrValidation.Wrap(err, loc, err.Error())
	}

	if p.Compression == nil {
		return nil, ErrValidation.New(loc, "missing compression")
	}
	if p.Compression.Backend() != p.Backend {
		return nil, ErrValidation.New(loc, fmt.Sprintf("%s compression cannot configure a %s dataset", p.Compression.Backend(), p.Backend))
	}
	if err := p.Compression.Validate(); err != nil {
		return nil, ErrValidation.Wrap(err, loc, err.Error())
	}

	p.Identity = id.clone()
	p.Compression = p.Compression.clone(id.ItemSize)
	p.Plan = chunking.Plan{
		ChunkShape:  append([]uint64(nil), p.Plan.ChunkShape...),
		BufferShape: append([]uint64(nil), p.Plan.BufferShape...),
	}
	return &DatasetIOConfiguration{p: p}, nil
}

// DefaultCompression returns the default compression for a backend.
func DefaultCompression(k Kind) (Compression, error) {
	switch k {
	case HDF5:
		return DefaultHDF5Compression(), nil
	case Zarr:
		return DefaultZarrCompression(), nil
	default:
		return nil, ErrUnknownBackend.New(k.String())
	}
}

// Location returns the dataset location.
func (c *DatasetIOConfiguration) Location() graph.Location { return c.p.Location }

// DatasetName returns the dataset name.
func (c *DatasetIOConfiguration) DatasetName() string { return c.p.DatasetName }

// Identity returns the dataset shape and element type.
func (c *DatasetIOConfiguration) Identity() Identity { return c.p.Identity.clone() }

// Plan returns the chunk and buffer shapes.
func (c *DatasetIOConfiguration) Plan() chunking.Plan {
	return chunking.Plan{
		ChunkShape:  append([]uint64(nil), c.p.Plan.ChunkShape...),
		BufferShape: append([]uint64(nil), c.p.Plan.BufferShape...),
	}
}

// Compression returns a copy of the compression settings.
func (c *DatasetIOConfiguration) Compression() Compression {
	return c.p.Compression.clone(c.p.Identity.ItemSize)
}

// Backend returns the backend the configuration targets.
func (c *DatasetIOConfiguration) Backend() Kind { return c.p.Backend }

// Provisional reports whether the plan was adjusted rather than observed.
func (c *DatasetIOConfiguration) Provisional() bool {
	return c.p.Provisional || c.p.Identity.Dtype.Provisional
}

// Params returns a copy of the configuration fields.
func (c *DatasetIOConfiguration) Params() Params {
	p := c.p
	p.Identity = c.Identity()
	p.Plan = c.Plan()
	p.Compression = c.Compression()
	return p
}

// WithPlan returns a copy using plan.
func (c *DatasetIOConfiguration) WithPlan(plan chunking.Plan) (*DatasetIOConfiguration, error) {
	p := c.Params()
	p.Plan = plan
	p.Provisional = false
	return NewDatasetIOConfiguration(p)
}

// WithChunkShape returns a copy using chunk and a buffer shape recomputed
// for bufferBytes (zero selects chunking.DefaultBufferBytes).
func (c *DatasetIOConfiguration) WithChunkShape(chunk []uint64, bufferBytes uint64) (*DatasetIOConfiguration, error) {
	id := c.p.Identity
	buffer, err := chunking.BufferShape(id.FullShape, chunk, id.ItemSize, chunking.Options{BufferBytes: bufferBytes})
	if err != nil {
		return nil, ErrValidation.Wrap(err, string(c.p.Location), err.Error())
	}
	return c.WithPlan(chunking.Plan{ChunkShape: chunk, BufferShape: buffer})
}

// WithCompression returns a copy using comp.
func (c *DatasetIOConfiguration) WithCompression(comp Compression) (*DatasetIOConfiguration, error) {
	p := c.Params()
	p.Compression = comp
	return NewDatasetIOConfiguration(p)
}

// ToBackendKwargs returns the keyword arguments the backend writer takes
// when creating the dataset: "chunks" plus "compression",
// "compression_opts", "shuffle" and "fletcher32" for HDF5, or "filters"
// and "compressor" for Zarr.
func (c *DatasetIOConfiguration) ToBackendKwargs() map[string]any {
	m := map[string]any{
		"chunks": append([]uint64(nil), c.p.Plan.ChunkShape...),
	}
	switch comp := c.p.Compression.(type) {
	case HDF5Compression:
		comp.kwargs(m)
	case ZarrCompression:
		comp.kwargs(m)
	}
	return m
}

// Equal reports whether c and o describe the same plan.
func (c *DatasetIOConfiguration) Equal(o *DatasetIOConfiguration) bool {
	if c == nil || o == nil {
		return c == o
	}
	return c.p.Location == o.p.Location &&
		c.p.DatasetName == o.p.DatasetName &&
		c.p.Backend == o.p.Backend &&
		c.p.Identity.equal(o.p.Identity) &&
		c.p.Plan.Equal(o.p.Plan) &&
		c.p.Compression.String() == o.p.Compression.String()
}

func (c *DatasetIOConfiguration) String() string {
	return fmt.Sprintf("%s: %v %s %s %s", c.p.Location, c.p.Identity.FullShape, c.p.Identity.Dtype, c.p.Plan, c.p.Compression)
}

func equalShape(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
