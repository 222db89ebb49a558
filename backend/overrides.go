package backend

import (
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/robert-malhotra/go-chunkplan/chunking"
	"github.com/robert-malhotra/go-chunkplan/dtype"
	"github.com/robert-malhotra/go-chunkplan/graph"
)

// Document is the YAML form of a Configuration. The same schema is used to
// export a plan and to override parts of one.
type Document struct {
	Backend  Kind                       `yaml:"backend"`
	Datasets map[string]DatasetDocument `yaml:"datasets"`
}

// DatasetDocument is the YAML form of one dataset plan. In an override,
// every field is optional; FullShape and Dtype must match the planned
// dataset when present.
type DatasetDocument struct {
	Dtype       string               `yaml:"dtype,omitempty"`
	FullShape   []uint64             `yaml:"full_shape,flow,omitempty"`
	ChunkShape  []uint64             `yaml:"chunk_shape,flow,omitempty"`
	BufferShape []uint64             `yaml:"buffer_shape,flow,omitempty"`
	Compression *CompressionDocument `yaml:"compression,omitempty"`
	Provisional bool                 `yaml:"provisional,omitempty"`
}

// CompressionDocument holds HDF5 (Method, Options) or Zarr (Filters)
// compression.
type CompressionDocument struct {
	Method  string           `yaml:"method,omitempty"`
	Options map[string]any   `yaml:"options,omitempty"`
	Filters []map[string]any `yaml:"filters,omitempty"`
}

// Document returns the YAML form of c.
func (c *Configuration) Document() *Document {
	doc := &Document{
		Backend:  c.backend,
		Datasets: make(map[string]DatasetDocument, len(c.datasets)),
	}
	for loc, d := range c.datasets {
		id, plan := d.Identity(), d.Plan()
		doc.Datasets[string(loc)] = DatasetDocument{
			Dtype:       id.Dtype.Typestr(),
			FullShape:   id.FullShape,
			ChunkShape:  plan.ChunkShape,
			BufferShape: plan.BufferShape,
			Compression: compressionDocument(d.Compression()),
			Provisional: d.Provisional(),
		}
	}
	return doc
}

// WriteYAML writes the YAML form of c to w.
func (c *Configuration) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c.Document()); err != nil {
		return fmt.Errorf("encode configuration: %w", err)
	}
	return enc.Close()
}

// ReadOverrides decodes an override document. Unknown keys are rejected.
func ReadOverrides(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return &Document{}, nil
		}
		return nil, fmt.Errorf("decode overrides: %w", err)
	}
	return &doc, nil
}

// ApplyOverrides replaces the entries named by doc. Entries are applied in
// location order and application stops at the first error; entries applied
// before it stay replaced.
func (c *Configuration) ApplyOverrides(doc *Document) error {
	if doc.Backend.Valid() && doc.Backend != c.backend {
		return ErrBackendMismatch.New("overrides", doc.Backend, c.backend)
	}
	locs := make([]string, 0, len(doc.Datasets))
	for loc := range doc.Datasets {
		locs = append(locs, loc)
	}
	sort.Strings(locs)

	for _, s := range locs {
		loc := graph.Location(s)
		cur, ok := c.datasets[loc]
		if !ok {
			return ErrUnknownLocation.New(s)
		}
		next, err := cur.apply(doc.Datasets[s])
		if err != nil {
			return err
		}
		if err := c.Override(loc, next); err != nil {
			return err
		}
	}
	return nil
}

func (d *DatasetIOConfiguration) apply(o DatasetDocument) (*DatasetIOConfiguration, error) {
	loc := string(d.p.Location)
	if o.FullShape != nil && !equalShape(o.FullShape, d.p.Identity.FullShape) {
		return nil, ErrValidation.New(loc, fmt.Sprintf("override shape %v differs from dataset shape %v", o.FullShape, d.p.Identity.FullShape))
	}
	if o.Dtype != "" {
		want, err := dtype.ParseTypestr(o.Dtype)
		if err != nil {
			return nil, ErrValidation.Wrap(err, loc, err.Error())
		}
		got := d.p.Identity.Dtype
		if want.Kind != got.Kind || want.Size != got.Size {
			return nil, ErrValidation.New(loc, fmt.Sprintf("override dtype %s differs from dataset dtype %s", want, got))
		}
	}

	next := d
	var err error
	switch {
	case o.ChunkShape != nil && o.BufferShape != nil:
		next, err = next.WithPlan(chunking.Plan{ChunkShape: o.ChunkShape, BufferShape: o.BufferShape})
	case o.ChunkShape != nil:
		next, err = next.WithChunkShape(o.ChunkShape, 0)
	case o.BufferShape != nil:
		next, err = next.WithPlan(chunking.Plan{ChunkShape: d.p.Plan.ChunkShape, BufferShape: o.BufferShape})
	}
	if err != nil {
		return nil, err
	}

	if o.Compression != nil {
		comp, err := o.Compression.compression(d.p.Backend)
		if err != nil {
			return nil, ErrValidation.Wrap(err, loc, err.Error())
		}
		if next, err = next.WithCompression(comp); err != nil {
			return nil, err
		}
	}
	return next, nil
}

func (c *CompressionDocument) compression(k Kind) (Compression, error) {
	switch k {
	case HDF5:
		if len(c.Filters) > 0 {
			return nil, fmt.Errorf("zarr filters cannot configure an hdf5 dataset")
		}
		return HDF5Compression{Method: c.Method, Options: c.Options}, nil
	case Zarr:
		if c.Method != "" || len(c.Options) > 0 {
			return nil, fmt.Errorf("hdf5 method %q cannot configure a zarr dataset", c.Method)
		}
		z := ZarrCompression{}
		for _, m := range c.Filters {
			f, err := FilterSpecFromMap(m)
			if err != nil {
				return nil, err
			}
			z.Filters = append(z.Filters, f)
		}
		return z, nil
	default:
		return nil, ErrUnknownBackend.New(k.String())
	}
}

func compressionDocument(c Compression) *CompressionDocument {
	switch c := c.(type) {
	case HDF5Compression:
		return &CompressionDocument{Method: c.Method, Options: c.Options}
	case ZarrCompression:
		doc := &CompressionDocument{Filters: make([]map[string]any, len(c.Filters))}
		for i, f := range c.Filters {
			doc.Filters[i] = f.Map()
		}
		return doc
	}
	return nil
}
