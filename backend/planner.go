package backend

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/robert-malhotra/go-chunkplan/chunking"
	"github.com/robert-malhotra/go-chunkplan/dtype"
	"github.com/robert-malhotra/go-chunkplan/graph"
)

type job struct {
	loc   graph.Location
	field graph.Field
}

// FromObjectGraph plans every field reachable from root for backend kind.
// Fields already backed by a file, scalar fields and empty fields are
// skipped. Two distinct fields at one location fail with
// ErrDuplicateLocation. Cancelling ctx stops planning of the remaining
// fields and returns the context error.
func FromObjectGraph(ctx context.Context, root graph.Container, kind Kind, opts ...Option) (*Configuration, error) {
	o, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}
	comp, err := o.compressionFor(kind)
	if err != nil {
		return nil, err
	}
	log := o.logger.With(zap.String("backend", kind.String()))

	var jobs []job
	err = graph.Walk(root, func(loc graph.Location, f graph.Field) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if graph.IsAlreadyBacked(f) {
			log.Debug("skipping field backed by a file", zap.Stringer("location", loc))
			return nil
		}
		if f.Value() == nil {
			log.Debug("skipping field without a value", zap.Stringer("location", loc))
			return nil
		}
		jobs = append(jobs, job{loc: loc, field: f})
		return nil
	})
	if err != nil {
		return nil, err
	}

	results := make([]*DatasetIOConfiguration, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.Concurrency)
	for i, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			shape, err := graph.ShapeOf(j.field.Value())
			if err != nil {
				return err
			}
			if reason := skipReason(shape); reason != "" {
				log.Debug("skipping field", zap.Stringer("location", j.loc), zap.String("reason", reason))
				return nil
			}
			cfg, err := o.build(gctx, j.loc, j.field.Name(), shape, j.field.Value(), kind, comp)
			if err != nil {
				return err
			}
			log.Debug("planned dataset",
				zap.Stringer("location", j.loc),
				zap.Uint64s("shape", shape),
				zap.Stringer("dtype", cfg.p.Identity.Dtype),
				zap.Uint64s("chunk_shape", cfg.p.Plan.ChunkShape),
				zap.Uint64s("buffer_shape", cfg.p.Plan.BufferShape))
			results[i] = cfg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c := New(kind)
	for _, cfg := range results {
		if cfg == nil {
			continue
		}
		if err := c.Insert(cfg); err != nil {
			return nil, err
		}
	}
	log.Info("planned datasets",
		zap.Int("fields", len(jobs)),
		zap.Int("datasets", c.Len()))
	return c, nil
}

// FromObjectGraphField plans a single field, resolving its location below
// root. Unlike FromObjectGraph it fails on scalar and empty fields.
func FromObjectGraphField(ctx context.Context, root graph.Container, field graph.Field, kind Kind, opts ...Option) (*DatasetIOConfiguration, error) {
	o, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}
	comp, err := o.compressionFor(kind)
	if err != nil {
		return nil, err
	}
	loc, err := graph.ResolveLocation(root, field)
	if err != nil {
		return nil, err
	}
	if field.Value() == nil {
		return nil, ErrValidation.New(string(loc), "field has no value")
	}
	shape, err := graph.ShapeOf(field.Value())
	if err != nil {
		return nil, err
	}
	return o.build(ctx, loc, field.Name(), shape, field.Value(), kind, comp)
}

func (o *options) compressionFor(kind Kind) (Compression, error) {
	if !kind.Valid() {
		return nil, ErrUnknownBackend.New(kind.String())
	}
	if o.compression != nil {
		return o.compression, nil
	}
	return DefaultCompression(kind)
}

func (o *options) build(ctx context.Context, loc graph.Location, name string, shape []uint64, value any, kind Kind, comp Compression) (*DatasetIOConfiguration, error) {
	if len(shape) == 0 {
		return nil, ErrValidation.New(string(loc), "scalar fields have no storage plan")
	}
	if skipReason(shape) != "" {
		return nil, chunking.ErrEmptyDataset.New(shape)
	}
	d, err := dtype.InferContext(ctx, value,
		dtype.WithLocation(string(loc)),
		dtype.WithSampleSize(o.SampleSize))
	if err != nil {
		return nil, err
	}
	plan, err := chunking.Compute(shape, d.ItemSize(), o.planOptions(loc, shape))
	if err != nil {
		return nil, err
	}
	return NewDatasetIOConfiguration(Params{
		Location:    loc,
		DatasetName: name,
		Identity:    NewIdentity(shape, d),
		Plan:        plan,
		Compression: comp,
		Backend:     kind,
	})
}

func skipReason(shape []uint64) string {
	if len(shape) == 0 {
		return "scalar"
	}
	for _, n := range shape {
		if n == 0 {
			return "empty"
		}
	}
	return ""
}
