package export

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/robert-malhotra/go-chunkplan/backend"
	"github.com/robert-malhotra/go-chunkplan/chunking"
	"github.com/robert-malhotra/go-chunkplan/dtype"
	"github.com/robert-malhotra/go-chunkplan/graph"
	"github.com/robert-malhotra/go-chunkplan/hdf5"
	"github.com/robert-malhotra/go-chunkplan/zarr"
)

// Report summarizes a Write.
type Report struct {
	Datasets int
	Buffers  int
	Bytes    uint64 // uncompressed bytes written
	Elapsed  time.Duration
}

// regionWriter stores one buffer of a dataset.
type regionWriter interface {
	WriteRegion(ctx context.Context, start, count []uint64, data []byte) error
}

// source is the field data of one planned dataset. dtype is the
// element type the field encodes with, which may be wider than the
// plan's for a provisional string width.
type source struct {
	reader graph.RegionReader
	dtype  dtype.Descriptor
}

type task struct {
	cfg *backend.DatasetIOConfiguration
	src source
	dst regionWriter
}

// Write creates path with cfg's backend and writes every dataset cfg
// plans, reading values from the fields of root. Fields reachable from
// root that cfg does not plan are ignored.
func Write(ctx context.Context, path string, root graph.Container, cfg *backend.Configuration, opts ...Option) (*Report, error) {
	o, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}
	log := o.logger.With(zap.String("backend", cfg.Backend().String()), zap.String("path", path))

	sources, err := collect(root, cfg, log)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var report *Report
	switch cfg.Backend() {
	case backend.HDF5:
		report, err = o.writeHDF5(ctx, path, cfg, sources, log)
	case backend.Zarr:
		report, err = o.writeZarr(ctx, path, cfg, sources, log)
	default:
		return nil, backend.ErrUnknownBackend.New(cfg.Backend().String())
	}
	if err != nil {
		return nil, err
	}
	report.Elapsed = time.Since(start)
	log.Info("wrote datasets",
		zap.Int("datasets", report.Datasets),
		zap.Int("buffers", report.Buffers),
		zap.String("size", humanize.Bytes(report.Bytes)),
		zap.Duration("elapsed", report.Elapsed))
	return report, nil
}

// collect returns the field data for every planned location.
func collect(root graph.Container, cfg *backend.Configuration, log *zap.Logger) (map[graph.Location]source, error) {
	fields := make(map[graph.Location]graph.Field, cfg.Len())
	err := graph.Walk(root, func(loc graph.Location, f graph.Field) error {
		if _, ok := cfg.Get(loc); ok {
			fields[loc] = f
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sources := make(map[graph.Location]source, len(fields))
	for _, d := range cfg.Datasets() {
		loc := d.Location()
		f, ok := fields[loc]
		if !ok {
			return nil, ErrMissingField.New(string(loc))
		}
		arr, err := graph.AsArray(f.Value())
		if err != nil {
			return nil, ErrMismatch.Wrap(err, string(loc), err.Error())
		}
		id := d.Identity()
		if !equalShape(arr.Shape(), id.FullShape) {
			return nil, ErrMismatch.New(string(loc), fmt.Sprintf("shape %v, planned %v", arr.Shape(), id.FullShape))
		}
		got := arr.Dtype()
		if !fits(got, d) {
			return nil, ErrMismatch.New(string(loc), fmt.Sprintf("type %s, planned %s", got, id.Dtype))
		}
		if got.Size != id.Dtype.Size {
			log.Warn("string width exceeds sampled estimate",
				zap.Stringer("location", loc),
				zap.Stringer("planned", id.Dtype),
				zap.Stringer("written", got))
		}
		r, ok := arr.(graph.RegionReader)
		if !ok {
			return nil, ErrNotReadable.New(string(loc))
		}
		sources[loc] = source{reader: r, dtype: got}
	}
	return sources, nil
}

// fits reports whether a field of type got can be written under d's plan.
// Types must match exactly, except that a provisional string width may
// grow to the measured one.
func fits(got dtype.Descriptor, d *backend.DatasetIOConfiguration) bool {
	planned := d.Identity().Dtype
	if got.Kind != planned.Kind {
		return false
	}
	if got.Size == planned.Size {
		return true
	}
	return planned.IsVariableLength() && d.Provisional() && got.Size > planned.Size
}

func (o *options) writeHDF5(ctx context.Context, path string, cfg *backend.Configuration, sources map[graph.Location]source, log *zap.Logger) (report *Report, err error) {
	f, err := hdf5.Create(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			report, err = nil, cerr
		}
	}()

	var tasks []task
	for _, d := range cfg.Datasets() {
		loc := d.Location()
		g, err := f.Root().RequireGroup(string(loc.Parent()))
		if err != nil {
			return nil, err
		}
		src := sources[loc]
		w, err := g.CreateDataset(d.DatasetName(), d.Identity().FullShape, src.dtype, hdf5.WithKwargs(d.ToBackendKwargs()))
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task{cfg: d, src: src, dst: hdf5Region{w}})
	}
	return o.run(ctx, tasks, log)
}

// hdf5Region adapts a DatasetWriter to regionWriter.
type hdf5Region struct{ w *hdf5.DatasetWriter }

func (h hdf5Region) WriteRegion(_ context.Context, start, count []uint64, data []byte) error {
	return h.w.WriteRegion(start, count, data)
}

func (o *options) writeZarr(ctx context.Context, path string, cfg *backend.Configuration, sources map[graph.Location]source, log *zap.Logger) (*Report, error) {
	root, err := zarr.Create(path)
	if err != nil {
		return nil, err
	}

	var tasks []task
	for _, d := range cfg.Datasets() {
		loc := d.Location()
		g, err := root.RequireGroup(string(loc.Parent()))
		if err != nil {
			return nil, err
		}
		src := sources[loc]
		a, err := g.CreateArray(d.DatasetName(), d.Identity().FullShape, src.dtype, zarr.WithKwargs(d.ToBackendKwargs()))
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task{cfg: d, src: src, dst: a})
	}
	return o.run(ctx, tasks, log)
}

// run copies every task buffer by buffer. Buffers of one dataset cover
// whole chunks, so concurrent buffers never share a chunk.
func (o *options) run(ctx context.Context, tasks []task, log *zap.Logger) (*Report, error) {
	var buffers, written atomic.Uint64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.Concurrency)
	for _, t := range tasks {
		id := t.cfg.Identity()
		plan := t.cfg.Plan()
		log.Debug("writing dataset",
			zap.Stringer("location", t.cfg.Location()),
			zap.Uint64s("chunk_shape", plan.ChunkShape),
			zap.Uint64s("buffer_shape", plan.BufferShape),
			zap.String("buffer_size", humanize.Bytes(plan.BufferBytes(t.src.dtype.ItemSize()))))

		err := chunking.EachRegion(id.FullShape, plan.BufferShape, func(start, count []uint64) error {
			if err := gctx.Err(); err != nil {
				return err
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				data, err := t.src.reader.ReadRegion(start, count)
				if err != nil {
					return fmt.Errorf("read %s: %w", t.cfg.Location(), err)
				}
				if err := t.dst.WriteRegion(gctx, start, count, data); err != nil {
					return err
				}
				buffers.Add(1)
				written.Add(uint64(len(data)))
				return nil
			})
			return nil
		})
		if err != nil {
			if werr := g.Wait(); werr != nil {
				return nil, werr
			}
			return nil, err
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Report{
		Datasets: len(tasks),
		Buffers:  int(buffers.Load()),
		Bytes:    written.Load(),
	}, nil
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
