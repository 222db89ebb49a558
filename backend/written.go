package backend

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/robert-malhotra/go-chunkplan/chunking"
	"github.com/robert-malhotra/go-chunkplan/dtype"
	"github.com/robert-malhotra/go-chunkplan/graph"
	"github.com/robert-malhotra/go-chunkplan/hdf5"
	"github.com/robert-malhotra/go-chunkplan/zarr"
)

// HDF5 filter IDs read back from files.
const (
	filterDeflate    = 1
	filterShuffle    = 2
	filterFletcher32 = 3
	filterLZF        = 32000
)

// DetectKind returns Zarr for a directory holding a .zgroup document and
// HDF5 for a regular file.
func DetectKind(path string) (Kind, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if info.IsDir() {
		if _, err := os.Stat(filepath.Join(path, ".zgroup")); err == nil {
			return Zarr, nil
		}
		return 0, ErrUnknownBackend.New(path)
	}
	return HDF5, nil
}

// FromWrittenFile rebuilds a Configuration from the datasets stored at
// path. Chunk shapes and compression are read from the file; buffer shapes
// are recomputed under the buffer budget. Datasets stored without chunks,
// or with chunks larger than the dataset, get chunks clamped to the full
// shape and are marked provisional, as are datasets whose filters have no
// equivalent. Scalar and empty datasets, and datasets of unsupported
// element types, are skipped.
func FromWrittenFile(path string, kind Kind, opts ...Option) (*Configuration, error) {
	o, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}
	log := o.logger.With(zap.String("backend", kind.String()), zap.String("path", path))

	var c *Configuration
	switch kind {
	case HDF5:
		c, err = o.readHDF5(path, log)
	case Zarr:
		c, err = o.readZarr(path, log)
	default:
		return nil, ErrUnknownBackend.New(kind.String())
	}
	if err != nil {
		return nil, err
	}
	log.Info("read written datasets", zap.Int("datasets", c.Len()))
	return c, nil
}

// written describes one stored dataset in backend-neutral terms.
type written struct {
	path        string
	shape       []uint64
	dtype       dtype.Descriptor
	chunk       []uint64
	compression Compression
	provisional bool
}

func (o *options) readHDF5(path string, log *zap.Logger) (*Configuration, error) {
	f, err := hdf5.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c := New(HDF5)
	err = hdf5.Walk(f.Root(), func(p string, obj interface{}, err error) error {
		if err != nil {
			return err
		}
		ds, ok := obj.(*hdf5.Dataset)
		if !ok {
			return nil
		}
		d, err := ds.Dtype()
		if err != nil {
			log.Warn("skipping dataset", zap.String("dataset", p), zap.Error(err))
			return nil
		}
		comp, exact := hdf5Compression(ds.Filters())
		if !exact {
			log.Warn("dataset uses filters with no equivalent", zap.String("dataset", p))
		}
		return o.insertWritten(c, written{
			path:        p,
			shape:       ds.Shape(),
			dtype:       d,
			chunk:       ds.ChunkShape(),
			compression: comp,
			provisional: !exact,
		}, log)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// hdf5Compression maps a filter pipeline to HDF5Compression. exact is
// false when a filter was dropped.
func hdf5Compression(filters []hdf5.FilterInfo) (comp HDF5Compression, exact bool) {
	comp = HDF5Compression{Method: MethodNone}
	exact = true
	for _, f := range filters {
		switch f.ID {
		case filterDeflate:
			comp.Method = MethodGzip
			level := DefaultGzipLevel
			if len(f.ClientData) > 0 {
				level = int(f.ClientData[0])
			}
			comp.setOption("level", level)
		case filterLZF:
			comp.Method = MethodLZF
		case filterShuffle:
			comp.setOption("shuffle", true)
		case filterFletcher32:
			comp.setOption("fletcher32", true)
		default:
			exact = false
		}
	}
	return comp, exact
}

func (c *HDF5Compression) setOption(k string, v any) {
	if c.Options == nil {
		c.Options = make(map[string]any)
	}
	c.Options[k] = v
}

func (o *options) readZarr(path string, log *zap.Logger) (*Configuration, error) {
	root, err := zarr.Open(path)
	if err != nil {
		return nil, err
	}

	c := New(Zarr)
	err = zarr.Walk(root, func(p string, obj interface{}, err error) error {
		if err != nil {
			return err
		}
		arr, ok := obj.(*zarr.Array)
		if !ok {
			return nil
		}
		d, err := arr.Dtype()
		if err != nil {
			log.Warn("skipping array", zap.String("array", p), zap.Error(err))
			return nil
		}
		comp, exact := zarrCompression(arr.Filters(), arr.Compressor())
		if !exact {
			log.Warn("array uses codecs with no equivalent", zap.String("array", p))
		}
		return o.insertWritten(c, written{
			path:        p,
			shape:       arr.Shape(),
			dtype:       d,
			chunk:       arr.ChunkShape(),
			compression: comp,
			provisional: !exact,
		}, log)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// zarrCompression maps array filters and compressor to a codec chain.
// exact is false when a codec was dropped.
func zarrCompression(filters []map[string]any, compressor map[string]any) (comp ZarrCompression, exact bool) {
	exact = true
	all := append([]map[string]any(nil), filters...)
	if compressor != nil {
		all = append(all, compressor)
	}
	for _, m := range all {
		f, err := FilterSpecFromMap(m)
		if err == nil {
			err = f.validate()
		}
		if err != nil {
			exact = false
			continue
		}
		comp.Filters = append(comp.Filters, f)
	}
	return comp, exact
}

func (o *options) insertWritten(c *Configuration, w written, log *zap.Logger) error {
	loc := graph.Location(strings.TrimPrefix(w.path, "/"))
	if reason := skipReason(w.shape); reason != "" {
		log.Debug("skipping dataset", zap.Stringer("location", loc), zap.String("reason", reason))
		return nil
	}

	chunk, clamped := clampChunk(w.shape, w.chunk)
	buffer, err := chunking.BufferShape(w.shape, chunk, w.dtype.ItemSize(), o.planOptions(loc, w.shape))
	if err != nil {
		return ErrValidation.Wrap(err, string(loc), err.Error())
	}
	cfg, err := NewDatasetIOConfiguration(Params{
		Location:    loc,
		DatasetName: loc.LastSegment(),
		Identity:    NewIdentity(w.shape, w.dtype),
		Plan:        chunking.Plan{ChunkShape: chunk, BufferShape: buffer},
		Compression: w.compression,
		Backend:     c.Backend(),
		Provisional: w.provisional || clamped,
	})
	if err != nil {
		return err
	}
	log.Debug("read dataset",
		zap.Stringer("location", loc),
		zap.Uint64s("shape", w.shape),
		zap.Uint64s("chunk_shape", chunk),
		zap.Bool("provisional", cfg.Provisional()))
	return c.Insert(cfg)
}

// clampChunk limits chunk to full. A nil chunk, from an unchunked dataset,
// becomes the full shape. clamped reports whether chunk was changed.
func clampChunk(full, chunk []uint64) ([]uint64, bool) {
	if len(chunk) != len(full) {
		return append([]uint64(nil), full...), true
	}
	out := make([]uint64, len(full))
	clamped := false
	for i := range full {
		out[i] = chunk[i]
		if chunk[i] > full[i] {
			out[i] = full[i]
			clamped = true
		}
	}
	return out, clamped
}
