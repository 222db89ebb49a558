package hdf5

import (
	"fmt"

	"github.com/spf13/cast"
)

// FileOption configures file creation options.
type FileOption func(*fileOptions)

type fileOptions struct {
	offsetSize int
	lengthSize int
}

func defaultFileOptions() *fileOptions {
	return &fileOptions{
		offsetSize: 8,
		lengthSize: 8,
	}
}

// WithOffsetSize sets the size in bytes for file offsets (2, 4, or 8).
func WithOffsetSize(size int) FileOption {
	return func(o *fileOptions) {
		if size == 2 || size == 4 || size == 8 {
			o.offsetSize = size
		}
	}
}

// WithLengthSize sets the size in bytes for lengths (2, 4, or 8).
func WithLengthSize(size int) FileOption {
	return func(o *fileOptions) {
		if size == 2 || size == 4 || size == 8 {
			o.lengthSize = size
		}
	}
}

// defaultGzipLevel is used when "compression" is given without options.
const defaultGzipLevel = 4

// DatasetOption configures dataset creation options.
type DatasetOption func(*datasetOptions)

type datasetOptions struct {
	chunks     []uint64
	deflate    bool
	level      int
	shuffle    bool
	fletcher32 bool
	err        error
}

// WithChunks sets the chunk dimensions. Without it the whole dataset is
// stored as one chunk.
func WithChunks(dims ...uint64) DatasetOption {
	return func(o *datasetOptions) {
		o.chunks = dims
	}
}

// WithGzip compresses chunks with deflate at level (0-9).
func WithGzip(level int) DatasetOption {
	return func(o *datasetOptions) {
		if level < 0 || level > 9 {
			o.err = fmt.Errorf("gzip level %d is outside 0..9", level)
			return
		}
		o.deflate = true
		o.level = level
	}
}

// WithShuffle enables the byte shuffle filter before compression.
func WithShuffle() DatasetOption {
	return func(o *datasetOptions) {
		o.shuffle = true
	}
}

// WithFletcher32 appends a Fletcher-32 checksum to every chunk.
func WithFletcher32() DatasetOption {
	return func(o *datasetOptions) {
		o.fletcher32 = true
	}
}

// WithKwargs applies h5py-style create_dataset keywords: "chunks",
// "compression", "compression_opts", "shuffle" and "fletcher32". Nil values
// are ignored; other keys are rejected.
func WithKwargs(kwargs map[string]any) DatasetOption {
	return func(o *datasetOptions) {
		if err := o.applyKwargs(kwargs); err != nil && o.err == nil {
			o.err = err
		}
	}
}

func (o *datasetOptions) applyKwargs(kwargs map[string]any) error {
	for k := range kwargs {
		switch k {
		case "chunks", "compression", "compression_opts", "shuffle", "fletcher32":
		default:
			return fmt.Errorf("%w: keyword %q", ErrUnsupported, k)
		}
	}

	if v := kwargs["chunks"]; v != nil {
		dims, err := cast.ToIntSliceE(v)
		if err != nil {
			return fmt.Errorf("chunks: %w", err)
		}
		o.chunks = make([]uint64, len(dims))
		for i, d := range dims {
			if d <= 0 {
				return fmt.Errorf("chunks: dimension %d is %d", i, d)
			}
			o.chunks[i] = uint64(d)
		}
	}
	if v := kwargs["compression"]; v != nil {
		if m := cast.ToString(v); m != "gzip" {
			return fmt.Errorf("%w: compression %q", ErrUnsupported, m)
		}
		o.deflate = true
		o.level = defaultGzipLevel
		if opts := kwargs["compression_opts"]; opts != nil {
			level, err := cast.ToIntE(opts)
			if err != nil {
				return fmt.Errorf("compression_opts: %w", err)
			}
			if level < 0 || level > 9 {
				return fmt.Errorf("gzip level %d is outside 0..9", level)
			}
			o.level = level
		}
	}
	for _, k := range []string{"shuffle", "fletcher32"} {
		v := kwargs[k]
		if v == nil {
			continue
		}
		b, err := cast.ToBoolE(v)
		if err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
		if k == "shuffle" {
			o.shuffle = b
		} else {
			o.fletcher32 = b
		}
	}
	return nil
}
