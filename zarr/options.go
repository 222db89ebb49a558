package zarr

import (
	"fmt"

	"github.com/spf13/cast"
)

// ArrayOption configures array creation.
type ArrayOption func(*arrayOptions)

type arrayOptions struct {
	chunks      []uint64
	filters     []map[string]any
	compressor  map[string]any
	concurrency int
	err         error
}

func defaultArrayOptions() *arrayOptions {
	return &arrayOptions{concurrency: 1}
}

// WithChunks sets the chunk dimensions. Without it the array is one chunk.
func WithChunks(dims ...uint64) ArrayOption {
	return func(o *arrayOptions) {
		o.chunks = dims
	}
}

// WithFilters sets the array filters, applied in order before the
// compressor.
func WithFilters(filters ...map[string]any) ArrayOption {
	return func(o *arrayOptions) {
		o.filters = filters
	}
}

// WithCompressor sets the compressor codec.
func WithCompressor(config map[string]any) ArrayOption {
	return func(o *arrayOptions) {
		o.compressor = config
	}
}

// WithConcurrency sets how many chunks WriteRegion encodes at once.
func WithConcurrency(n int) ArrayOption {
	return func(o *arrayOptions) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithKwargs applies zarr create keywords: "chunks", "filters" and
// "compressor". Nil values are ignored; other keys are rejected.
func WithKwargs(kwargs map[string]any) ArrayOption {
	return func(o *arrayOptions) {
		if err := o.applyKwargs(kwargs); err != nil && o.err == nil {
			o.err = err
		}
	}
}

func (o *arrayOptions) applyKwargs(kwargs map[string]any) error {
	for k, v := range kwargs {
		if v == nil {
			continue
		}
		switch k {
		case "chunks":
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
		case "filters":
			filters, err := codecList(v)
			if err != nil {
				return fmt.Errorf("filters: %w", err)
			}
			o.filters = filters
		case "compressor":
			m, err := cast.ToStringMapE(v)
			if err != nil {
				return fmt.Errorf("compressor: %w", err)
			}
			o.compressor = m
		default:
			return fmt.Errorf("%w: keyword %q", ErrUnsupported, k)
		}
	}
	return nil
}

func codecList(v any) ([]map[string]any, error) {
	if list, ok := v.([]map[string]any); ok {
		return list, nil
	}
	items, err := cast.ToSliceE(v)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, len(items))
	for i, item := range items {
		m, err := cast.ToStringMapE(item)
		if err != nil {
			return nil, fmt.Errorf("codec %d: %w", i, err)
		}
		out[i] = m
	}
	return out, nil
}
