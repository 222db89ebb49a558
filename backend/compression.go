package backend

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cast"
)

// Compression is the backend-specific compression of one dataset. It is
// either HDF5Compression or ZarrCompression.
type Compression interface {
	// Backend returns the backend whose vocabulary the value uses.
	Backend() Kind
	// Validate checks methods, codec IDs and option values.
	Validate() error
	// String returns a canonical description; equal values have equal
	// strings.
	String() string

	// clone returns a deep copy. Zarr shuffle codecs without an element
	// size take itemSize.
	clone(itemSize uint64) Compression
}

// HDF5 compression methods.
const (
	MethodNone = ""
	MethodGzip = "gzip"
	MethodLZF  = "lzf"
)

// DefaultGzipLevel is the deflate level used by default on both backends.
const DefaultGzipLevel = 4

// HDF5Compression names an HDF5 filter method and its options. Recognized
// options are "level" (gzip only, 0 to 9), "shuffle" and "fletcher32".
type HDF5Compression struct {
	Method  string
	Options map[string]any
}

// DefaultHDF5Compression returns gzip at DefaultGzipLevel.
func DefaultHDF5Compression() HDF5Compression {
	return HDF5Compression{Method: MethodGzip, Options: map[string]any{"level": DefaultGzipLevel}}
}

func (c HDF5Compression) clone(uint64) Compression {
	return HDF5Compression{Method: c.Method, Options: cloneOptions(c.Options)}
}

// Backend returns HDF5.
func (HDF5Compression) Backend() Kind { return HDF5 }

// Level returns the gzip level, defaulting to DefaultGzipLevel.
func (c HDF5Compression) Level() int {
	if v, ok := c.Options["level"]; ok {
		if n, err := cast.ToIntE(v); err == nil {
			return n
		}
	}
	return DefaultGzipLevel
}

// Shuffle reports whether the shuffle filter precedes compression.
func (c HDF5Compression) Shuffle() bool {
	return cast.ToBool(c.Options["shuffle"])
}

// Fletcher32 reports whether chunks carry a Fletcher-32 checksum.
func (c HDF5Compression) Fletcher32() bool {
	return cast.ToBool(c.Options["fletcher32"])
}

// Validate implements Compression.
func (c HDF5Compression) Validate() error {
	switch c.Method {
	case MethodNone, MethodGzip, MethodLZF:
	default:
		return fmt.Errorf("unsupported hdf5 compression method %q", c.Method)
	}
	for k, v := range c.Options {
		switch k {
		case "level":
			if c.Method != MethodGzip {
				return fmt.Errorf("option level is only valid for %s", MethodGzip)
			}
			n, err := cast.ToIntE(v)
			if err != nil {
				return fmt.Errorf("gzip level: %w", err)
			}
			if n < 0 || n > 9 {
				return fmt.Errorf("gzip level %d is outside 0..9", n)
			}
		case "shuffle", "fletcher32":
			if _, err := cast.ToBoolE(v); err != nil {
				return fmt.Errorf("option %s: %w", k, err)
			}
		default:
			return fmt.Errorf("unknown hdf5 compression option %q", k)
		}
	}
	return nil
}

func (c HDF5Compression) String() string {
	name := c.Method
	if name == MethodNone {
		name = "none"
	}
	return name + formatOptions(c.Options)
}

// kwargs adds h5py-style create_dataset keywords to m.
func (c HDF5Compression) kwargs(m map[string]any) {
	if c.Method == MethodNone {
		m["compression"] = nil
		m["compression_opts"] = nil
	} else {
		m["compression"] = c.Method
		m["compression_opts"] = nil
		if c.Method == MethodGzip {
			m["compression_opts"] = c.Level()
		}
	}
	if c.Shuffle() {
		m["shuffle"] = true
	}
	if c.Fletcher32() {
		m["fletcher32"] = true
	}
}

// Zarr codec IDs, following numcodecs.
const (
	CodecGzip    = "gzip"
	CodecZlib    = "zlib"
	CodecZstd    = "zstd"
	CodecShuffle = "shuffle"
)

// FilterSpec is one codec of a Zarr filter chain.
type FilterSpec struct {
	ID     string
	Config map[string]any
}

// IsCompressor reports whether the codec compresses.
func (f FilterSpec) IsCompressor() bool {
	switch f.ID {
	case CodecGzip, CodecZlib, CodecZstd:
		return true
	}
	return false
}

// Map returns the numcodecs JSON form, {"id": ..., <config>...}.
func (f FilterSpec) Map() map[string]any {
	m := make(map[string]any, len(f.Config)+1)
	for k, v := range f.Config {
		m[k] = v
	}
	m["id"] = f.ID
	return m
}

// FilterSpecFromMap parses the numcodecs JSON form.
func FilterSpecFromMap(m map[string]any) (FilterSpec, error) {
	id, err := cast.ToStringE(m["id"])
	if err != nil || id == "" {
		return FilterSpec{}, fmt.Errorf("codec %v has no id", m)
	}
	f := FilterSpec{ID: id}
	for k, v := range m {
		if k == "id" {
			continue
		}
		if f.Config == nil {
			f.Config = make(map[string]any)
		}
		f.Config[k] = v
	}
	return f, nil
}

func (f FilterSpec) validate() error {
	switch f.ID {
	case CodecGzip, CodecZlib, CodecZstd, CodecShuffle:
	default:
		return fmt.Errorf("unsupported zarr codec %q", f.ID)
	}
	for k, v := range f.Config {
		switch {
		case k == "level" && (f.ID == CodecGzip || f.ID == CodecZlib):
			n, err := cast.ToIntE(v)
			if err != nil {
				return fmt.Errorf("%s level: %w", f.ID, err)
			}
			if n < 0 || n > 9 {
				return fmt.Errorf("%s level %d is outside 0..9", f.ID, n)
			}
		case k == "level" && f.ID == CodecZstd:
			n, err := cast.ToIntE(v)
			if err != nil {
				return fmt.Errorf("zstd level: %w", err)
			}
			if n < 1 || n > 22 {
				return fmt.Errorf("zstd level %d is outside 1..22", n)
			}
		case k == "elementsize" && f.ID == CodecShuffle:
			n, err := cast.ToIntE(v)
			if err != nil {
				return fmt.Errorf("shuffle elementsize: %w", err)
			}
			if n < 1 {
				return fmt.Errorf("shuffle elementsize %d must be positive", n)
			}
		default:
			return fmt.Errorf("unknown option %q for codec %q", k, f.ID)
		}
	}
	return nil
}

func (f FilterSpec) String() string {
	return f.ID + formatOptions(f.Config)
}

func (f FilterSpec) clone() FilterSpec {
	return FilterSpec{ID: f.ID, Config: cloneOptions(f.Config)}
}

// ZarrCompression is an ordered chain of codecs applied to every chunk.
// A trailing compressor codec becomes the array compressor; the codecs
// before it are array filters.
type ZarrCompression struct {
	Filters []FilterSpec
}

// DefaultZarrCompression returns a chain holding gzip at DefaultGzipLevel.
func DefaultZarrCompression() ZarrCompression {
	return ZarrCompression{Filters: []FilterSpec{{ID: CodecGzip, Config: map[string]any{"level": DefaultGzipLevel}}}}
}

func (c ZarrCompression) clone(itemSize uint64) Compression {
	if c.Filters == nil {
		return ZarrCompression{}
	}
	out := ZarrCompression{Filters: make([]FilterSpec, len(c.Filters))}
	for i, f := range c.Filters {
		out.Filters[i] = f.clone()
		if f.ID != CodecShuffle || itemSize == 0 {
			continue
		}
		if _, ok := f.Config["elementsize"]; !ok {
			if out.Filters[i].Config == nil {
				out.Filters[i].Config = make(map[string]any, 1)
			}
			out.Filters[i].Config["elementsize"] = int(itemSize)
		}
	}
	return out
}

// Backend returns Zarr.
func (ZarrCompression) Backend() Kind { return Zarr }

// Validate implements Compression.
func (c ZarrCompression) Validate() error {
	for i, f := range c.Filters {
		if err := f.validate(); err != nil {
			return fmt.Errorf("filter %d: %w", i, err)
		}
	}
	return nil
}

// Split separates the chain into array filters and the trailing compressor.
func (c ZarrCompression) Split() (filters []FilterSpec, compressor *FilterSpec) {
	n := len(c.Filters)
	if n > 0 && c.Filters[n-1].IsCompressor() {
		last := c.Filters[n-1]
		return c.Filters[:n-1], &last
	}
	return c.Filters, nil
}

func (c ZarrCompression) String() string {
	if len(c.Filters) == 0 {
		return "none"
	}
	parts := make([]string, len(c.Filters))
	for i, f := range c.Filters {
		parts[i] = f.String()
	}
	return strings.Join(parts, " | ")
}

// kwargs adds zarr create keywords to m.
func (c ZarrCompression) kwargs(m map[string]any) {
	filters, compressor := c.Split()
	if len(filters) == 0 {
		m["filters"] = nil
	} else {
		list := make([]map[string]any, len(filters))
		for i, f := range filters {
			list[i] = f.Map()
		}
		m["filters"] = list
	}
	if compressor == nil {
		m["compressor"] = nil
	} else {
		m["compressor"] = compressor.Map()
	}
}

func cloneOptions(opts map[string]any) map[string]any {
	if opts == nil {
		return nil
	}
	out := make(map[string]any, len(opts))
	for k, v := range opts {
		out[k] = v
	}
	return out
}

// formatOptions renders options as "(k=v,...)" with sorted keys.
func formatOptions(opts map[string]any) string {
	if len(opts) == 0 {
		return ""
	}
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	sb.WriteByte('(')
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(cast.ToString(opts[k]))
	}
	sb.WriteByte(')')
	return sb.String()
}
