package zarr

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cast"

	"github.com/robert-malhotra/go-chunkplan/internal/filter"
)

// Codec encodes and decodes chunk bytes.
type Codec interface {
	ID() string
	Encode(input []byte) ([]byte, error)
	Decode(input []byte) ([]byte, error)
}

// Numcodecs defaults.
const (
	defaultGzipLevel    = 1
	defaultZlibLevel    = 1
	defaultZstdLevel    = 1
	defaultShuffleWidth = 4
)

// NewCodec returns the codec for a numcodecs configuration. Supported IDs
// are gzip, zlib, zstd and shuffle.
func NewCodec(config map[string]any) (Codec, error) {
	id := cast.ToString(config["id"])
	for k := range config {
		if k != "id" && !knownOption(id, k) {
			return nil, fmt.Errorf("%w: option %q of codec %q", ErrUnsupported, k, id)
		}
	}

	switch id {
	case "gzip":
		level, err := intOption(config, "level", defaultGzipLevel, 0, 9)
		if err != nil {
			return nil, err
		}
		return &gzipCodec{level: level}, nil
	case "zlib":
		level, err := intOption(config, "level", defaultZlibLevel, 0, 9)
		if err != nil {
			return nil, err
		}
		return &zlibCodec{f: filter.NewDeflate([]uint32{uint32(level)})}, nil
	case "zstd":
		level, err := intOption(config, "level", defaultZstdLevel, 1, 22)
		if err != nil {
			return nil, err
		}
		return newZstdCodec(level)
	case "shuffle":
		width, err := intOption(config, "elementsize", defaultShuffleWidth, 1, 1<<16)
		if err != nil {
			return nil, err
		}
		return &shuffleCodec{f: filter.NewShuffle([]uint32{uint32(width)})}, nil
	}
	return nil, fmt.Errorf("%w: codec %q", ErrUnsupported, id)
}

func knownOption(id, key string) bool {
	switch id {
	case "gzip", "zlib", "zstd":
		return key == "level"
	case "shuffle":
		return key == "elementsize"
	}
	return false
}

func intOption(config map[string]any, key string, def, lo, hi int) (int, error) {
	v, ok := config[key]
	if !ok || v == nil {
		return def, nil
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", config["id"], key, err)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("%s %s %d is outside %d..%d", config["id"], key, n, lo, hi)
	}
	return n, nil
}

type gzipCodec struct {
	level int
}

func (c *gzipCodec) ID() string { return "gzip" }

func (c *gzipCodec) Encode(input []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, c.level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(input); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *gzipCodec) Decode(input []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(input))
	if err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

// zlibCodec shares the deflate filter of HDF5 files; both use zlib
// framing.
type zlibCodec struct {
	f *filter.Deflate
}

func (c *zlibCodec) ID() string                          { return "zlib" }
func (c *zlibCodec) Encode(input []byte) ([]byte, error) { return c.f.Encode(input) }
func (c *zlibCodec) Decode(input []byte) ([]byte, error) { return c.f.Decode(input) }

type shuffleCodec struct {
	f *filter.Shuffle
}

func (c *shuffleCodec) ID() string                          { return "shuffle" }
func (c *shuffleCodec) Encode(input []byte) ([]byte, error) { return c.f.Encode(input) }
func (c *shuffleCodec) Decode(input []byte) ([]byte, error) { return c.f.Decode(input) }

// zstd encoders and decoders are safe for concurrent EncodeAll/DecodeAll
// calls, so one pair is kept per level.
var (
	zstdMu       sync.Mutex
	zstdEncoders = map[int]*zstd.Encoder{}
	zstdDecoder  *zstd.Decoder
)

type zstdCodec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func newZstdCodec(level int) (*zstdCodec, error) {
	zstdMu.Lock()
	defer zstdMu.Unlock()

	enc, ok := zstdEncoders[level]
	if !ok {
		var err error
		enc, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
		if err != nil {
			return nil, err
		}
		zstdEncoders[level] = enc
	}
	if zstdDecoder == nil {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		zstdDecoder = dec
	}
	return &zstdCodec{enc: enc, dec: zstdDecoder}, nil
}

func (c *zstdCodec) ID() string { return "zstd" }

func (c *zstdCodec) Encode(input []byte) ([]byte, error) {
	return c.enc.EncodeAll(input, nil), nil
}

func (c *zstdCodec) Decode(input []byte) ([]byte, error) {
	out, err := c.dec.DecodeAll(input, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	return out, nil
}

// Chain applies array filters in order and then the compressor.
type Chain struct {
	filters    []Codec
	compressor Codec
}

// NewChain builds the codec chain of an array. compressor may be nil.
func NewChain(filters []map[string]any, compressor map[string]any) (*Chain, error) {
	c := &Chain{}
	for i, cfg := range filters {
		codec, err := NewCodec(cfg)
		if err != nil {
			return nil, fmt.Errorf("filter %d: %w", i, err)
		}
		c.filters = append(c.filters, codec)
	}
	if compressor != nil {
		codec, err := NewCodec(compressor)
		if err != nil {
			return nil, fmt.Errorf("compressor: %w", err)
		}
		c.compressor = codec
	}
	return c, nil
}

// Encode runs the chain forward.
func (c *Chain) Encode(data []byte) ([]byte, error) {
	var err error
	for _, f := range c.filters {
		if data, err = f.Encode(data); err != nil {
			return nil, fmt.Errorf("%s: %w", f.ID(), err)
		}
	}
	if c.compressor != nil {
		if data, err = c.compressor.Encode(data); err != nil {
			return nil, fmt.Errorf("%s: %w", c.compressor.ID(), err)
		}
	}
	return data, nil
}

// Decode runs the chain in reverse.
func (c *Chain) Decode(data []byte) ([]byte, error) {
	var err error
	if c.compressor != nil {
		if data, err = c.compressor.Decode(data); err != nil {
			return nil, fmt.Errorf("%s: %w", c.compressor.ID(), err)
		}
	}
	for i := len(c.filters) - 1; i >= 0; i-- {
		if data, err = c.filters[i].Decode(data); err != nil {
			return nil, fmt.Errorf("%s: %w", c.filters[i].ID(), err)
		}
	}
	return data, nil
}
