package backend

import (
	"fmt"

	"github.com/creasty/defaults"
	"go.uber.org/zap"

	"github.com/robert-malhotra/go-chunkplan/chunking"
	"github.com/robert-malhotra/go-chunkplan/graph"
)

// AxisPriorityFunc returns the chunk growth order for the dataset at loc,
// or nil to use chunking.DefaultAxisPriority.
type AxisPriorityFunc func(loc graph.Location, shape []uint64) []int

// Option configures planning.
type Option func(*options)

type options struct {
	ChunkMB     float64 `default:"10"`
	BufferGB    float64 `default:"1"`
	Concurrency int     `default:"1"`
	SampleSize  int     `default:"1000"`

	compression  Compression
	axisPriority AxisPriorityFunc
	logger       *zap.Logger
}

func newOptions(opts ...Option) (*options, error) {
	o := &options{}
	if err := defaults.Set(o); err != nil {
		return nil, fmt.Errorf("set option defaults: %w", err)
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.ChunkMB <= 0 {
		return nil, fmt.Errorf("chunk size %v MB must be positive", o.ChunkMB)
	}
	if o.BufferGB <= 0 {
		return nil, fmt.Errorf("buffer size %v GB must be positive", o.BufferGB)
	}
	if o.Concurrency < 1 {
		o.Concurrency = 1
	}
	return o, nil
}

func (o *options) planOptions(loc graph.Location, shape []uint64) chunking.Options {
	co := chunking.Options{
		ChunkBytes:  max(1, chunking.MB(o.ChunkMB)),
		BufferBytes: max(1, chunking.GB(o.BufferGB)),
	}
	if o.axisPriority != nil {
		co.AxisPriority = o.axisPriority(loc, shape)
	}
	return co
}

// WithChunkMB sets the chunk budget in decimal megabytes. Default 10.
func WithChunkMB(mb float64) Option {
	return func(o *options) {
		o.ChunkMB = mb
	}
}

// WithBufferGB sets the buffer budget in decimal gigabytes. Default 1.
func WithBufferGB(gb float64) Option {
	return func(o *options) {
		o.BufferGB = gb
	}
}

// WithConcurrency sets how many datasets are planned at once. Default 1.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.Concurrency = n
	}
}

// WithSampleSize bounds the strings sampled per string dataset.
func WithSampleSize(n int) Option {
	return func(o *options) {
		o.SampleSize = n
	}
}

// WithCompression replaces the backend default compression for every
// planned dataset. It must match the target backend.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithAxisPriority sets a per-dataset chunk growth order.
func WithAxisPriority(fn AxisPriorityFunc) Option {
	return func(o *options) {
		o.axisPriority = fn
	}
}

// WithLogger sets the logger. Default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
