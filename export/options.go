package export

import (
	"fmt"

	"github.com/creasty/defaults"
	"go.uber.org/zap"
)

// Option configures Write.
type Option func(*options)

type options struct {
	Concurrency int `default:"4"`

	logger *zap.Logger
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
	if o.Concurrency < 1 {
		o.Concurrency = 1
	}
	return o, nil
}

// WithConcurrency sets how many buffers are read and written at once.
// Default 4.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.Concurrency = n
	}
}

// WithLogger sets the logger. Default no-op.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
