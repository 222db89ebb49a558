package hdf5

import (
	"errors"
	"testing"
)

func TestWithKwargs(t *testing.T) {
	o := &datasetOptions{}
	WithKwargs(map[string]any{
		"chunks":           []uint64{64, 19531},
		"compression":      "gzip",
		"compression_opts": 0,
		"shuffle":          true,
		"fletcher32":       nil,
	})(o)
	if o.err != nil {
		t.Fatalf("WithKwargs failed: %v", o.err)
	}
	if len(o.chunks) != 2 || o.chunks[0] != 64 || o.chunks[1] != 19531 {
		t.Errorf("chunks = %v", o.chunks)
	}
	if !o.deflate || o.level != 0 {
		t.Errorf("deflate = %v level = %d, want true 0", o.deflate, o.level)
	}
	if !o.shuffle || o.fletcher32 {
		t.Errorf("shuffle = %v fletcher32 = %v", o.shuffle, o.fletcher32)
	}
}

func TestWithKwargsDefaultLevel(t *testing.T) {
	o := &datasetOptions{}
	WithKwargs(map[string]any{"compression": "gzip", "compression_opts": nil})(o)
	if o.err != nil {
		t.Fatalf("WithKwargs failed: %v", o.err)
	}
	if o.level != defaultGzipLevel {
		t.Errorf("level = %d, want %d", o.level, defaultGzipLevel)
	}
}

func TestWithKwargsErrors(t *testing.T) {
	tests := []struct {
		name   string
		kwargs map[string]any
		unsup  bool
	}{
		{"unknown keyword", map[string]any{"maxshape": []int{1}}, true},
		{"lzf", map[string]any{"compression": "lzf"}, true},
		{"bad level", map[string]any{"compression": "gzip", "compression_opts": 12}, false},
		{"bad chunks", map[string]any{"chunks": []int{4, 0}}, false},
		{"bad bool", map[string]any{"shuffle": "maybe"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &datasetOptions{}
			WithKwargs(tt.kwargs)(o)
			if o.err == nil {
				t.Fatal("expected an error")
			}
			if tt.unsup && !errors.Is(o.err, ErrUnsupported) {
				t.Errorf("got %v, want ErrUnsupported", o.err)
			}
		})
	}
}
