package zarr

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/spf13/cast"

	"github.com/robert-malhotra/go-chunkplan/dtype"
)

// Metadata keys of a v2 hierarchy.
const (
	groupKey = ".zgroup"
	arrayKey = ".zarray"
)

// Format is the zarr_format this package reads and writes.
const Format = 2

// GroupMetadata is the content of a .zgroup document.
type GroupMetadata struct {
	ZarrFormat int `json:"zarr_format"`
}

// ArrayMetadata is the content of a .zarray document. Codec configurations
// use the numcodecs form {"id": ..., <options>...}.
type ArrayMetadata struct {
	ZarrFormat         int              `json:"zarr_format"`
	Shape              []uint64         `json:"shape"`
	Chunks             []uint64         `json:"chunks"`
	Dtype              string           `json:"dtype"`
	Compressor         map[string]any   `json:"compressor"`
	FillValue          any              `json:"fill_value"`
	Order              string           `json:"order"`
	Filters            []map[string]any `json:"filters"`
	DimensionSeparator string           `json:"dimension_separator,omitempty"`
}

// validate checks the fields this package depends on.
func (m *ArrayMetadata) validate() error {
	if m.ZarrFormat != Format {
		return fmt.Errorf("%w: zarr_format %d", ErrUnsupported, m.ZarrFormat)
	}
	if len(m.Shape) != len(m.Chunks) {
		return fmt.Errorf("chunks %v do not match shape %v", m.Chunks, m.Shape)
	}
	for i, c := range m.Chunks {
		if c == 0 {
			return fmt.Errorf("chunk dimension %d is zero", i)
		}
	}
	if m.Order != "" && m.Order != "C" {
		return fmt.Errorf("%w: order %q", ErrUnsupported, m.Order)
	}
	switch m.DimensionSeparator {
	case "", ".", "/":
	default:
		return fmt.Errorf("invalid dimension_separator %q", m.DimensionSeparator)
	}
	return nil
}

// separator returns the chunk key separator.
func (m *ArrayMetadata) separator() string {
	if m.DimensionSeparator == "" {
		return "."
	}
	return m.DimensionSeparator
}

// fillValue returns the JSON fill value for an element type.
func fillValue(d dtype.Descriptor) any {
	switch d.Kind {
	case dtype.Bool:
		return false
	case dtype.Int, dtype.Uint, dtype.Float:
		return 0
	}
	return nil
}

// fillBytes returns one encoded element holding the fill value. Missing or
// null fill values are zero.
func fillBytes(d dtype.Descriptor, v any) ([]byte, error) {
	zero := make([]byte, d.Size)
	if v == nil {
		return zero, nil
	}
	var (
		b   []byte
		err error
	)
	switch d.Kind {
	case dtype.Bool:
		var x bool
		if x, err = cast.ToBoolE(v); err == nil {
			b, err = dtype.Encode(d, x)
		}
	case dtype.Int:
		var x int64
		if x, err = cast.ToInt64E(v); err == nil {
			b, err = dtype.Encode(d, x)
		}
	case dtype.Uint:
		var x uint64
		if x, err = cast.ToUint64E(v); err == nil {
			b, err = dtype.Encode(d, x)
		}
	case dtype.Float:
		var x float64
		if x, err = cast.ToFloat64E(v); err == nil {
			if x == 0 {
				return zero, nil
			}
			b, err = dtype.Encode(d, x)
		}
	default:
		return zero, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fill_value %v: %w", v, err)
	}
	return b, nil
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
