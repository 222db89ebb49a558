package graph

import (
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/robert-malhotra/go-chunkplan/dtype"
	"github.com/robert-malhotra/go-chunkplan/internal/layout"
)

// ArrayLike is a value with a declared shape and element type.
type ArrayLike interface {
	Shape() []uint64
	Dtype() dtype.Descriptor
}

// RegionReader reads a hyperslab of an array as row-major little-endian
// bytes, Dtype().Size bytes per element.
type RegionReader interface {
	ReadRegion(start, count []uint64) ([]byte, error)
}

// Array is an in-memory array holding encoded element bytes.
type Array struct {
	shape []uint64
	dtype dtype.Descriptor
	data  []byte
}

// NewArray creates an Array from a typed slice or a nested sequence. The
// element type is inferred from values; string widths are measured over
// every element. When shape is given it must hold the same number of
// elements as values.
func NewArray(values any, shape ...uint64) (*Array, error) {
	d, err := dtype.Infer(values, dtype.WithSampleSize(math.MaxInt))
	if err != nil {
		return nil, err
	}
	return NewArrayOf(d, values, shape...)
}

// NewArrayOf is like NewArray with an explicit element type.
func NewArrayOf(d dtype.Descriptor, values any, shape ...uint64) (*Array, error) {
	inferred, err := ShapeOf(values)
	if err != nil {
		return nil, err
	}
	if len(shape) == 0 {
		shape = inferred
	} else if product(shape) != product(inferred) {
		return nil, fmt.Errorf("shape %v does not hold %d elements", shape, product(inferred))
	}

	data, err := dtype.Encode(d, values)
	if err != nil {
		return nil, err
	}
	if uint64(len(data)) != product(shape)*d.Size {
		return nil, fmt.Errorf("encoded %d bytes for shape %v of %s", len(data), shape, d)
	}
	return &Array{shape: append([]uint64(nil), shape...), dtype: d, data: data}, nil
}

// Shape returns the array dimensions.
func (a *Array) Shape() []uint64 { return a.shape }

// Dtype returns the element type.
func (a *Array) Dtype() dtype.Descriptor { return a.dtype }

// ReadRegion implements RegionReader.
func (a *Array) ReadRegion(start, count []uint64) ([]byte, error) {
	if err := checkRegion(a.shape, start, count); err != nil {
		return nil, err
	}
	return layout.CopyRegion(a.data, a.shape, a.dtype.Size, start, count), nil
}

// ReadFunc produces the bytes of one region of a LazyArray.
type ReadFunc func(start, count []uint64) ([]byte, error)

// LazyArray is an array whose shape and type are known up front and whose
// data is produced on demand.
type LazyArray struct {
	shape []uint64
	dtype dtype.Descriptor
	read  ReadFunc
}

// NewLazyArray creates a LazyArray. A nil read function yields zeros.
func NewLazyArray(shape []uint64, d dtype.Descriptor, read ReadFunc) *LazyArray {
	return &LazyArray{shape: append([]uint64(nil), shape...), dtype: d, read: read}
}

// Shape returns the array dimensions.
func (a *LazyArray) Shape() []uint64 { return a.shape }

// Dtype returns the element type.
func (a *LazyArray) Dtype() dtype.Descriptor { return a.dtype }

// ReadRegion implements RegionReader.
func (a *LazyArray) ReadRegion(start, count []uint64) ([]byte, error) {
	if err := checkRegion(a.shape, start, count); err != nil {
		return nil, err
	}
	n := product(count) * a.dtype.Size
	if a.read == nil {
		return make([]byte, n), nil
	}
	b, err := a.read(start, count)
	if err != nil {
		return nil, err
	}
	if uint64(len(b)) != n {
		return nil, fmt.Errorf("read function returned %d bytes, want %d", len(b), n)
	}
	return b, nil
}

// AsArray returns v as an ArrayLike, materializing plain Go values.
func AsArray(v any) (ArrayLike, error) {
	if a, ok := v.(ArrayLike); ok {
		return a, nil
	}
	return NewArray(v)
}

// ShapeOf returns the shape of an array-like value. Nested sequences must
// be rectangular; nil elements count as scalars.
func ShapeOf(v any) ([]uint64, error) {
	if a, ok := v.(ArrayLike); ok {
		return a.Shape(), nil
	}
	if v == nil {
		return nil, fmt.Errorf("nil value has no shape")
	}
	return shapeOf(reflect.ValueOf(v), "", false)
}

// shapeOf computes the shape of v. untyped is set for elements of []any.
func shapeOf(v reflect.Value, where string, untyped bool) ([]uint64, error) {
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, nil
	}
	// Byte slices nested inside untyped sequences are scalar leaves.
	if untyped && v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8 {
		return nil, nil
	}

	n := uint64(v.Len())
	switch v.Type().Elem().Kind() {
	case reflect.Slice, reflect.Array, reflect.Interface, reflect.Pointer:
	default:
		return []uint64{n}, nil
	}
	if n == 0 {
		return []uint64{0}, nil
	}

	var inner []uint64
	elemUntyped := v.Type().Elem().Kind() == reflect.Interface
	for i := 0; i < v.Len(); i++ {
		loc := where + "[" + strconv.Itoa(i) + "]"
		s, err := shapeOf(v.Index(i), loc, elemUntyped)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			inner = s
			continue
		}
		if !equalShape(s, inner) {
			return nil, ErrRagged.New(loc, fmt.Sprintf("shape %v differs from %v", s, inner))
		}
	}
	return append([]uint64{n}, inner...), nil
}

func checkRegion(shape, start, count []uint64) error {
	if len(start) != len(shape) || len(count) != len(shape) {
		return ErrRegion.New(start, count, shape)
	}
	for i := range shape {
		if start[i] > shape[i] || count[i] > shape[i]-start[i] {
			return ErrRegion.New(start, count, shape)
		}
	}
	return nil
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

func product(shape []uint64) uint64 {
	n := uint64(1)
	for _, d := range shape {
		n *= d
	}
	return n
}
