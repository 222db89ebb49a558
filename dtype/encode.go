package dtype

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
)

// Encode flattens v in row-major order and encodes every element as d.
// Nil elements encode as zero values. Strings longer than the item size
// are rejected rather than truncated.
func Encode(d Descriptor, v any) ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("encode: invalid descriptor %s", d)
	}
	e := &encoder{d: d, size: int(d.Size)}
	if err := e.walk(reflect.ValueOf(v)); err != nil {
		return nil, err
	}
	return e.buf, nil
}

type encoder struct {
	d    Descriptor
	size int
	buf  []byte
}

func (e *encoder) walk(v reflect.Value) error {
	if !v.IsValid() {
		e.grow()
		return nil
	}

	switch v.Kind() {
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			e.grow()
			return nil
		}
		return e.walk(v.Elem())

	case reflect.Slice, reflect.Array:
		if e.d.Kind == Bytes && v.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, v.Len())
			reflect.Copy(reflect.ValueOf(b), v)
			return e.putBytes(b, v.Type())
		}
		for i := 0; i < v.Len(); i++ {
			if err := e.walk(v.Index(i)); err != nil {
				return err
			}
		}
		return nil
	}

	return e.putScalar(v)
}

// grow appends one zeroed element and returns it.
func (e *encoder) grow() []byte {
	off := len(e.buf)
	e.buf = append(e.buf, make([]byte, e.size)...)
	return e.buf[off : off+e.size]
}

func (e *encoder) putBytes(b []byte, t reflect.Type) error {
	if len(b) > e.size {
		return ErrEncode.New(fmt.Sprintf("%s of %d bytes", t, len(b)), e.d.String())
	}
	copy(e.grow(), b)
	return nil
}

func (e *encoder) putScalar(v reflect.Value) error {
	mismatch := func() error {
		return ErrEncode.New(v.Type().String(), e.d.String())
	}

	switch e.d.Kind {
	case Bool:
		if v.Kind() != reflect.Bool {
			return mismatch()
		}
		dst := e.grow()
		if v.Bool() {
			dst[0] = 1
		}

	case Int:
		var x int64
		switch {
		case v.CanInt():
			x = v.Int()
		case v.CanUint():
			if v.Uint() > math.MaxInt64 {
				return mismatch()
			}
			x = int64(v.Uint())
		default:
			return mismatch()
		}
		if e.size < 8 {
			lim := int64(1) << (e.size*8 - 1)
			if x < -lim || x >= lim {
				return ErrEncode.New(fmt.Sprintf("%d", x), e.d.String())
			}
		}
		putUint(e.grow(), uint64(x))

	case Uint:
		var x uint64
		switch {
		case v.CanUint():
			x = v.Uint()
		case v.CanInt():
			if v.Int() < 0 {
				return ErrEncode.New(fmt.Sprintf("%d", v.Int()), e.d.String())
			}
			x = uint64(v.Int())
		default:
			return mismatch()
		}
		if e.size < 8 && x >= uint64(1)<<(e.size*8) {
			return ErrEncode.New(fmt.Sprintf("%d", x), e.d.String())
		}
		putUint(e.grow(), x)

	case Float:
		if !v.CanFloat() {
			return mismatch()
		}
		switch e.size {
		case 4:
			binary.LittleEndian.PutUint32(e.grow(), math.Float32bits(float32(v.Float())))
		case 8:
			binary.LittleEndian.PutUint64(e.grow(), math.Float64bits(v.Float()))
		default:
			return fmt.Errorf("encode: %s is not supported", e.d)
		}

	case String, Bytes:
		if v.Kind() != reflect.String {
			return mismatch()
		}
		return e.putBytes([]byte(v.String()), v.Type())

	default:
		return mismatch()
	}
	return nil
}

// putUint writes the low len(dst) bytes of x in little-endian order.
func putUint(dst []byte, x uint64) {
	for i := range dst {
		dst[i] = byte(x >> (8 * i))
	}
}
