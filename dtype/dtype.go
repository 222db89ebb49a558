package dtype

import (
	"fmt"
	"reflect"
	"strconv"
)

// Kind classifies a Descriptor.
type Kind uint8

// Element kinds.
const (
	Invalid Kind = iota
	Bool
	Int
	Uint
	Float
	String
	Bytes
)

func (k Kind) String() string {
	switch k {
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Uint:
		return "uint"
	case Float:
		return "float"
	case String:
		return "str"
	case Bytes:
		return "bytes"
	default:
		return "invalid"
	}
}

// VariableLength reports whether elements of this kind have no intrinsic width.
func (k Kind) VariableLength() bool {
	return k == String || k == Bytes
}

// Descriptor describes the element type of a dataset.
//
// For numeric kinds Size is the exact width in bytes. For variable-length
// kinds Size is the estimated maximum encoded length of one element, and
// Provisional is set when that estimate is a fallback rather than an
// observation.
type Descriptor struct {
	Kind        Kind
	Size        uint64
	Provisional bool
}

// Common descriptors.
var (
	Bool8   = Descriptor{Kind: Bool, Size: 1}
	Int8    = Descriptor{Kind: Int, Size: 1}
	Int16   = Descriptor{Kind: Int, Size: 2}
	Int32   = Descriptor{Kind: Int, Size: 4}
	Int64   = Descriptor{Kind: Int, Size: 8}
	Uint8   = Descriptor{Kind: Uint, Size: 1}
	Uint16  = Descriptor{Kind: Uint, Size: 2}
	Uint32  = Descriptor{Kind: Uint, Size: 4}
	Uint64  = Descriptor{Kind: Uint, Size: 8}
	Float32 = Descriptor{Kind: Float, Size: 4}
	Float64 = Descriptor{Kind: Float, Size: 8}
)

// StringOf returns a string descriptor with the given item size.
func StringOf(size uint64) Descriptor {
	return Descriptor{Kind: String, Size: size}
}

// ItemSize returns the number of bytes one element occupies in storage.
func (d Descriptor) ItemSize() uint64 {
	return d.Size
}

// IsVariableLength reports whether the item size is an estimate.
func (d Descriptor) IsVariableLength() bool {
	return d.Kind.VariableLength()
}

// Valid reports whether d can be used for storage planning.
func (d Descriptor) Valid() bool {
	switch d.Kind {
	case Bool:
		return d.Size == 1
	case Int, Uint:
		return d.Size == 1 || d.Size == 2 || d.Size == 4 || d.Size == 8
	case Float:
		return d.Size == 2 || d.Size == 4 || d.Size == 8
	case String, Bytes:
		return d.Size > 0
	default:
		return false
	}
}

// String returns a short name such as "float64", "uint8" or "str[12]".
func (d Descriptor) String() string {
	switch d.Kind {
	case Bool:
		return "bool"
	case Int, Uint, Float:
		return d.Kind.String() + strconv.FormatUint(d.Size*8, 10)
	case String, Bytes:
		s := fmt.Sprintf("%s[%d]", d.Kind, d.Size)
		if d.Provisional {
			s += "?"
		}
		return s
	default:
		return "invalid"
	}
}

// Typestr returns the NumPy array-protocol type string for d, as used by
// Zarr metadata. Multi-byte types are little endian.
func (d Descriptor) Typestr() string {
	order := "<"
	if d.Size == 1 || d.IsVariableLength() {
		order = "|"
	}
	switch d.Kind {
	case Bool:
		return "|b1"
	case Int:
		return order + "i" + strconv.FormatUint(d.Size, 10)
	case Uint:
		return order + "u" + strconv.FormatUint(d.Size, 10)
	case Float:
		return order + "f" + strconv.FormatUint(d.Size, 10)
	case String:
		return "|S" + strconv.FormatUint(d.Size, 10)
	case Bytes:
		return "|V" + strconv.FormatUint(d.Size, 10)
	default:
		return ""
	}
}

// ParseTypestr parses a NumPy array-protocol type string such as "<f8" or
// "|S12". Big-endian strings are rejected.
func ParseTypestr(s string) (Descriptor, error) {
	if len(s) < 3 {
		return Descriptor{}, fmt.Errorf("invalid type string %q", s)
	}
	if s[0] == '>' {
		return Descriptor{}, fmt.Errorf("big-endian type string %q is not supported", s)
	}
	if s[0] != '<' && s[0] != '|' && s[0] != '=' {
		return Descriptor{}, fmt.Errorf("invalid byte order in type string %q", s)
	}

	size, err := strconv.ParseUint(s[2:], 10, 64)
	if err != nil {
		return Descriptor{}, fmt.Errorf("invalid size in type string %q: %w", s, err)
	}

	var d Descriptor
	switch s[1] {
	case 'b':
		d = Descriptor{Kind: Bool, Size: size}
	case 'i':
		d = Descriptor{Kind: Int, Size: size}
	case 'u':
		d = Descriptor{Kind: Uint, Size: size}
	case 'f':
		d = Descriptor{Kind: Float, Size: size}
	case 'S':
		d = Descriptor{Kind: String, Size: size}
	case 'V':
		d = Descriptor{Kind: Bytes, Size: size}
	default:
		return Descriptor{}, fmt.Errorf("unsupported type string %q", s)
	}
	if !d.Valid() {
		return Descriptor{}, fmt.Errorf("unsupported type string %q", s)
	}
	return d, nil
}

// Of returns the descriptor declared by a Go type. Slice, array and pointer
// types are unwrapped to their element type. String element types have no
// declared width and report Provisional with DefaultStringSize.
func Of(t reflect.Type) (Descriptor, error) {
	if t == nil {
		return Descriptor{}, ErrUnknownType.New("<nil>", "no type")
	}
	leaf := leafType(t)
	d, ok := declared(leaf)
	if !ok {
		return Descriptor{}, ErrUnknownType.New(t.String(), "unsupported element type "+leaf.String())
	}
	if d.IsVariableLength() {
		d.Size = DefaultStringSize
		d.Provisional = true
	}
	return d, nil
}

// leafType strips pointers, slices and arrays from t.
func leafType(t reflect.Type) reflect.Type {
	for {
		switch t.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Array:
			t = t.Elem()
		default:
			return t
		}
	}
}

// declared maps a scalar Go kind to a descriptor. String kinds are returned
// with zero size.
func declared(t reflect.Type) (Descriptor, bool) {
	switch t.Kind() {
	case reflect.Bool:
		return Bool8, true
	case reflect.Int8:
		return Int8, true
	case reflect.Int16:
		return Int16, true
	case reflect.Int32:
		return Int32, true
	case reflect.Int64, reflect.Int:
		return Int64, true
	case reflect.Uint8:
		return Uint8, true
	case reflect.Uint16:
		return Uint16, true
	case reflect.Uint32:
		return Uint32, true
	case reflect.Uint64, reflect.Uint:
		return Uint64, true
	case reflect.Float32:
		return Float32, true
	case reflect.Float64:
		return Float64, true
	case reflect.String:
		return Descriptor{Kind: String}, true
	default:
		return Descriptor{}, false
	}
}
