package message

import (
	"fmt"

	"github.com/robert-malhotra/go-chunkplan/dtype"
	"github.com/robert-malhotra/go-chunkplan/internal/binary"
)

// DatatypeClass is the class of an HDF5 datatype.
type DatatypeClass uint8

const (
	ClassFixedPoint DatatypeClass = 0
	ClassFloatPoint DatatypeClass = 1
	ClassTime       DatatypeClass = 2
	ClassString     DatatypeClass = 3
	ClassBitfield   DatatypeClass = 4
	ClassOpaque     DatatypeClass = 5
	ClassCompound   DatatypeClass = 6
	ClassReference  DatatypeClass = 7
	ClassEnum       DatatypeClass = 8
	ClassVarLen     DatatypeClass = 9
	ClassArray      DatatypeClass = 10
)

// String padding and character set of ClassString.
const (
	PadNullTerm uint8 = 0
	PadNullPad  uint8 = 1
	PadSpacePad uint8 = 2

	CharsetASCII uint8 = 0
	CharsetUTF8  uint8 = 1
)

// FloatLayout gives the bit positions of an IEEE float.
type FloatLayout struct {
	ExponentLocation uint8
	ExponentSize     uint8
	MantissaLocation uint8
	MantissaSize     uint8
	ExponentBias     uint32
}

var floatLayouts = map[uint32]FloatLayout{
	2: {10, 5, 0, 10, 15},
	4: {23, 8, 0, 23, 127},
	8: {52, 11, 0, 52, 1023},
}

// Datatype describes the element type of a dataset (type 0x0003). Only the
// classes needed to store dtype descriptors are interpreted; the others are
// kept by class and size.
type Datatype struct {
	Version   uint8
	Class     DatatypeClass
	ClassBits uint32
	Size      uint32

	BigEndian bool

	// ClassFixedPoint
	Signed bool

	// ClassFloatPoint
	Float FloatLayout

	// ClassString
	Padding uint8
	Charset uint8

	// ClassOpaque
	Tag string

	// ClassEnum
	Base   *Datatype
	Names  []string
	Values [][]byte
}

func (m *Datatype) Type() Type { return TypeDatatype }

// FromDescriptor returns the datatype used to store elements of d. Strings
// are fixed length, null padded UTF-8; bytes are opaque; bool is an 8-bit
// enum with members FALSE and TRUE.
func FromDescriptor(d dtype.Descriptor) (*Datatype, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: element type %s", ErrUnsupported, d)
	}
	size := uint32(d.Size)
	switch d.Kind {
	case dtype.Int, dtype.Uint:
		return &Datatype{Version: 1, Class: ClassFixedPoint, Size: size, Signed: d.Kind == dtype.Int}, nil
	case dtype.Float:
		return &Datatype{Version: 1, Class: ClassFloatPoint, Size: size, Float: floatLayouts[size]}, nil
	case dtype.String:
		return &Datatype{Version: 1, Class: ClassString, Size: size, Padding: PadNullPad, Charset: CharsetUTF8}, nil
	case dtype.Bytes:
		return &Datatype{Version: 1, Class: ClassOpaque, Size: size}, nil
	case dtype.Bool:
		return &Datatype{
			Version: 3,
			Class:   ClassEnum,
			Size:    1,
			Base:    &Datatype{Version: 1, Class: ClassFixedPoint, Size: 1, Signed: true},
			Names:   []string{"FALSE", "TRUE"},
			Values:  [][]byte{{0}, {1}},
		}, nil
	}
	return nil, fmt.Errorf("%w: element type %s", ErrUnsupported, d)
}

// Descriptor returns the element descriptor of m.
func (m *Datatype) Descriptor() (dtype.Descriptor, error) {
	if m.BigEndian {
		return dtype.Descriptor{}, fmt.Errorf("%w: big-endian datatype", ErrUnsupported)
	}
	size := uint64(m.Size)
	var d dtype.Descriptor
	switch m.Class {
	case ClassFixedPoint:
		d = dtype.Descriptor{Kind: dtype.Uint, Size: size}
		if m.Signed {
			d.Kind = dtype.Int
		}
	case ClassFloatPoint:
		d = dtype.Descriptor{Kind: dtype.Float, Size: size}
	case ClassString:
		d = dtype.StringOf(size)
	case ClassOpaque:
		d = dtype.Descriptor{Kind: dtype.Bytes, Size: size}
	case ClassEnum:
		if !m.isBool() {
			return dtype.Descriptor{}, fmt.Errorf("%w: enum datatype", ErrUnsupported)
		}
		d = dtype.Bool8
	default:
		return dtype.Descriptor{}, fmt.Errorf("%w: datatype class %d", ErrUnsupported, m.Class)
	}
	if !d.Valid() {
		return dtype.Descriptor{}, fmt.Errorf("%w: %d-byte class %d datatype", ErrUnsupported, m.Size, m.Class)
	}
	return d, nil
}

func (m *Datatype) isBool() bool {
	return m.Size == 1 && len(m.Names) == 2 && m.Names[0] == "FALSE" && m.Names[1] == "TRUE"
}

// Encode writes the datatype.
func (m *Datatype) Encode(e *binary.Encoder) {
	bits := m.classBits()
	e.Uint8(uint8(m.Class) | m.Version<<4)
	e.UintN(uint64(bits), 3)
	e.Uint32(m.Size)

	switch m.Class {
	case ClassFixedPoint:
		e.Uint16(0)
		e.Uint16(uint16(m.Size * 8))
	case ClassFloatPoint:
		e.Uint16(0)
		e.Uint16(uint16(m.Size * 8))
		e.Uint8(m.Float.ExponentLocation)
		e.Uint8(m.Float.ExponentSize)
		e.Uint8(m.Float.MantissaLocation)
		e.Uint8(m.Float.MantissaSize)
		e.Uint32(m.Float.ExponentBias)
	case ClassOpaque:
		if m.Tag != "" {
			e.String(m.Tag)
			e.Zeros(pad8(len(m.Tag)) - len(m.Tag))
		}
	case ClassEnum:
		m.Base.Encode(e)
		for _, n := range m.Names {
			e.String(n)
			e.Uint8(0)
		}
		for _, v := range m.Values {
			e.Write(v)
		}
	}
}

func (m *Datatype) classBits() uint32 {
	var bits uint32
	if m.BigEndian {
		bits |= 0x01
	}
	switch m.Class {
	case ClassFixedPoint:
		if m.Signed {
			bits |= 0x08
		}
	case ClassFloatPoint:
		// implied leading mantissa bit, sign in the top bit
		bits |= 0x20 | (m.Size*8-1)<<8
	case ClassString:
		bits = uint32(m.Padding) | uint32(m.Charset)<<4
	case ClassOpaque:
		bits = uint32(pad8(len(m.Tag)))
		if m.Tag == "" {
			bits = 0
		}
	case ClassEnum:
		bits = uint32(len(m.Names))
	}
	return bits
}

func pad8(n int) int {
	return (n + 7) &^ 7
}

func parseDatatype(data []byte) (*Datatype, error) {
	d := binary.NewDecoder(data, binary.Config{OffsetSize: 8, LengthSize: 8})
	m, err := decodeDatatype(d)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func decodeDatatype(d *binary.Decoder) (*Datatype, error) {
	head := d.Uint8()
	m := &Datatype{
		Class:     DatatypeClass(head & 0x0F),
		Version:   head >> 4,
		ClassBits: uint32(d.UintN(3)),
		Size:      d.Uint32(),
	}

	switch m.Class {
	case ClassFixedPoint:
		m.BigEndian = m.ClassBits&0x01 != 0
		m.Signed = m.ClassBits&0x08 != 0
		d.Skip(4)
	case ClassFloatPoint:
		m.BigEndian = m.ClassBits&0x01 != 0
		d.Skip(4)
		m.Float = FloatLayout{
			ExponentLocation: d.Uint8(),
			ExponentSize:     d.Uint8(),
			MantissaLocation: d.Uint8(),
			MantissaSize:     d.Uint8(),
			ExponentBias:     d.Uint32(),
		}
	case ClassString:
		m.Padding = uint8(m.ClassBits & 0x0F)
		m.Charset = uint8(m.ClassBits>>4) & 0x0F
	case ClassOpaque:
		if n := int(m.ClassBits & 0xFF); n > 0 {
			tag := d.Bytes(n)
			for i, c := range tag {
				if c == 0 {
					tag = tag[:i]
					break
				}
			}
			m.Tag = string(tag)
		}
	case ClassEnum:
		base, err := decodeDatatype(d)
		if err != nil {
			return nil, err
		}
		m.Base = base
		n := int(m.ClassBits & 0xFFFF)
		m.Names = make([]string, n)
		for i := range m.Names {
			start := d.Offset()
			m.Names[i] = d.CString()
			if m.Version < 3 {
				d.Skip(pad8(d.Offset()-start) - (d.Offset() - start))
			}
		}
		m.Values = make([][]byte, n)
		for i := range m.Values {
			m.Values[i] = d.Bytes(int(base.Size))
		}
	}
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("datatype: %w", err)
	}
	return m, nil
}
