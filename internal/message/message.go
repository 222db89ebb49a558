package message

import (
	"errors"

	"github.com/robert-malhotra/go-chunkplan/internal/binary"
)

// Type is an object header message type.
type Type uint16

// Header message types.
const (
	TypeNIL            Type = 0x0000
	TypeDataspace      Type = 0x0001
	TypeLinkInfo       Type = 0x0002
	TypeDatatype       Type = 0x0003
	TypeFillValue      Type = 0x0005
	TypeLink           Type = 0x0006
	TypeDataLayout     Type = 0x0008
	TypeGroupInfo      Type = 0x000A
	TypeFilterPipeline Type = 0x000B
	TypeAttribute      Type = 0x000C
	TypeContinuation   Type = 0x0010
	TypeSymbolTable    Type = 0x0011
)

// ErrUnsupported is returned for message versions and variants that are
// recognized but not handled.
var ErrUnsupported = errors.New("unsupported message")

// Message is a decoded header message.
type Message interface {
	Type() Type
}

// Encodable is a message that can be written into an object header.
type Encodable interface {
	Message
	Encode(e *binary.Encoder)
}

// Parse decodes the body of a message of type typ. Types this package does
// not interpret are returned as *Unknown.
func Parse(typ Type, data []byte, cfg binary.Config) (Message, error) {
	switch typ {
	case TypeDataspace:
		return parseDataspace(data, cfg)
	case TypeDatatype:
		return parseDatatype(data)
	case TypeDataLayout:
		return parseDataLayout(data, cfg)
	case TypeFilterPipeline:
		return parseFilterPipeline(data)
	case TypeLink:
		return parseLink(data, cfg)
	case TypeLinkInfo:
		return parseLinkInfo(data, cfg)
	case TypeContinuation:
		return parseContinuation(data, cfg)
	default:
		return &Unknown{typ: typ, data: data}, nil
	}
}

// Unknown holds the raw body of an uninterpreted message.
type Unknown struct {
	typ  Type
	data []byte
}

func (m *Unknown) Type() Type   { return m.typ }
func (m *Unknown) Data() []byte { return m.data }

// Continuation points to a further block of header messages.
type Continuation struct {
	Offset uint64
	Length uint64
}

func (m *Continuation) Type() Type { return TypeContinuation }

func (m *Continuation) Encode(e *binary.Encoder) {
	e.Offset(m.Offset)
	e.Length(m.Length)
}

func parseContinuation(data []byte, cfg binary.Config) (*Continuation, error) {
	d := binary.NewDecoder(data, cfg)
	m := &Continuation{Offset: d.Offset64(), Length: d.Length()}
	return m, d.Err()
}

// Size returns the encoded body size of m.
func Size(m Encodable, cfg binary.Config) int {
	e := binary.NewEncoder(cfg)
	m.Encode(e)
	return e.Len()
}
