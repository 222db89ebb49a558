package message

import (
	"fmt"

	"github.com/robert-malhotra/go-chunkplan/internal/binary"
)

// LinkType is the kind of a link.
type LinkType uint8

const (
	LinkTypeHard     LinkType = 0
	LinkTypeSoft     LinkType = 1
	LinkTypeExternal LinkType = 64
)

// Link names a child of a group (type 0x0006).
type Link struct {
	LinkType LinkType
	Name     string

	// LinkTypeHard
	ObjectAddress uint64
	// LinkTypeSoft
	SoftPath string
	// LinkTypeExternal
	ExternalFile string
	ExternalPath string
}

func (m *Link) Type() Type { return TypeLink }

// NewHardLink returns a link to the object header at addr.
func NewHardLink(name string, addr uint64) *Link {
	return &Link{LinkType: LinkTypeHard, Name: name, ObjectAddress: addr}
}

// NewExternalLink returns a link to path inside another file.
func NewExternalLink(name, file, path string) *Link {
	return &Link{LinkType: LinkTypeExternal, Name: name, ExternalFile: file, ExternalPath: path}
}

// Encode writes a version 1 link with a UTF-8 name.
func (m *Link) Encode(e *binary.Encoder) {
	width := binary.SizeBytes(uint64(len(m.Name)))
	flags := uint8(0x10) // charset present
	switch width {
	case 2:
		flags |= 0x01
	case 4:
		flags |= 0x02
	case 8:
		flags |= 0x03
	}
	if m.LinkType != LinkTypeHard {
		flags |= 0x08
	}

	e.Uint8(1)
	e.Uint8(flags)
	if m.LinkType != LinkTypeHard {
		e.Uint8(uint8(m.LinkType))
	}
	e.Uint8(CharsetUTF8)
	e.UintN(uint64(len(m.Name)), width)
	e.String(m.Name)

	switch m.LinkType {
	case LinkTypeHard:
		e.Offset(m.ObjectAddress)
	case LinkTypeSoft:
		e.Uint16(uint16(len(m.SoftPath)))
		e.String(m.SoftPath)
	case LinkTypeExternal:
		e.Uint16(uint16(1 + len(m.ExternalFile) + 1 + len(m.ExternalPath) + 1))
		e.Uint8(0)
		e.String(m.ExternalFile)
		e.Uint8(0)
		e.String(m.ExternalPath)
		e.Uint8(0)
	}
}

func parseLink(data []byte, cfg binary.Config) (*Link, error) {
	d := binary.NewDecoder(data, cfg)
	if v := d.Uint8(); v != 1 {
		return nil, fmt.Errorf("%w: link version %d", ErrUnsupported, v)
	}
	flags := d.Uint8()

	m := &Link{}
	if flags&0x08 != 0 {
		m.LinkType = LinkType(d.Uint8())
	}
	if flags&0x04 != 0 {
		d.Skip(8)
	}
	if flags&0x10 != 0 {
		d.Skip(1)
	}
	nameLen := d.UintN(1 << (flags & 0x03))
	m.Name = string(d.Bytes(int(nameLen)))

	switch m.LinkType {
	case LinkTypeHard:
		m.ObjectAddress = d.Offset64()
	case LinkTypeSoft:
		m.SoftPath = string(d.Bytes(int(d.Uint16())))
	case LinkTypeExternal:
		body := binary.NewDecoder(d.Bytes(int(d.Uint16())), cfg)
		body.Skip(1)
		m.ExternalFile = body.CString()
		m.ExternalPath = body.CString()
		if err := body.Err(); err != nil {
			return nil, fmt.Errorf("external link %q: %w", m.Name, err)
		}
	default:
		return nil, fmt.Errorf("%w: link type %d", ErrUnsupported, m.LinkType)
	}
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("link: %w", err)
	}
	return m, nil
}

// LinkInfo records where a group's links are stored (type 0x0002). Groups
// written here keep links compactly in the header, so both addresses are
// undefined.
type LinkInfo struct {
	FractalHeapAddress uint64
	NameIndexAddress   uint64
}

func (m *LinkInfo) Type() Type { return TypeLinkInfo }

// NewLinkInfo returns link info for compact link storage.
func NewLinkInfo() *LinkInfo {
	return &LinkInfo{FractalHeapAddress: binary.Undefined, NameIndexAddress: binary.Undefined}
}

// Dense reports whether links are stored in a fractal heap.
func (m *LinkInfo) Dense(cfg binary.Config) bool {
	return !cfg.IsUndefined(m.FractalHeapAddress)
}

func (m *LinkInfo) Encode(e *binary.Encoder) {
	e.Uint8(0)
	e.Uint8(0)
	e.Offset(m.FractalHeapAddress)
	e.Offset(m.NameIndexAddress)
}

func parseLinkInfo(data []byte, cfg binary.Config) (*LinkInfo, error) {
	d := binary.NewDecoder(data, cfg)
	d.Skip(1)
	flags := d.Uint8()
	if flags&0x01 != 0 {
		d.Skip(8)
	}
	m := &LinkInfo{FractalHeapAddress: d.Offset64(), NameIndexAddress: d.Offset64()}
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("link info: %w", err)
	}
	return m, nil
}

// GroupInfo holds group storage hints (type 0x000A). Only the empty
// version 0 form is written.
type GroupInfo struct{}

func (m *GroupInfo) Type() Type { return TypeGroupInfo }

func (m *GroupInfo) Encode(e *binary.Encoder) {
	e.Uint8(0)
	e.Uint8(0)
}
