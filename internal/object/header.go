package object

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-chunkplan/internal/binary"
	"github.com/robert-malhotra/go-chunkplan/internal/message"
)

var (
	signature             = []byte("OHDR")
	continuationSignature = []byte("OCHK")
)

var (
	ErrInvalidHeader      = errors.New("invalid object header")
	ErrUnsupportedVersion = errors.New("unsupported object header version")
	ErrChecksumMismatch   = errors.New("object header checksum mismatch")
)

// Header flag bits.
const (
	flagTrackCreationOrder = 0x04
	flagPhaseChange        = 0x10
	flagTimes              = 0x20
)

// Message flag bits.
const msgFlagShared = 0x02

// Header is a parsed object header.
type Header struct {
	Address  uint64
	Flags    uint8
	Messages []message.Message
}

// Read parses the object header at addr, including continuation blocks.
func Read(r *binary.Reader, addr uint64) (*Header, error) {
	hr := r.At(int64(addr))
	sig, err := hr.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("object header at %d: %w", addr, err)
	}
	if string(sig) != string(signature) {
		if sig[0] == 1 {
			return nil, fmt.Errorf("%w: version 1 at %d", ErrUnsupportedVersion, addr)
		}
		return nil, fmt.Errorf("%w: bad signature at %d", ErrInvalidHeader, addr)
	}

	prefix := 6
	head, err := hr.ReadBytes(2)
	if err != nil {
		return nil, err
	}
	if head[0] != 2 {
		return nil, fmt.Errorf("%w: %d at %d", ErrUnsupportedVersion, head[0], addr)
	}
	h := &Header{Address: addr, Flags: head[1]}
	if h.Flags&flagTimes != 0 {
		hr.Skip(16)
		prefix += 16
	}
	if h.Flags&flagPhaseChange != 0 {
		hr.Skip(4)
		prefix += 4
	}
	width := 1 << (h.Flags & 0x03)
	chunk0, err := hr.ReadUintN(width)
	if err != nil {
		return nil, err
	}
	prefix += width

	block, err := r.At(int64(addr)).ReadBytes(prefix + int(chunk0) + 4)
	if err != nil {
		return nil, fmt.Errorf("object header at %d: %w", addr, err)
	}
	if err := verify(block); err != nil {
		return nil, fmt.Errorf("object header at %d: %w", addr, err)
	}

	pending, err := h.parseMessages(block[prefix:len(block)-4], r.Config())
	if err != nil {
		return nil, err
	}
	for len(pending) > 0 {
		c := pending[0]
		pending = pending[1:]
		more, err := h.readContinuation(r, c)
		if err != nil {
			return nil, err
		}
		pending = append(pending, more...)
	}
	return h, nil
}

func (h *Header) readContinuation(r *binary.Reader, c *message.Continuation) ([]*message.Continuation, error) {
	block, err := r.At(int64(c.Offset)).ReadBytes(int(c.Length))
	if err != nil {
		return nil, fmt.Errorf("continuation block at %d: %w", c.Offset, err)
	}
	if len(block) < 8 || string(block[:4]) != string(continuationSignature) {
		return nil, fmt.Errorf("%w: bad continuation block at %d", ErrInvalidHeader, c.Offset)
	}
	if err := verify(block); err != nil {
		return nil, fmt.Errorf("continuation block at %d: %w", c.Offset, err)
	}
	return h.parseMessages(block[4:len(block)-4], r.Config())
}

// parseMessages appends the messages of one block to h and returns the
// continuations it names.
func (h *Header) parseMessages(data []byte, cfg binary.Config) ([]*message.Continuation, error) {
	var conts []*message.Continuation
	d := binary.NewDecoder(data, cfg)
	hdr := 4
	if h.Flags&flagTrackCreationOrder != 0 {
		hdr += 2
	}
	// A gap smaller than a message header may follow the last message.
	for d.Remaining() >= hdr {
		typ := message.Type(d.Uint8())
		size := int(d.Uint16())
		flags := d.Uint8()
		if hdr == 6 {
			d.Skip(2)
		}
		body := d.Bytes(size)
		if err := d.Err(); err != nil {
			return nil, fmt.Errorf("%w: message %d at header %d: %v", ErrInvalidHeader, typ, h.Address, err)
		}
		if typ == message.TypeNIL {
			continue
		}
		if flags&msgFlagShared != 0 {
			return nil, fmt.Errorf("%w: shared message %d at header %d", message.ErrUnsupported, typ, h.Address)
		}
		m, err := message.Parse(typ, body, cfg)
		if err != nil {
			return nil, fmt.Errorf("header %d: %w", h.Address, err)
		}
		if c, ok := m.(*message.Continuation); ok {
			conts = append(conts, c)
			continue
		}
		h.Messages = append(h.Messages, m)
	}
	return conts, nil
}

func verify(block []byte) error {
	n := len(block) - 4
	stored := binary.Uint(block[n:])
	if uint32(stored) != binary.Lookup3Checksum(block[:n]) {
		return ErrChecksumMismatch
	}
	return nil
}

// Get returns the first message of type typ, or nil.
func (h *Header) Get(typ message.Type) message.Message {
	for _, m := range h.Messages {
		if m.Type() == typ {
			return m
		}
	}
	return nil
}

func (h *Header) Dataspace() *message.Dataspace {
	m, _ := h.Get(message.TypeDataspace).(*message.Dataspace)
	return m
}

func (h *Header) Datatype() *message.Datatype {
	m, _ := h.Get(message.TypeDatatype).(*message.Datatype)
	return m
}

func (h *Header) DataLayout() *message.DataLayout {
	m, _ := h.Get(message.TypeDataLayout).(*message.DataLayout)
	return m
}

func (h *Header) FilterPipeline() *message.FilterPipeline {
	m, _ := h.Get(message.TypeFilterPipeline).(*message.FilterPipeline)
	return m
}

func (h *Header) LinkInfo() *message.LinkInfo {
	m, _ := h.Get(message.TypeLinkInfo).(*message.LinkInfo)
	return m
}

// Links returns the link messages in header order.
func (h *Header) Links() []*message.Link {
	var links []*message.Link
	for _, m := range h.Messages {
		if l, ok := m.(*message.Link); ok {
			links = append(links, l)
		}
	}
	return links
}

// IsGroup reports whether the header describes a group.
func (h *Header) IsGroup() bool {
	return h.Get(message.TypeLinkInfo) != nil || h.Get(message.TypeSymbolTable) != nil || len(h.Links()) > 0
}

// IsDataset reports whether the header describes a dataset.
func (h *Header) IsDataset() bool {
	return h.Dataspace() != nil && h.DataLayout() != nil
}
