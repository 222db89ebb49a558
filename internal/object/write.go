package object

import (
	"fmt"

	"github.com/robert-malhotra/go-chunkplan/internal/binary"
	"github.com/robert-malhotra/go-chunkplan/internal/message"
)

// MinGroupChunkSize is the smallest message area of a group header, leaving
// room for links added by other writers without a continuation.
const MinGroupChunkSize = 120

// Encode frames msgs into a version 2 object header. The message area is
// padded with a NIL message to at least minChunk bytes.
func Encode(msgs []message.Encodable, cfg binary.Config, minChunk int) ([]byte, error) {
	bodies := make([][]byte, len(msgs))
	size := 0
	for i, m := range msgs {
		e := binary.NewEncoder(cfg)
		m.Encode(e)
		if e.Len() > 0xFFFF {
			return nil, fmt.Errorf("%w: message %d is %d bytes", ErrInvalidHeader, m.Type(), e.Len())
		}
		bodies[i] = e.Bytes()
		size += 4 + e.Len()
	}

	chunk := max(size, minChunk)
	pad := chunk - size
	if pad > 0 && pad < 4 {
		// a NIL message needs at least its own header
		chunk += 4 - pad
		pad = 4
	}

	width := binary.SizeBytes(uint64(chunk))
	flags := uint8(0)
	switch width {
	case 2:
		flags = 1
	case 4:
		flags = 2
	case 8:
		flags = 3
	}

	e := binary.NewEncoder(cfg)
	e.Write(signature)
	e.Uint8(2)
	e.Uint8(flags)
	e.UintN(uint64(chunk), width)
	for i, m := range msgs {
		e.Uint8(uint8(m.Type()))
		e.Uint16(uint16(len(bodies[i])))
		e.Uint8(0)
		e.Write(bodies[i])
	}
	if pad > 0 {
		e.Uint8(uint8(message.TypeNIL))
		e.Uint16(uint16(pad - 4))
		e.Uint8(0)
		e.Zeros(pad - 4)
	}
	e.Checksum()
	return e.Bytes(), nil
}

// GroupMessages returns the messages of a compact group holding links.
func GroupMessages(links []*message.Link) []message.Encodable {
	msgs := make([]message.Encodable, 0, len(links)+2)
	msgs = append(msgs, message.NewLinkInfo(), &message.GroupInfo{})
	for _, l := range links {
		msgs = append(msgs, l)
	}
	return msgs
}
