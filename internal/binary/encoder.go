package binary

import "encoding/binary"

// Encoder appends little-endian fields to an in-memory buffer. Metadata
// structures are encoded whole and then written with a single WriteAt, so
// checksums can be computed over the final bytes.
type Encoder struct {
	buf []byte
	cfg Config
}

// NewEncoder returns an empty encoder.
func NewEncoder(cfg Config) *Encoder {
	return &Encoder{cfg: cfg}
}

// Config returns the field widths.
func (e *Encoder) Config() Config { return e.cfg }

// Len returns the number of bytes encoded so far.
func (e *Encoder) Len() int { return len(e.buf) }

// Bytes returns the encoded bytes.
func (e *Encoder) Bytes() []byte { return e.buf }

// Write appends p.
func (e *Encoder) Write(p []byte) {
	e.buf = append(e.buf, p...)
}

// String appends s without a terminator.
func (e *Encoder) String(s string) {
	e.buf = append(e.buf, s...)
}

// Zeros appends n zero bytes.
func (e *Encoder) Zeros(n int) {
	for ; n > 0; n-- {
		e.buf = append(e.buf, 0)
	}
}

// Uint8 appends one byte.
func (e *Encoder) Uint8(v uint8) {
	e.buf = append(e.buf, v)
}

// Uint16 appends a 2-byte integer.
func (e *Encoder) Uint16(v uint16) {
	e.buf = binary.LittleEndian.AppendUint16(e.buf, v)
}

// Uint32 appends a 4-byte integer.
func (e *Encoder) Uint32(v uint32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

// Uint64 appends an 8-byte integer.
func (e *Encoder) Uint64(v uint64) {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, v)
}

// UintN appends the low n bytes of v.
func (e *Encoder) UintN(v uint64, n int) {
	for i := 0; i < n; i++ {
		e.buf = append(e.buf, byte(v>>(8*i)))
	}
}

// Offset appends a file address. Undefined is written as all ones at the
// configured width.
func (e *Encoder) Offset(v uint64) {
	e.UintN(v, e.cfg.OffsetSize)
}

// Length appends a length.
func (e *Encoder) Length(v uint64) {
	e.UintN(v, e.cfg.LengthSize)
}

// Checksum appends the lookup3 checksum of everything encoded so far.
func (e *Encoder) Checksum() {
	e.Uint32(Lookup3Checksum(e.buf))
}

// SizeBytes returns the number of bytes, 1, 2, 4 or 8, needed to store v.
func SizeBytes(v uint64) int {
	switch {
	case v <= 0xFF:
		return 1
	case v <= 0xFFFF:
		return 2
	case v <= 0xFFFFFFFF:
		return 4
	}
	return 8
}
