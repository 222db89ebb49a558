// Package binary reads and writes the little-endian, variable-width fields
// of HDF5 metadata structures.
package binary

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrTruncated is returned when a structure ends before a field it declares.
var ErrTruncated = errors.New("structure truncated")

// Undefined is the all-ones address HDF5 uses for "no address".
const Undefined = ^uint64(0)

// Config holds the field widths of a file, as declared by its superblock.
type Config struct {
	OffsetSize int // 2, 4 or 8
	LengthSize int // 2, 4 or 8
}

// DefaultConfig returns 8-byte offsets and lengths.
func DefaultConfig() Config {
	return Config{OffsetSize: 8, LengthSize: 8}
}

// IsUndefined reports whether addr is the undefined address for an
// offset of the configured width.
func (c Config) IsUndefined(addr uint64) bool {
	if c.OffsetSize >= 8 {
		return addr == Undefined
	}
	return addr == uint64(1)<<(8*c.OffsetSize)-1
}

// Reader reads fields from an io.ReaderAt at a moving position.
type Reader struct {
	r   io.ReaderAt
	cfg Config
	pos int64
}

// NewReader returns a reader positioned at 0.
func NewReader(r io.ReaderAt, cfg Config) *Reader {
	return &Reader{r: r, cfg: cfg}
}

// At returns a reader over the same source positioned at offset.
func (r *Reader) At(offset int64) *Reader {
	return &Reader{r: r.r, cfg: r.cfg, pos: offset}
}

// Config returns the field widths.
func (r *Reader) Config() Config { return r.cfg }

// Pos returns the current position.
func (r *Reader) Pos() int64 { return r.pos }

// Skip advances the position by n bytes.
func (r *Reader) Skip(n int64) { r.pos += n }

// ReadBytes reads exactly n bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := r.r.ReadAt(buf, r.pos); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read %d bytes at %d: %w", n, r.pos, ErrTruncated)
		}
		return nil, err
	}
	r.pos += int64(n)
	return buf, nil
}

// Peek reads n bytes without advancing.
func (r *Reader) Peek(n int) ([]byte, error) {
	b, err := r.ReadBytes(n)
	r.pos -= int64(len(b))
	return b, err
}

// ReadUint8 reads one byte.
func (r *Reader) ReadUint8() (uint8, error) {
	v, err := r.ReadUintN(1)
	return uint8(v), err
}

// ReadUint16 reads a 2-byte integer.
func (r *Reader) ReadUint16() (uint16, error) {
	v, err := r.ReadUintN(2)
	return uint16(v), err
}

// ReadUint32 reads a 4-byte integer.
func (r *Reader) ReadUint32() (uint32, error) {
	v, err := r.ReadUintN(4)
	return uint32(v), err
}

// ReadUintN reads an n-byte integer, 1 <= n <= 8.
func (r *Reader) ReadUintN(n int) (uint64, error) {
	buf, err := r.ReadBytes(n)
	if err != nil {
		return 0, err
	}
	return Uint(buf), nil
}

// ReadOffset reads a file address.
func (r *Reader) ReadOffset() (uint64, error) {
	return r.ReadUintN(r.cfg.OffsetSize)
}

// ReadLength reads a length.
func (r *Reader) ReadLength() (uint64, error) {
	return r.ReadUintN(r.cfg.LengthSize)
}

// Uint decodes a little-endian integer of len(b) bytes, len(b) <= 8.
func Uint(b []byte) uint64 {
	switch len(b) {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(b))
	case 4:
		return uint64(binary.LittleEndian.Uint32(b))
	case 8:
		return binary.LittleEndian.Uint64(b)
	}
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// Decoder reads fields from an in-memory message body. The first failure
// is sticky: later reads return zero values and Err reports it.
type Decoder struct {
	buf []byte
	cfg Config
	off int
	err error
}

// NewDecoder returns a decoder over buf.
func NewDecoder(buf []byte, cfg Config) *Decoder {
	return &Decoder{buf: buf, cfg: cfg}
}

// Err returns the first error encountered.
func (d *Decoder) Err() error { return d.err }

// Offset returns the number of bytes consumed.
func (d *Decoder) Offset() int { return d.off }

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int { return len(d.buf) - d.off }

// Bytes returns the next n bytes. The result aliases the buffer.
func (d *Decoder) Bytes(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || d.off+n > len(d.buf) {
		d.err = fmt.Errorf("need %d bytes at offset %d of %d: %w", n, d.off, len(d.buf), ErrTruncated)
		return nil
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b
}

// Skip discards n bytes.
func (d *Decoder) Skip(n int) { d.Bytes(n) }

// Uint8 reads one byte.
func (d *Decoder) Uint8() uint8 { return uint8(d.UintN(1)) }

// Uint16 reads a 2-byte integer.
func (d *Decoder) Uint16() uint16 { return uint16(d.UintN(2)) }

// Uint32 reads a 4-byte integer.
func (d *Decoder) Uint32() uint32 { return uint32(d.UintN(4)) }

// Uint64 reads an 8-byte integer.
func (d *Decoder) Uint64() uint64 { return d.UintN(8) }

// UintN reads an n-byte integer.
func (d *Decoder) UintN(n int) uint64 {
	b := d.Bytes(n)
	if b == nil {
		return 0
	}
	return Uint(b)
}

// Offset64 reads a file address.
func (d *Decoder) Offset64() uint64 { return d.UintN(d.cfg.OffsetSize) }

// Length reads a length.
func (d *Decoder) Length() uint64 { return d.UintN(d.cfg.LengthSize) }

// CString reads a null-terminated string, consuming the terminator.
func (d *Decoder) CString() string {
	if d.err != nil {
		return ""
	}
	for i := d.off; i < len(d.buf); i++ {
		if d.buf[i] == 0 {
			s := string(d.buf[d.off:i])
			d.off = i + 1
			return s
		}
	}
	d.err = fmt.Errorf("unterminated string at offset %d: %w", d.off, ErrTruncated)
	return ""
}
