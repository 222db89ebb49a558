package binary

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncoderDecoderFields(t *testing.T) {
	cfg := Config{OffsetSize: 4, LengthSize: 8}
	enc := NewEncoder(cfg)
	enc.Uint8(7)
	enc.Uint16(0x1234)
	enc.Uint32(0xdeadbeef)
	enc.Offset(0x01020304)
	enc.Length(1 << 40)
	enc.UintN(0x0a0b0c, 3)
	enc.String("abc")
	enc.Uint8(0)

	if enc.Len() != 1+2+4+4+8+3+4 {
		t.Fatalf("encoded %d bytes", enc.Len())
	}

	dec := NewDecoder(enc.Bytes(), cfg)
	if v := dec.Uint8(); v != 7 {
		t.Errorf("Uint8 = %d", v)
	}
	if v := dec.Uint16(); v != 0x1234 {
		t.Errorf("Uint16 = %#x", v)
	}
	if v := dec.Uint32(); v != 0xdeadbeef {
		t.Errorf("Uint32 = %#x", v)
	}
	if v := dec.Offset64(); v != 0x01020304 {
		t.Errorf("Offset = %#x", v)
	}
	if v := dec.Length(); v != 1<<40 {
		t.Errorf("Length = %d", v)
	}
	if v := dec.UintN(3); v != 0x0a0b0c {
		t.Errorf("UintN(3) = %#x", v)
	}
	if s := dec.CString(); s != "abc" {
		t.Errorf("CString = %q", s)
	}
	if err := dec.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.Remaining() != 0 {
		t.Errorf("%d bytes left over", dec.Remaining())
	}
}

func TestDecoderStickyError(t *testing.T) {
	dec := NewDecoder([]byte{1, 2, 3}, DefaultConfig())
	dec.Uint16()
	if v := dec.Uint32(); v != 0 {
		t.Errorf("short read returned %d", v)
	}
	if v := dec.Uint8(); v != 0 {
		t.Errorf("read after failure returned %d", v)
	}
	if !errors.Is(dec.Err(), ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", dec.Err())
	}
}

func TestUndefinedOffset(t *testing.T) {
	enc := NewEncoder(Config{OffsetSize: 4, LengthSize: 4})
	enc.Offset(Undefined)
	if !bytes.Equal(enc.Bytes(), []byte{0xff, 0xff, 0xff, 0xff}) {
		t.Fatalf("undefined offset encoded as %x", enc.Bytes())
	}
	cfg := Config{OffsetSize: 4}
	if !cfg.IsUndefined(0xffffffff) {
		t.Error("0xffffffff should be undefined for 4-byte offsets")
	}
	if !DefaultConfig().IsUndefined(Undefined) {
		t.Error("all ones should be undefined for 8-byte offsets")
	}
}

func TestChecksumAppendsLookup3(t *testing.T) {
	enc := NewEncoder(DefaultConfig())
	enc.String("OHDR")
	enc.Checksum()
	dec := NewDecoder(enc.Bytes(), DefaultConfig())
	dec.Skip(4)
	if got := dec.Uint32(); got != Lookup3Checksum([]byte("OHDR")) {
		t.Errorf("checksum = %#x", got)
	}
}

func TestReader(t *testing.T) {
	src := bytes.NewReader([]byte{0xAA, 0x01, 0x00, 0x02, 0x00, 0x00, 0x00})
	r := NewReader(src, Config{OffsetSize: 4, LengthSize: 2})
	b, err := r.ReadUint8()
	if err != nil || b != 0xAA {
		t.Fatalf("ReadUint8 = %#x, %v", b, err)
	}
	l, err := r.ReadLength()
	if err != nil || l != 1 {
		t.Fatalf("ReadLength = %d, %v", l, err)
	}
	o, err := r.ReadOffset()
	if err != nil || o != 2 {
		t.Fatalf("ReadOffset = %d, %v", o, err)
	}
	if _, err := r.ReadUint8(); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated past the end, got %v", err)
	}
	if r.At(1).Pos() != 1 {
		t.Error("At did not reposition")
	}
}

func TestSizeBytes(t *testing.T) {
	cases := map[uint64]int{0: 1, 255: 1, 256: 2, 65536: 4, 1 << 32: 8}
	for v, want := range cases {
		if got := SizeBytes(v); got != want {
			t.Errorf("SizeBytes(%d) = %d, want %d", v, got, want)
		}
	}
}
