package superblock

import (
	"bytes"
	"errors"
	"testing"

	binpkg "github.com/robert-malhotra/go-chunkplan/internal/binary"
)

func TestEncodeRead(t *testing.T) {
	sb := New()
	sb.RootGroupAddress = 48
	sb.EOFAddress = 4096

	buf := sb.Encode()
	if len(buf) != sb.Size() {
		t.Fatalf("encoded %d bytes, Size() = %d", len(buf), sb.Size())
	}

	got, err := Read(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Version != 3 || got.OffsetSize != 8 || got.LengthSize != 8 {
		t.Errorf("header = v%d %d/%d", got.Version, got.OffsetSize, got.LengthSize)
	}
	if got.RootGroupAddress != 48 || got.EOFAddress != 4096 {
		t.Errorf("root=%d eof=%d", got.RootGroupAddress, got.EOFAddress)
	}
	if got.ExtensionAddress != binpkg.Undefined {
		t.Errorf("extension address = %#x, want undefined", got.ExtensionAddress)
	}
}

func TestReadAtUserBlockOffset(t *testing.T) {
	sb := New()
	sb.RootGroupAddress = 600
	buf := append(make([]byte, 512), sb.Encode()...)

	got, err := Read(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.FileOffset != 512 {
		t.Errorf("FileOffset = %d, want 512", got.FileOffset)
	}
}

func TestReadErrors(t *testing.T) {
	if _, err := Read(bytes.NewReader([]byte("not hdf5 at all"))); !errors.Is(err, ErrNotHDF5) {
		t.Errorf("expected ErrNotHDF5, got %v", err)
	}

	corrupt := New().Encode()
	corrupt[20] ^= 0xff
	if _, err := Read(bytes.NewReader(corrupt)); !errors.Is(err, ErrInvalidSuperblock) {
		t.Errorf("expected ErrInvalidSuperblock, got %v", err)
	}

	old := New().Encode()
	old[8] = 0
	if _, err := Read(bytes.NewReader(old)); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("expected ErrUnsupportedVersion, got %v", err)
	}
}
