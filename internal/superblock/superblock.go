package superblock

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	binpkg "github.com/robert-malhotra/go-chunkplan/internal/binary"
)

// Signature is the 8-byte HDF5 format signature: 0x89 H D F \r \n 0x1a \n.
var Signature = []byte{0x89, 'H', 'D', 'F', '\r', '\n', 0x1a, '\n'}

// Offsets searched for the signature, in order.
var searchOffsets = []int64{0, 512, 1024, 2048}

var (
	ErrNotHDF5            = errors.New("not an HDF5 file: signature not found")
	ErrUnsupportedVersion = errors.New("unsupported superblock version")
	ErrInvalidSuperblock  = errors.New("invalid superblock structure")
)

/*
Version 2/3 layout (O = size of offsets):

	0      8  Signature
	8      1  Version
	9      1  Size of offsets
	10     1  Size of lengths
	11     1  File consistency flags
	12     O  Base address
	12+O   O  Superblock extension address
	12+2O  O  End of file address
	12+3O  O  Root group object header address
	12+4O  4  Checksum (lookup3)
*/

// Superblock holds the fields of a version 2 or 3 superblock.
type Superblock struct {
	Version          uint8
	OffsetSize       uint8
	LengthSize       uint8
	ConsistencyFlags uint8
	BaseAddress      uint64
	ExtensionAddress uint64
	EOFAddress       uint64
	RootGroupAddress uint64

	// FileOffset is where the signature was found.
	FileOffset int64
}

// Read locates and parses the superblock of r. Versions 0 and 1 return
// ErrUnsupportedVersion.
func Read(r io.ReaderAt) (*Superblock, error) {
	sig := make([]byte, 8)
	for _, off := range searchOffsets {
		if _, err := r.ReadAt(sig, off); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		if !bytes.Equal(sig, Signature) {
			continue
		}
		sb, err := readAt(r, off)
		if err != nil {
			return nil, err
		}
		sb.FileOffset = off
		return sb, nil
	}
	return nil, ErrNotHDF5
}

func readAt(r io.ReaderAt, off int64) (*Superblock, error) {
	head := make([]byte, 4)
	if _, err := r.ReadAt(head, off+8); err != nil {
		return nil, fmt.Errorf("read superblock header: %w", err)
	}
	if head[0] != 2 && head[0] != 3 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, head[0])
	}
	osize := int(head[1])
	if !validSize(osize) || !validSize(int(head[2])) {
		return nil, fmt.Errorf("%w: field sizes %d/%d", ErrInvalidSuperblock, head[1], head[2])
	}

	buf := make([]byte, 12+4*osize+4)
	if _, err := r.ReadAt(buf, off); err != nil {
		return nil, fmt.Errorf("read superblock: %w", err)
	}
	body := buf[:len(buf)-4]
	d := binpkg.NewDecoder(buf, binpkg.Config{OffsetSize: osize, LengthSize: int(head[2])})
	d.Skip(8)
	sb := &Superblock{
		Version:          d.Uint8(),
		OffsetSize:       d.Uint8(),
		LengthSize:       d.Uint8(),
		ConsistencyFlags: d.Uint8(),
		BaseAddress:      d.Offset64(),
		ExtensionAddress: d.Offset64(),
		EOFAddress:       d.Offset64(),
		RootGroupAddress: d.Offset64(),
	}
	stored := d.Uint32()
	if err := d.Err(); err != nil {
		return nil, err
	}
	if stored != binpkg.Lookup3Checksum(body) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidSuperblock)
	}
	return sb, nil
}

func validSize(n int) bool {
	return n == 2 || n == 4 || n == 8
}

// Config returns the field widths declared by sb.
func (sb *Superblock) Config() binpkg.Config {
	return binpkg.Config{OffsetSize: int(sb.OffsetSize), LengthSize: int(sb.LengthSize)}
}
