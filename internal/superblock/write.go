package superblock

import (
	binpkg "github.com/robert-malhotra/go-chunkplan/internal/binary"
)

// New returns a version 3 superblock with 8-byte offsets and lengths and no
// extension.
func New() *Superblock {
	return &Superblock{
		Version:          3,
		OffsetSize:       8,
		LengthSize:       8,
		ExtensionAddress: binpkg.Undefined,
	}
}

// Size returns the encoded size of sb.
func (sb *Superblock) Size() int {
	return 12 + 4*int(sb.OffsetSize) + 4
}

// Encode returns the on-disk bytes of sb, checksum included.
func (sb *Superblock) Encode() []byte {
	e := binpkg.NewEncoder(sb.Config())
	e.Write(Signature)
	e.Uint8(sb.Version)
	e.Uint8(sb.OffsetSize)
	e.Uint8(sb.LengthSize)
	e.Uint8(sb.ConsistencyFlags)
	e.Offset(sb.BaseAddress)
	e.Offset(sb.ExtensionAddress)
	e.Offset(sb.EOFAddress)
	e.Offset(sb.RootGroupAddress)
	e.Checksum()
	return e.Bytes()
}
