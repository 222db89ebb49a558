package layout

import (
	"errors"
	"fmt"
	"io"

	"github.com/robert-malhotra/go-chunkplan/internal/binary"
	"github.com/robert-malhotra/go-chunkplan/internal/filter"
	"github.com/robert-malhotra/go-chunkplan/internal/message"
)

// ErrUnsupportedIndex is returned for chunk indexes that can be described
// but not traversed: B-trees and extensible arrays.
var ErrUnsupportedIndex = errors.New("unsupported chunk index")

// ReadIndex returns the chunk entries of a chunked layout in row-major grid
// order. Unwritten chunks have an undefined address.
func ReadIndex(r *binary.Reader, l *message.DataLayout, grid Grid, item uint64, filtered bool) ([]Entry, error) {
	n := grid.Len()
	cfg := r.Config()

	switch l.Index {
	case message.ChunkIndexSingleChunk:
		e := Entry{Addr: l.Address, Size: grid.ChunkBytes(item)}
		if l.Flags&message.FlagSingleIndexWithFilter != 0 {
			e.Size = l.FilteredSize
			e.FilterMask = l.FilterMask
		}
		if cfg.IsUndefined(e.Addr) {
			e.Addr = binary.Undefined
		}
		return []Entry{e}, nil

	case message.ChunkIndexImplicit:
		size := grid.ChunkBytes(item)
		entries := make([]Entry, n)
		for i := range entries {
			entries[i] = Entry{Addr: l.Address + uint64(i)*size, Size: size}
		}
		return entries, nil

	case message.ChunkIndexFixedArray:
		return readFixedArray(r, l.Address, n, grid.ChunkBytes(item), filtered)
	}
	return nil, fmt.Errorf("%w: type %d", ErrUnsupportedIndex, l.Index)
}

func readFixedArray(r *binary.Reader, addr, n, chunkBytes uint64, filtered bool) ([]Entry, error) {
	cfg := r.Config()
	headerSize := 4 + 4 + cfg.LengthSize + cfg.OffsetSize + 4
	raw, err := r.At(int64(addr)).ReadBytes(headerSize)
	if err != nil {
		return nil, fmt.Errorf("fixed array header: %w", err)
	}
	if string(raw[:4]) != fixedArrayHeader {
		return nil, fmt.Errorf("fixed array header at %d: bad signature %q", addr, raw[:4])
	}
	if err := verifyBlock(raw); err != nil {
		return nil, fmt.Errorf("fixed array header at %d: %w", addr, err)
	}
	d := binary.NewDecoder(raw[4:], cfg)
	d.Skip(1)
	client := d.Uint8()
	entrySize := int(d.Uint8())
	pageBits := d.Uint8()
	count := d.Length()
	blockAddr := d.Offset64()
	if err := d.Err(); err != nil {
		return nil, err
	}
	if count != n {
		return nil, fmt.Errorf("fixed array holds %d entries, grid has %d", count, n)
	}
	if count > uint64(1)<<pageBits {
		return nil, fmt.Errorf("%w: paged fixed array", ErrUnsupportedIndex)
	}
	if (client == clientFiltered) != filtered {
		return nil, fmt.Errorf("fixed array client %d does not match the filter pipeline", client)
	}

	blockSize := 4 + 2 + cfg.OffsetSize + int(count)*entrySize + 4
	block, err := r.At(int64(blockAddr)).ReadBytes(blockSize)
	if err != nil {
		return nil, fmt.Errorf("fixed array data block: %w", err)
	}
	if string(block[:4]) != fixedArrayDataBlock {
		return nil, fmt.Errorf("fixed array data block at %d: bad signature %q", blockAddr, block[:4])
	}
	if err := verifyBlock(block); err != nil {
		return nil, fmt.Errorf("fixed array data block at %d: %w", blockAddr, err)
	}

	bd := binary.NewDecoder(block[6+cfg.OffsetSize:], cfg)
	sizeWidth := entrySize - cfg.OffsetSize - 4
	entries := make([]Entry, count)
	for i := range entries {
		e := Entry{Addr: bd.Offset64(), Size: chunkBytes}
		if filtered {
			e.Size = bd.UintN(sizeWidth)
			e.FilterMask = bd.Uint32()
		}
		if cfg.IsUndefined(e.Addr) {
			e.Addr = binary.Undefined
		}
		entries[i] = e
	}
	return entries, bd.Err()
}

func verifyBlock(b []byte) error {
	n := len(b) - 4
	if uint32(binary.Uint(b[n:])) != binary.Lookup3Checksum(b[:n]) {
		return errors.New("checksum mismatch")
	}
	return nil
}

// StorageSize sums the stored sizes of the written chunks.
func StorageSize(entries []Entry) uint64 {
	var total uint64
	for _, e := range entries {
		if e.Written() {
			total += e.Size
		}
	}
	return total
}

// ReadChunk reads and decodes one chunk. Unwritten chunks read as zeros.
func ReadChunk(r io.ReaderAt, e Entry, p *filter.Pipeline, chunkBytes uint64) ([]byte, error) {
	if !e.Written() {
		return make([]byte, chunkBytes), nil
	}
	raw := make([]byte, e.Size)
	if _, err := r.ReadAt(raw, int64(e.Addr)); err != nil {
		return nil, fmt.Errorf("chunk at %d: %w", e.Addr, err)
	}
	data, err := p.Decode(raw, e.FilterMask)
	if err != nil {
		return nil, fmt.Errorf("chunk at %d: %w", e.Addr, err)
	}
	if uint64(len(data)) != chunkBytes {
		return nil, fmt.Errorf("chunk at %d decoded to %d bytes, want %d", e.Addr, len(data), chunkBytes)
	}
	return data, nil
}
