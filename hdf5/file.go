package hdf5

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/robert-malhotra/go-chunkplan/internal/alloc"
	"github.com/robert-malhotra/go-chunkplan/internal/binary"
	"github.com/robert-malhotra/go-chunkplan/internal/message"
	"github.com/robert-malhotra/go-chunkplan/internal/object"
	"github.com/robert-malhotra/go-chunkplan/internal/superblock"
)

// File represents an open HDF5 file.
type File struct {
	path          string
	file          *os.File
	reader        *binary.Reader
	superblock    *superblock.Superblock
	root          *Group
	closed        bool
	externalFiles map[string]*File // opened through external links

	// Write support fields
	writable  bool
	allocator *alloc.Allocator
	mu        sync.Mutex // guards the group tree
}

// Open opens an HDF5 file for reading.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}

	sb, err := superblock.Read(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("reading superblock: %w", err)
	}

	hdf := &File{
		path:       path,
		file:       f,
		reader:     binary.NewReader(f, sb.Config()),
		superblock: sb,
	}

	header, err := object.Read(hdf.reader, sb.RootGroupAddress)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("opening root group: %w", err)
	}
	hdf.root = &Group{file: hdf, path: "/", header: header}
	return hdf, nil
}

// Create creates a new HDF5 file, truncating any existing file. Groups and
// datasets are added through Root; the file is complete once Close
// returns.
func Create(path string, opts ...FileOption) (*File, error) {
	o := defaultFileOptions()
	for _, opt := range opts {
		opt(o)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}

	sb := superblock.New()
	sb.OffsetSize = uint8(o.offsetSize)
	sb.LengthSize = uint8(o.lengthSize)

	hdf := &File{
		path:       path,
		file:       f,
		superblock: sb,
		writable:   true,
		allocator:  alloc.New(uint64(sb.Size())),
	}
	hdf.root = &Group{file: hdf, path: "/", node: &groupNode{}}
	return hdf, nil
}

// Close closes the HDF5 file and all opened external files. A file opened
// with Create is finalized first: open dataset writers are closed, group
// headers are written and the superblock is committed.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true

	if f.writable {
		if err := f.finish(); err != nil {
			f.file.Close()
			return err
		}
	}

	for _, ext := range f.externalFiles {
		ext.Close()
	}
	f.externalFiles = nil

	return f.file.Close()
}

// Root returns the root group of the file.
func (f *File) Root() *Group {
	return f.root
}

// Path returns the file path.
func (f *File) Path() string {
	return f.path
}

// Version returns the superblock version.
func (f *File) Version() int {
	return int(f.superblock.Version)
}

// IsWritable reports whether the file was opened with Create.
func (f *File) IsWritable() bool {
	return f.writable
}

// AllocStats returns space allocation statistics of a file being written.
func (f *File) AllocStats() alloc.Stats {
	if f.allocator == nil {
		return alloc.Stats{}
	}
	return f.allocator.Stats()
}

// OpenGroup opens a group by path.
func (f *File) OpenGroup(path string) (*Group, error) {
	if f.closed {
		return nil, ErrClosed
	}
	return f.root.OpenGroup(path)
}

// OpenDataset opens a dataset by path.
func (f *File) OpenDataset(path string) (*Dataset, error) {
	if f.closed {
		return nil, ErrClosed
	}
	return f.root.OpenDataset(path)
}

// openExternalFile opens, or returns the cached handle of, a file named by
// an external link. Relative names are resolved against this file's
// directory.
func (f *File) openExternalFile(name string) (*File, error) {
	if !filepath.IsAbs(name) {
		name = filepath.Join(filepath.Dir(f.path), name)
	}
	if ext, ok := f.externalFiles[name]; ok {
		return ext, nil
	}
	ext, err := Open(name)
	if err != nil {
		return nil, fmt.Errorf("external file %s: %w", name, err)
	}
	if f.externalFiles == nil {
		f.externalFiles = make(map[string]*File)
	}
	f.externalFiles[name] = ext
	return ext, nil
}

// finish writes every group header bottom-up, then the superblock.
func (f *File) finish() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	rootAddr, err := f.writeGroup(f.root.node)
	if err != nil {
		return fmt.Errorf("writing groups: %w", err)
	}
	if err := f.allocator.Validate(); err != nil {
		return err
	}

	sb := f.superblock
	sb.RootGroupAddress = rootAddr
	sb.EOFAddress = f.allocator.EOF()
	if _, err := f.file.WriteAt(sb.Encode(), 0); err != nil {
		return fmt.Errorf("writing superblock: %w", err)
	}
	if err := f.file.Truncate(int64(sb.EOFAddress)); err != nil {
		return err
	}
	return f.file.Sync()
}

func (f *File) writeGroup(n *groupNode) (uint64, error) {
	links := make([]*message.Link, 0, len(n.entries))
	for _, e := range n.entries {
		switch {
		case e.group != nil:
			addr, err := f.writeGroup(e.group)
			if err != nil {
				return 0, err
			}
			links = append(links, message.NewHardLink(e.name, addr))
		case e.dataset != nil:
			addr, err := e.dataset.commit()
			if err != nil {
				return 0, err
			}
			links = append(links, message.NewHardLink(e.name, addr))
		default:
			links = append(links, e.link)
		}
	}

	buf, err := object.Encode(object.GroupMessages(links), f.superblock.Config(), object.MinGroupChunkSize)
	if err != nil {
		return 0, err
	}
	addr := f.allocator.Alloc(uint64(len(buf)), alloc.Metadata)
	if _, err := f.file.WriteAt(buf, int64(addr)); err != nil {
		return 0, err
	}
	return addr, nil
}
