package zarr

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/robert-malhotra/go-chunkplan/dtype"
	"github.com/robert-malhotra/go-chunkplan/internal/layout"
)

// Group is a group of a directory store.
type Group struct {
	root     string
	path     string
	writable bool
}

// Create creates a directory store at path holding an empty root group.
// An existing zarr hierarchy at path is replaced; any other existing,
// non-empty directory is an error.
func Create(path string) (*Group, error) {
	if entries, err := os.ReadDir(path); err == nil && len(entries) > 0 {
		if !exists(filepath.Join(path, groupKey)) && !exists(filepath.Join(path, arrayKey)) {
			return nil, fmt.Errorf("%w: %s is a non-empty directory", ErrExists, path)
		}
		if err := os.RemoveAll(path); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}
	if err := writeJSON(filepath.Join(path, groupKey), GroupMetadata{ZarrFormat: Format}); err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}
	return &Group{root: path, path: "/", writable: true}, nil
}

// Open opens the root group of the directory store at path for reading.
func Open(path string) (*Group, error) {
	var meta GroupMetadata
	if err := readJSON(filepath.Join(path, groupKey), &meta); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s has no %s", ErrNotZarr, path, groupKey)
		}
		return nil, err
	}
	if meta.ZarrFormat != Format {
		return nil, fmt.Errorf("%w: zarr_format %d", ErrUnsupported, meta.ZarrFormat)
	}
	return &Group{root: path, path: "/"}, nil
}

// Name returns the last component of the group path.
func (g *Group) Name() string {
	if g.path == "/" {
		return "/"
	}
	return g.path[strings.LastIndexByte(g.path, '/')+1:]
}

// Path returns the full path of the group within the store.
func (g *Group) Path() string { return g.path }

// Store returns the store directory.
func (g *Group) Store() string { return g.root }

func (g *Group) dir(path string) string {
	return filepath.Join(g.root, filepath.FromSlash(strings.TrimPrefix(path, "/")))
}

// resolve returns the store path of a path relative to g, or absolute when
// it starts with "/".
func (g *Group) resolve(path string) (string, error) {
	base := g.path
	if strings.HasPrefix(path, "/") {
		base = "/"
	}
	full := base
	for _, name := range strings.Split(path, "/") {
		switch name {
		case "", ".":
			continue
		case "..":
			return "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
		full = joinPath(full, name)
	}
	return full, nil
}

func joinPath(parent, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return parent + "/" + name
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".z") {
		return fmt.Errorf("%w: name %q", ErrInvalidPath, name)
	}
	return nil
}

// Members returns the names of child groups and arrays in lexical order.
func (g *Group) Members() ([]string, error) {
	entries, err := os.ReadDir(g.dir(g.path))
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		d := filepath.Join(g.dir(g.path), e.Name())
		if exists(filepath.Join(d, groupKey)) || exists(filepath.Join(d, arrayKey)) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// OpenGroup opens a child group by path.
func (g *Group) OpenGroup(path string) (*Group, error) {
	full, err := g.resolve(path)
	if err != nil {
		return nil, err
	}
	d := g.dir(full)
	if !exists(filepath.Join(d, groupKey)) {
		if exists(filepath.Join(d, arrayKey)) {
			return nil, fmt.Errorf("%w: %s", ErrNotGroup, full)
		}
		return nil, fmt.Errorf("%w: %s", ErrNotFound, full)
	}
	return &Group{root: g.root, path: full, writable: g.writable}, nil
}

// OpenArray opens an array by path.
func (g *Group) OpenArray(path string) (*Array, error) {
	full, err := g.resolve(path)
	if err != nil {
		return nil, err
	}
	d := g.dir(full)
	if !exists(filepath.Join(d, arrayKey)) {
		if exists(filepath.Join(d, groupKey)) {
			return nil, fmt.Errorf("%w: %s", ErrNotArray, full)
		}
		return nil, fmt.Errorf("%w: %s", ErrNotFound, full)
	}
	return openArray(g.root, full)
}

// CreateGroup creates a child group named name.
func (g *Group) CreateGroup(name string) (*Group, error) {
	if !g.writable {
		return nil, ErrReadOnly
	}
	if err := validName(name); err != nil {
		return nil, err
	}
	full := joinPath(g.path, name)
	if err := os.Mkdir(g.dir(full), 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrExists, full)
		}
		return nil, err
	}
	if err := writeJSON(filepath.Join(g.dir(full), groupKey), GroupMetadata{ZarrFormat: Format}); err != nil {
		return nil, err
	}
	return &Group{root: g.root, path: full, writable: true}, nil
}

// RequireGroup returns the group at path relative to g, creating it and
// any missing parents.
func (g *Group) RequireGroup(path string) (*Group, error) {
	if !g.writable {
		return nil, ErrReadOnly
	}
	cur := g
	for _, name := range strings.Split(path, "/") {
		if name == "" {
			continue
		}
		if err := validName(name); err != nil {
			return nil, err
		}
		full := joinPath(cur.path, name)
		d := g.dir(full)
		if exists(filepath.Join(d, arrayKey)) {
			return nil, fmt.Errorf("%w: %s", ErrNotGroup, full)
		}
		if !exists(filepath.Join(d, groupKey)) {
			if err := os.MkdirAll(d, 0o755); err != nil {
				return nil, err
			}
			if err := writeJSON(filepath.Join(d, groupKey), GroupMetadata{ZarrFormat: Format}); err != nil {
				return nil, err
			}
		}
		cur = &Group{root: g.root, path: full, writable: true}
	}
	return cur, nil
}

// CreateArray creates an array named name with the given shape and element
// type. Its chunk files are written with WriteRegion or WriteChunk.
func (g *Group) CreateArray(name string, shape []uint64, d dtype.Descriptor, opts ...ArrayOption) (*Array, error) {
	if !g.writable {
		return nil, ErrReadOnly
	}
	if err := validName(name); err != nil {
		return nil, err
	}
	o := defaultArrayOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.err != nil {
		return nil, fmt.Errorf("array %s: %w", name, o.err)
	}
	if !d.Valid() {
		return nil, fmt.Errorf("array %s: invalid element type %s", name, d)
	}

	chunks := o.chunks
	if chunks == nil {
		chunks = make([]uint64, len(shape))
		for i, n := range shape {
			chunks[i] = max(n, 1)
		}
	}
	meta := ArrayMetadata{
		ZarrFormat:         Format,
		Shape:              append([]uint64(nil), shape...),
		Chunks:             append([]uint64(nil), chunks...),
		Dtype:              d.Typestr(),
		Compressor:         o.compressor,
		FillValue:          fillValue(d),
		Order:              "C",
		Filters:            o.filters,
		DimensionSeparator: ".",
	}
	if err := meta.validate(); err != nil {
		return nil, fmt.Errorf("array %s: %w", name, err)
	}
	chain, err := NewChain(meta.Filters, meta.Compressor)
	if err != nil {
		return nil, fmt.Errorf("array %s: %w", name, err)
	}
	grid, err := layout.NewGrid(meta.Shape, meta.Chunks)
	if err != nil {
		return nil, fmt.Errorf("array %s: %w", name, err)
	}

	full := joinPath(g.path, name)
	dir := g.dir(full)
	if err := os.Mkdir(dir, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrExists, full)
		}
		return nil, err
	}
	if err := writeJSON(filepath.Join(dir, arrayKey), meta); err != nil {
		return nil, err
	}
	return &Array{
		root:        g.root,
		path:        full,
		meta:        meta,
		dtype:       d,
		chain:       chain,
		grid:        grid,
		concurrency: o.concurrency,
		writable:    true,
	}, nil
}
