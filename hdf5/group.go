package hdf5

import (
	"fmt"
	"strings"

	"github.com/robert-malhotra/go-chunkplan/internal/message"
	"github.com/robert-malhotra/go-chunkplan/internal/object"
)

// Group is an HDF5 group. Groups of a file opened with Open are read from
// their object headers; groups of a file being created are kept in memory
// until the file is closed.
type Group struct {
	file   *File
	path   string
	header *object.Header // read mode
	node   *groupNode     // write mode
}

type groupNode struct {
	entries []*groupEntry
}

// groupEntry is one named member of a group being written. Exactly one of
// group, dataset and link is set.
type groupEntry struct {
	name    string
	group   *groupNode
	dataset *DatasetWriter
	link    *message.Link
}

func (n *groupNode) find(name string) *groupEntry {
	for _, e := range n.entries {
		if e.name == name {
			return e
		}
	}
	return nil
}

// Name returns the last component of the group path.
func (g *Group) Name() string {
	if g.path == "/" {
		return "/"
	}
	return g.path[strings.LastIndexByte(g.path, '/')+1:]
}

// Path returns the full path of the group.
func (g *Group) Path() string {
	return g.path
}

// File returns the file holding the group.
func (g *Group) File() *File {
	return g.file
}

// Members returns the link names of the group in storage order.
func (g *Group) Members() ([]string, error) {
	if g.node != nil {
		g.file.mu.Lock()
		defer g.file.mu.Unlock()
		names := make([]string, len(g.node.entries))
		for i, e := range g.node.entries {
			names[i] = e.name
		}
		return names, nil
	}
	links, err := g.links()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(links))
	for i, l := range links {
		names[i] = l.Name
	}
	return names, nil
}

func (g *Group) links() ([]*message.Link, error) {
	if li := g.header.LinkInfo(); li != nil && li.Dense(g.file.reader.Config()) {
		return nil, fmt.Errorf("%w: dense link storage in %s", ErrUnsupported, g.path)
	}
	if g.header.Get(message.TypeSymbolTable) != nil {
		return nil, fmt.Errorf("%w: symbol table group %s", ErrUnsupported, g.path)
	}
	return g.header.Links(), nil
}

func (g *Group) link(name string) (*message.Link, error) {
	links, err := g.links()
	if err != nil {
		return nil, err
	}
	for _, l := range links {
		if l.Name == name {
			return l, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, JoinPath(g.path, name))
}

// OpenGroup opens a group by a path relative to g, or absolute when it
// starts with "/".
func (g *Group) OpenGroup(path string) (*Group, error) {
	if g.file.closed {
		return nil, ErrClosed
	}
	if g.node != nil {
		return g.openNode(path)
	}
	f, h, full, err := g.resolve(path, 0)
	if err != nil {
		return nil, err
	}
	if !h.IsGroup() {
		return nil, fmt.Errorf("%w: %s", ErrNotGroup, full)
	}
	return &Group{file: f, path: full, header: h}, nil
}

// OpenDataset opens a dataset by a path relative to g, or absolute when
// it starts with "/". Datasets of a file being written cannot be opened.
func (g *Group) OpenDataset(path string) (*Dataset, error) {
	if g.file.closed {
		return nil, ErrClosed
	}
	if g.node != nil {
		return nil, fmt.Errorf("%w: reading a file being written", ErrUnsupported)
	}
	f, h, full, err := g.resolve(path, 0)
	if err != nil {
		return nil, err
	}
	if !h.IsDataset() {
		return nil, fmt.Errorf("%w: %s", ErrNotDataset, full)
	}
	return newDataset(f, full, h)
}

// resolve follows path from g through hard, soft and external links. It
// returns the file and header of the target and its path within that file.
func (g *Group) resolve(path string, depth int) (*File, *object.Header, string, error) {
	if depth > MaxLinkDepth {
		return nil, nil, "", ErrLinkDepth
	}
	cur := g
	if strings.HasPrefix(path, "/") {
		cur = g.file.root
	}
	f, h, full := cur.file, cur.header, cur.path

	for _, name := range SplitPath(path) {
		grp := &Group{file: f, path: full, header: h}
		if !h.IsGroup() {
			return nil, nil, "", fmt.Errorf("%w: %s", ErrNotGroup, full)
		}
		l, err := grp.link(name)
		if err != nil {
			return nil, nil, "", err
		}

		switch l.LinkType {
		case message.LinkTypeHard:
			h, err = object.Read(f.reader, l.ObjectAddress)
			if err != nil {
				return nil, nil, "", fmt.Errorf("%s: %w", JoinPath(full, name), err)
			}
			full = JoinPath(full, name)
		case message.LinkTypeSoft:
			f, h, full, err = grp.resolve(l.SoftPath, depth+1)
			if err != nil {
				return nil, nil, "", err
			}
		case message.LinkTypeExternal:
			ext, err := f.openExternalFile(l.ExternalFile)
			if err != nil {
				return nil, nil, "", err
			}
			f, h, full, err = ext.root.resolve(CleanPath(l.ExternalPath), depth+1)
			if err != nil {
				return nil, nil, "", err
			}
		default:
			return nil, nil, "", fmt.Errorf("%w: link type %d", ErrUnsupported, l.LinkType)
		}
	}
	return f, h, full, nil
}

// LinkTarget describes where a member link points.
type LinkTarget struct {
	Kind string // "hard", "soft" or "external"
	File string // external links
	Path string // soft and external links
}

// LinkTarget returns the kind and target of the member link name.
func (g *Group) LinkTarget(name string) (LinkTarget, error) {
	if g.node != nil {
		g.file.mu.Lock()
		defer g.file.mu.Unlock()
		e := g.node.find(name)
		switch {
		case e == nil:
			return LinkTarget{}, fmt.Errorf("%w: %s", ErrNotFound, JoinPath(g.path, name))
		case e.link != nil:
			return LinkTarget{Kind: "external", File: e.link.ExternalFile, Path: e.link.ExternalPath}, nil
		}
		return LinkTarget{Kind: "hard"}, nil
	}
	l, err := g.link(name)
	if err != nil {
		return LinkTarget{}, err
	}
	switch l.LinkType {
	case message.LinkTypeSoft:
		return LinkTarget{Kind: "soft", Path: l.SoftPath}, nil
	case message.LinkTypeExternal:
		return LinkTarget{Kind: "external", File: l.ExternalFile, Path: l.ExternalPath}, nil
	}
	return LinkTarget{Kind: "hard"}, nil
}

func (g *Group) openNode(path string) (*Group, error) {
	g.file.mu.Lock()
	defer g.file.mu.Unlock()
	n, full := g.node, g.path
	if strings.HasPrefix(path, "/") {
		n, full = g.file.root.node, "/"
	}
	for _, name := range SplitPath(path) {
		e := n.find(name)
		if e == nil {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, JoinPath(full, name))
		}
		if e.group == nil {
			return nil, fmt.Errorf("%w: %s", ErrNotGroup, JoinPath(full, name))
		}
		n, full = e.group, JoinPath(full, name)
	}
	return &Group{file: g.file, path: full, node: n}, nil
}

func (g *Group) writable() error {
	if g.file.closed {
		return ErrClosed
	}
	if g.node == nil {
		return ErrReadOnly
	}
	return nil
}

// addEntry appends e to the group. The caller holds file.mu.
func (g *Group) addEntry(e *groupEntry) error {
	if err := validName(e.name); err != nil {
		return err
	}
	if g.node.find(e.name) != nil {
		return fmt.Errorf("%w: %s", ErrExists, JoinPath(g.path, e.name))
	}
	g.node.entries = append(g.node.entries, e)
	return nil
}

// CreateGroup creates a child group named name.
func (g *Group) CreateGroup(name string) (*Group, error) {
	if err := g.writable(); err != nil {
		return nil, err
	}
	g.file.mu.Lock()
	defer g.file.mu.Unlock()
	n := &groupNode{}
	if err := g.addEntry(&groupEntry{name: name, group: n}); err != nil {
		return nil, err
	}
	return &Group{file: g.file, path: JoinPath(g.path, name), node: n}, nil
}

// RequireGroup returns the group at path relative to g, creating it and
// any missing parents.
func (g *Group) RequireGroup(path string) (*Group, error) {
	if err := g.writable(); err != nil {
		return nil, err
	}
	g.file.mu.Lock()
	defer g.file.mu.Unlock()
	cur := g
	for _, name := range SplitPath(path) {
		e := cur.node.find(name)
		if e == nil {
			e = &groupEntry{name: name, group: &groupNode{}}
			if err := cur.addEntry(e); err != nil {
				return nil, err
			}
		}
		if e.group == nil {
			return nil, fmt.Errorf("%w: %s", ErrNotGroup, JoinPath(cur.path, name))
		}
		cur = &Group{file: g.file, path: JoinPath(cur.path, name), node: e.group}
	}
	return cur, nil
}

// CreateExternalLink adds a link named name to the object at path in
// another file.
func (g *Group) CreateExternalLink(name, file, path string) error {
	if err := g.writable(); err != nil {
		return err
	}
	if file == "" {
		return fmt.Errorf("%w: external link %s has no file", ErrInvalidPath, name)
	}
	g.file.mu.Lock()
	defer g.file.mu.Unlock()
	return g.addEntry(&groupEntry{name: name, link: message.NewExternalLink(name, file, CleanPath(path))})
}
