package graph

import "reflect"

// Object is a named member of an object graph.
type Object interface {
	Name() string
}

// Container is an Object with children. Children must return the same
// order on every call. Implementations must be comparable, usually pointer
// types, for Walk to visit a shared container once.
type Container interface {
	Object
	Children() []Object
}

// Field is an Object holding an array-like value: an ArrayLike, a typed Go
// slice, a nested []any sequence, an ExternalLink or a Backed handle.
// Fields are identified by interface equality, so implementations must be
// comparable. Pointer receivers are the usual choice.
type Field interface {
	Object
	Value() any
}

// Group is a Container that keeps children in insertion order.
type Group struct {
	name     string
	children []Object
}

// NewGroup creates a group holding children.
func NewGroup(name string, children ...Object) *Group {
	return &Group{name: name, children: children}
}

// Name returns the group name.
func (g *Group) Name() string { return g.name }

// Children returns the group's members in insertion order.
func (g *Group) Children() []Object { return g.children }

// Add appends children and returns g.
func (g *Group) Add(children ...Object) *Group {
	g.children = append(g.children, children...)
	return g
}

// Child returns the first member named name, or nil.
func (g *Group) Child(name string) Object {
	for _, c := range g.children {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// Dataset is a Field holding a value.
type Dataset struct {
	name  string
	value any
}

// NewDataset creates a field named name.
func NewDataset(name string, value any) *Dataset {
	return &Dataset{name: name, value: value}
}

// Name returns the dataset name.
func (d *Dataset) Name() string { return d.name }

// Value returns the dataset value.
func (d *Dataset) Value() any { return d.value }

// same reports whether a and b are the same object. Objects of
// non-comparable dynamic types are never considered the same.
func same(a, b Object) bool {
	if a == nil || b == nil {
		return false
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

// key returns a map key identifying o, or false if o has no identity.
func key(o Object) (any, bool) {
	if o == nil || !reflect.TypeOf(o).Comparable() {
		return nil, false
	}
	return o, true
}
