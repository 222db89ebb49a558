package graph

import "errors"

// WalkFunc is called for each field reachable from the root.
// Return nil to continue walking, SkipAll to stop without error, or any
// other error to stop and return it.
type WalkFunc func(loc Location, f Field) error

// SkipAll stops Walk without reporting an error.
var SkipAll = errors.New("skip remaining fields")

// Walk visits every field reachable from root depth first, following the
// order of each container's Children. A container reachable more than once
// is descended only the first time, and a field reachable more than once is
// reported once, at its first location.
func Walk(root Container, fn WalkFunc) error {
	w := &walker{
		fn:         fn,
		containers: make(map[any]struct{}),
		fields:     make(map[any]struct{}),
	}
	if k, ok := key(root); ok {
		w.containers[k] = struct{}{}
	}
	err := w.walk(root, "")
	if errors.Is(err, SkipAll) {
		return nil
	}
	return err
}

type walker struct {
	fn         WalkFunc
	containers map[any]struct{}
	fields     map[any]struct{}
}

func (w *walker) walk(c Container, base Location) error {
	for _, child := range c.Children() {
		if child == nil {
			continue
		}
		loc := base.Child(child.Name())

		switch o := child.(type) {
		case Field:
			if k, ok := key(o); ok {
				if _, seen := w.fields[k]; seen {
					continue
				}
				w.fields[k] = struct{}{}
			}
			if err := w.fn(loc, o); err != nil {
				return err
			}

		case Container:
			if k, ok := key(o); ok {
				if _, seen := w.containers[k]; seen {
					continue
				}
				w.containers[k] = struct{}{}
			}
			if err := w.walk(o, loc); err != nil {
				return err
			}
		}
	}
	return nil
}
