package graph

import (
	"errors"
	"reflect"
)

// ExternalLink is a field value referring to a dataset in another file.
type ExternalLink struct {
	File string
	Path string
}

// Backed is implemented by handles to datasets already stored in a file.
type Backed interface {
	BackingFile() string
}

var errFound = errors.New("found")

// ResolveLocation returns the location of target below root. When target is
// reachable through several containers, the first path in walk order wins.
// A target of non-comparable type has no identity and yields ErrNoIdentity.
func ResolveLocation(root Container, target Field) (Location, error) {
	if target != nil {
		if t := reflect.TypeOf(target); !t.Comparable() {
			return "", ErrNoIdentity.New(target.Name(), t.String())
		}
	}
	var found Location
	err := Walk(root, func(loc Location, f Field) error {
		if same(f, target) {
			found = loc
			return errFound
		}
		return nil
	})
	if errors.Is(err, errFound) {
		return found, nil
	}
	if err != nil {
		return "", err
	}
	return "", ErrNotFound.New(fieldName(target), root.Name())
}

// IsAlreadyBacked reports whether the field's value refers to bytes already
// committed to a file, either by link or by an open dataset handle.
func IsAlreadyBacked(f Field) bool {
	if f == nil {
		return false
	}
	switch v := f.Value().(type) {
	case ExternalLink, *ExternalLink:
		return true
	case Backed:
		return v.BackingFile() != ""
	}
	return false
}

func fieldName(f Field) string {
	if f == nil {
		return "<nil>"
	}
	return f.Name()
}
