package hdf5

import "github.com/robert-malhotra/go-chunkplan/internal/message"

// WalkFunc is called for each object during traversal.
// path is the full path to the object.
// obj is either *Group or *Dataset.
// err is any error encountered opening the object.
// Return nil to continue walking, or an error to stop.
type WalkFunc func(path string, obj interface{}, err error) error

// Walk traverses the groups and datasets reachable from g through hard
// links, depth first in storage order, calling fn for g itself first.
// Soft and external links are not followed, and an object reachable by
// several hard links is visited once.
//
// Example:
//
//	Walk(root, func(path string, obj interface{}, err error) error {
//	    if err != nil {
//	        return err // or skip: return nil
//	    }
//	    switch o := obj.(type) {
//	    case *Group:
//	        fmt.Println("Group:", path)
//	    case *Dataset:
//	        fmt.Println("Dataset:", path, "shape:", o.Shape())
//	    }
//	    return nil
//	})
func Walk(g *Group, fn WalkFunc) error {
	if g.file.closed {
		return ErrClosed
	}
	if g.node != nil {
		return ErrUnsupported
	}
	return walkGroup(g, fn, make(map[uint64]bool))
}

// walkGroup recursively walks a group and its children.
func walkGroup(g *Group, fn WalkFunc, visited map[uint64]bool) error {
	visited[g.header.Address] = true
	if err := fn(g.path, g, nil); err != nil {
		return err
	}

	links, err := g.links()
	if err != nil {
		return fn(g.path, nil, err)
	}

	for _, l := range links {
		if l.LinkType != message.LinkTypeHard || visited[l.ObjectAddress] {
			continue
		}
		childPath := JoinPath(g.path, l.Name)

		child, err := g.OpenGroup(l.Name)
		if err == nil {
			if err := walkGroup(child, fn, visited); err != nil {
				return err
			}
			continue
		}

		ds, err := g.OpenDataset(l.Name)
		if err == nil {
			visited[l.ObjectAddress] = true
			if err := fn(childPath, ds, nil); err != nil {
				return err
			}
			continue
		}

		// Could not open as either - call fn with error
		if err := fn(childPath, nil, err); err != nil {
			return err
		}
	}
	return nil
}
