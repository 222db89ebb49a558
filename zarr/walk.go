package zarr

// WalkFunc is called for each node during traversal.
// path is the full path to the node.
// obj is either *Group or *Array.
// err is any error encountered opening the node.
// Return nil to continue walking, or an error to stop.
type WalkFunc func(path string, obj interface{}, err error) error

// Walk traverses the groups and arrays below g depth first, children in
// lexical order, calling fn for g itself first.
func Walk(g *Group, fn WalkFunc) error {
	if err := fn(g.path, g, nil); err != nil {
		return err
	}

	members, err := g.Members()
	if err != nil {
		return fn(g.path, nil, err)
	}

	for _, name := range members {
		childPath := joinPath(g.path, name)

		child, err := g.OpenGroup(name)
		if err == nil {
			if err := Walk(child, fn); err != nil {
				return err
			}
			continue
		}

		arr, err := g.OpenArray(name)
		if err == nil {
			if err := fn(childPath, arr, nil); err != nil {
				return err
			}
			continue
		}

		if err := fn(childPath, nil, err); err != nil {
			return err
		}
	}
	return nil
}
