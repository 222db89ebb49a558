package hdf5

import (
	"fmt"
	"strings"
)

// SplitPath splits a path into its components.
// Leading and trailing slashes are handled, empty components are removed.
//
// Examples:
//   - "/" -> []string{}
//   - "/foo" -> []string{"foo"}
//   - "/foo//bar/" -> []string{"foo", "bar"}
func SplitPath(path string) []string {
	parts := strings.Split(path, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// CleanPath normalizes a path, ensuring it starts with "/" and has no trailing slash.
func CleanPath(path string) string {
	return "/" + strings.Join(SplitPath(path), "/")
}

// JoinPath appends name to a group path.
func JoinPath(parent, name string) string {
	if parent == "/" || parent == "" {
		return "/" + name
	}
	return parent + "/" + name
}

// validName checks a link name for use in a group.
func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.Contains(name, "/") {
		return fmt.Errorf("%w: link name %q", ErrInvalidPath, name)
	}
	return nil
}
