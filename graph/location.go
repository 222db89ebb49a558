package graph

import (
	"fmt"
	"strings"
)

// Location is the slash-delimited path of a field below the root container,
// such as "acquisition/ElectricalSeries/data". The root's own name is not
// part of the path.
type Location string

// NewLocation joins segments into a Location.
func NewLocation(segments ...string) Location {
	return Location(strings.Join(segments, "/"))
}

// Segments returns the path components of l.
func (l Location) Segments() []string {
	if l == "" {
		return nil
	}
	return strings.Split(string(l), "/")
}

// LastSegment returns the final path component.
func (l Location) LastSegment() string {
	s := string(l)
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// Parent returns l without its final component.
func (l Location) Parent() Location {
	s := string(l)
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		return Location(s[:i])
	}
	return ""
}

// Child returns l extended by name.
func (l Location) Child(name string) Location {
	if l == "" {
		return Location(name)
	}
	return l + "/" + Location(name)
}

// Validate checks that l is non-empty and has no empty segments.
func (l Location) Validate() error {
	if l == "" {
		return fmt.Errorf("empty location")
	}
	for _, seg := range l.Segments() {
		if seg == "" {
			return fmt.Errorf("location %q has an empty segment", string(l))
		}
	}
	return nil
}

func (l Location) String() string {
	return string(l)
}
