package scanner

import "sort"

// PathSet is a set of absolute file paths.
type PathSet map[string]struct{}

// NewPathSet returns a set holding paths.
func NewPathSet(paths ...string) PathSet {
	s := make(PathSet, len(paths))
	for _, p := range paths {
		s[p] = struct{}{}
	}
	return s
}

// Add inserts path.
func (s PathSet) Add(path string) { s[path] = struct{}{} }

// Has reports whether path is in the set.
func (s PathSet) Has(path string) bool {
	_, ok := s[path]
	return ok
}

// Sorted returns the members in lexical order.
func (s PathSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
