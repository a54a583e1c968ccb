package permission

import (
	"slices"
	"strings"
)

// Set is an unordered collection of permission codes or role codes.
type Set map[string]struct{}

// NewSet returns a Set holding items. Blank items are skipped.
func NewSet(items ...string) Set {
	s := make(Set, len(items))
	for _, item := range items {
		s.Add(item)
	}
	return s
}

// Add inserts item after trimming surrounding space.
func (s Set) Add(item string) {
	item = strings.TrimSpace(item)
	if item == "" {
		return
	}
	s[item] = struct{}{}
}

// Has reports whether item is in the set. A nil set holds nothing.
func (s Set) Has(item string) bool {
	_, ok := s[item]
	return ok
}

// HasAny reports whether at least one of items is in the set. It is false
// for an empty list.
func (s Set) HasAny(items ...string) bool {
	for _, item := range items {
		if s.Has(item) {
			return true
		}
	}
	return false
}

// HasAll reports whether every item is in the set. It is true for an empty
// list.
func (s Set) HasAll(items ...string) bool {
	for _, item := range items {
		if !s.Has(item) {
			return false
		}
	}
	return true
}

// Len returns the number of members.
func (s Set) Len() int {
	return len(s)
}

// Sorted returns the members in lexical order. It never returns nil.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for item := range s {
		out = append(out, item)
	}
	slices.Sort(out)
	return out
}

// Clone returns an independent copy. Cloning a nil set yields an empty set.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for item := range s {
		out[item] = struct{}{}
	}
	return out
}

// Merge adds every member of other.
func (s Set) Merge(other Set) {
	for item := range other {
		s[item] = struct{}{}
	}
}

// SplitCode splits a permission code at its last '.' or ':' into resource
// and action. ok is false when either side would be empty.
func SplitCode(code string) (resource, action string, ok bool) {
	i := strings.LastIndexAny(code, ".:")
	if i <= 0 || i == len(code)-1 {
		return "", "", false
	}
	return code[:i], code[i+1:], true
}
