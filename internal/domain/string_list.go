package domain

import "sort"

// StringList is an ordered list of unique domain strings.
type StringList []string

// Contains reports whether v is present in the list.
func (s StringList) Contains(v string) bool {
	for _, item := range s {
		if item == v {
			return true
		}
	}
	return false
}

// With returns the list with v appended if it is not present yet.
func (s StringList) With(v string) StringList {
	if v == "" || s.Contains(v) {
		return s
	}
	return append(s, v)
}

// Without returns a copy of the list with every occurrence of v dropped.
func (s StringList) Without(v string) StringList {
	out := make(StringList, 0, len(s))
	for _, item := range s {
		if item != v {
			out = append(out, item)
		}
	}
	return out
}

// Sorted returns a sorted copy of the list.
func (s StringList) Sorted() StringList {
	out := s.Clone()
	sort.Strings(out)
	return out
}

// Clone returns a copy of the underlying slice to avoid sharing memory.
func (s StringList) Clone() StringList {
	out := make(StringList, len(s))
	copy(out, s)
	return out
}
