// Package collector accumulates field names into a de-duplicated set with a
// fixed lexicographic order.
package collector

import (
	"iter"
	"slices"
	"sort"
)

// Builder accumulates names for one target. It is not safe for concurrent
// use and is single-shot: after Build it panics on further use.
type Builder struct {
	names map[string]struct{}
	built bool
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{names: make(map[string]struct{})}
}

// AddName inserts name. Adding a name that is already present is a no-op.
func (b *Builder) AddName(name string) *Builder {
	if b.built {
		panic("collector: AddName called after Build")
	}
	b.names[name] = struct{}{}
	return b
}

// Len reports how many distinct names have been added so far.
func (b *Builder) Len() int {
	return len(b.names)
}

// Build freezes the builder and returns the sorted snapshot.
func (b *Builder) Build() NameSet {
	if b.built {
		panic("collector: Build called twice")
	}
	b.built = true

	names := make([]string, 0, len(b.names))
	for name := range b.names {
		names = append(names, name)
	}
	sort.Strings(names)
	b.names = nil
	return NameSet{names: names}
}

// NameSet is an immutable, lexicographically ordered set of names.
type NameSet struct {
	names []string
}

// Len returns the number of names.
func (s NameSet) Len() int {
	return len(s.names)
}

// Names returns a copy of the names in order.
func (s NameSet) Names() []string {
	return slices.Clone(s.names)
}

// All yields the names in order.
func (s NameSet) All() iter.Seq[string] {
	return slices.Values(s.names)
}

// Contains reports whether name is in the set.
func (s NameSet) Contains(name string) bool {
	_, found := slices.BinarySearch(s.names, name)
	return found
}
