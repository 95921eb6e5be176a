// Package sparse holds the row-sparse bookkeeping shared by the embedding layers:
// the touched-row collector and the gather / scatter / clip helpers that operate
// on row-major gonum tables.
package sparse

import "slices"

// IndexSet collects the distinct row indices touched during one accumulation
// cycle. The zero value is ready to use.
type IndexSet struct {
	seen map[int]struct{}
}

// NewIndexSet creates an empty set.
func NewIndexSet() *IndexSet {
	return &IndexSet{seen: make(map[int]struct{})}
}

// Add records the given indices. Duplicates are ignored.
func (s *IndexSet) Add(idx ...int) {
	if s.seen == nil {
		s.seen = make(map[int]struct{}, len(idx))
	}
	for _, i := range idx {
		s.seen[i] = struct{}{}
	}
}

// Contains reports whether i was added since the last Reset.
func (s *IndexSet) Contains(i int) bool {
	_, ok := s.seen[i]
	return ok
}

// Len returns the number of distinct indices.
func (s *IndexSet) Len() int {
	return len(s.seen)
}

// Indices returns the distinct indices in ascending order.
func (s *IndexSet) Indices() []int {
	out := make([]int, 0, len(s.seen))
	for i := range s.seen {
		out = append(out, i)
	}
	slices.Sort(out)
	return out
}

// Reset empties the set.
func (s *IndexSet) Reset() {
	clear(s.seen)
}
