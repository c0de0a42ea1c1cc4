package orderedset

// Set is a duplicate-rejecting collection that remembers first-seen order.
// It is not safe for concurrent use.
type Set[T comparable] struct {
	index map[T]struct{}
	items []T
}

// New creates an empty Set.
func New[T comparable]() *Set[T] {
	return &Set[T]{
		index: make(map[T]struct{}),
	}
}

// Add inserts v if it is not already present. It reports whether v was newly added.
func (s *Set[T]) Add(v T) bool {
	if _, ok := s.index[v]; ok {
		return false
	}
	s.index[v] = struct{}{}
	s.items = append(s.items, v)
	return true
}

// AddAll inserts every value and returns the number of values newly added.
func (s *Set[T]) AddAll(vs ...T) int {
	added := 0
	for _, v := range vs {
		if s.Add(v) {
			added++
		}
	}
	return added
}

// Contains reports whether v is in the set.
func (s *Set[T]) Contains(v T) bool {
	_, ok := s.index[v]
	return ok
}

// Len returns the number of distinct values added so far.
func (s *Set[T]) Len() int {
	return len(s.items)
}

// Values returns a copy of the set contents in first-seen order.
func (s *Set[T]) Values() []T {
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}
