// internal/sniping/seen.go
package sniping

import "sync"

// SeenSet records every mint the scanner has handed to admission during one
// run. Entries are never removed.
type SeenSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewSeenSet() *SeenSet {
	return &SeenSet{seen: make(map[string]struct{})}
}

// Add marks mint as seen. It returns false if mint was already present.
func (s *SeenSet) Add(mint string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[mint]; ok {
		return false
	}
	s.seen[mint] = struct{}{}
	return true
}

// Contains reports whether mint was already seen.
func (s *SeenSet) Contains(mint string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[mint]
	return ok
}

// Len returns the number of seen mints.
func (s *SeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
