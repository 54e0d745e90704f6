package crawler

import "sync"

// PathSet is the set of page paths a crawl has claimed. It is the only
// state shared between the goroutines of one crawl.
type PathSet struct {
	mu    sync.Mutex
	seen  map[string]bool
	limit int
}

// NewPathSet returns an empty set holding at most limit paths; 0 means no
// limit.
func NewPathSet(limit int) *PathSet {
	return &PathSet{
		seen:  make(map[string]bool),
		limit: limit,
	}
}

// Add claims path and reports whether the caller won it. A path is won
// exactly once.
func (s *PathSet) Add(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seen[path] {
		return false
	}
	if s.limit > 0 && len(s.seen) >= s.limit {
		return false
	}
	s.seen[path] = true
	return true
}

func (s *PathSet) Contains(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen[path]
}

func (s *PathSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
