package grouping

import "sync"

// Locked serializes access to an inner Grouper.
type Locked[K comparable] struct {
	mu    sync.Mutex
	inner Grouper[K]
}

// NewLocked wraps g so Insert and Groups may be called from many goroutines.
func NewLocked[K comparable](g Grouper[K]) *Locked[K] {
	return &Locked[K]{inner: g}
}

// Insert implements Grouper.
func (l *Locked[K]) Insert(id1, id2 K, same bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inner.Insert(id1, id2, same)
}

// Groups implements Grouper.
func (l *Locked[K]) Groups(rel Relation) [][]K {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.Groups(rel)
}
