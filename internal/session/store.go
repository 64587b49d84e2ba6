package session

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrNotFound is returned for operations on an unknown session.
var ErrNotFound = errors.New("session not found")

// Store keeps sessions by id. Implementations must serialize Update per
// session and must not let callers alias stored state.
type Store interface {
	// Create returns the session for id, creating it if needed. created
	// reports whether this call made it.
	Create(id string) (s *Session, created bool, err error)
	// Get returns a copy of the session.
	Get(id string) (*Session, bool)
	// Update runs fn on a copy of the session under its lock and stores
	// the copy only if fn returns nil. It returns the stored state.
	Update(id string, fn func(*Session) error) (*Session, error)
	// Evict removes the session. It reports whether one existed.
	Evict(id string) bool
	// Len returns the number of sessions.
	Len() int
}

// MemoryStore is the in-process Store. Each session has its own mutex so
// work on different sessions never contends.
type MemoryStore struct {
	entries sync.Map // id -> *entry
	count   atomic.Int64
}

type entry struct {
	mu      sync.Mutex
	s       *Session
	evicted bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

var _ Store = (*MemoryStore)(nil)

// Create implements Store.
func (m *MemoryStore) Create(id string) (*Session, bool, error) {
	if id == "" {
		return nil, false, fmt.Errorf("session id is required")
	}
	fresh := &entry{s: New(id)}
	v, loaded := m.entries.LoadOrStore(id, fresh)
	if !loaded {
		m.count.Add(1)
	}
	e := v.(*entry)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.s.Clone(), !loaded, nil
}

// Get implements Store.
func (m *MemoryStore) Get(id string) (*Session, bool) {
	v, ok := m.entries.Load(id)
	if !ok {
		return nil, false
	}
	e := v.(*entry)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evicted {
		return nil, false
	}
	return e.s.Clone(), true
}

// Update implements Store.
func (m *MemoryStore) Update(id string, fn func(*Session) error) (*Session, error) {
	v, ok := m.entries.Load(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	e := v.(*entry)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evicted {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	work := e.s.Clone()
	if err := fn(work); err != nil {
		return e.s.Clone(), err
	}
	work.ID = e.s.ID
	work.CreatedAt = e.s.CreatedAt
	work.UpdatedAt = timeNow().UTC()
	e.s = work
	return work.Clone(), nil
}

// Evict implements Store.
func (m *MemoryStore) Evict(id string) bool {
	v, ok := m.entries.LoadAndDelete(id)
	if !ok {
		return false
	}
	m.count.Add(-1)
	e := v.(*entry)
	e.mu.Lock()
	e.evicted = true
	e.mu.Unlock()
	return true
}

// Len implements Store.
func (m *MemoryStore) Len() int { return int(m.count.Load()) }
