package enforcement

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Store persists enforcement sessions.
type Store interface {
	// Create inserts a new active session.
	Create(ctx context.Context, s *Session) error
	// Get returns the session for token or ErrNotFound.
	Get(ctx context.Context, token string) (*Session, error)
	// Transition closes an active session. It reports false, with no
	// error, when the session was no longer active: another caller won.
	Transition(ctx context.Context, token string, c Closure) (bool, error)
	// ExpireOverdue marks active sessions past their expiry as expired
	// and returns how many changed.
	ExpireOverdue(ctx context.Context, now time.Time) (int, error)
	Close() error
}

// MemoryStore is a Store for tests and ephemeral deployments.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

var _ Store = (*MemoryStore)(nil)

// Create implements Store.
func (m *MemoryStore) Create(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.Token]; ok {
		return fmt.Errorf("enforcement: token %s already exists", s.Token)
	}
	m.sessions[s.Token] = cloneSession(s)
	return nil
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, token string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneSession(s), nil
}

// Transition implements Store.
func (m *MemoryStore) Transition(_ context.Context, token string, c Closure) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	if !ok {
		return false, ErrNotFound
	}
	if s.Status != StatusActive {
		return false, nil
	}
	applyClosure(s, c)
	return true, nil
}

// ExpireOverdue implements Store.
func (m *MemoryStore) ExpireOverdue(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sessions {
		if s.Status == StatusActive && now.After(s.ExpiresAt) {
			applyClosure(s, expiredClosure(now))
			n++
		}
	}
	return n, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }

func applyClosure(s *Session, c Closure) {
	closed := c.ClosedAt
	s.Status = c.Status
	s.Issues = append([]Issue{}, c.Issues...)
	s.SafetyScore = c.SafetyScore
	s.EndGatePassed = c.EndGatePassed
	s.Mode = c.Mode
	s.GatesFollowed = append([]string(nil), c.GatesFollowed...)
	s.GatesSkipped = append([]string(nil), c.GatesSkipped...)
	s.ValidatedSafetySessionID = c.SafetySessionID
	s.ClosedAt = &closed
}

func expiredClosure(now time.Time) Closure {
	return Closure{
		Status:   StatusExpired,
		Issues:   []Issue{expiredIssue()},
		ClosedAt: now.UTC(),
	}
}

func expiredIssue() Issue {
	return Issue{
		Code:     CodeSessionExpired,
		Severity: SeverityError,
		Message:  "enforcement session expired; call discover_patterns to start a new one",
	}
}

func cloneSession(s *Session) *Session {
	c := *s
	c.PlannedFiles = append([]string{}, s.PlannedFiles...)
	c.Keywords = append([]string{}, s.Keywords...)
	c.PatternsReturned = append([]string{}, s.PatternsReturned...)
	c.Issues = append([]Issue{}, s.Issues...)
	c.GatesFollowed = append([]string(nil), s.GatesFollowed...)
	c.GatesSkipped = append([]string(nil), s.GatesSkipped...)
	if s.ClosedAt != nil {
		t := *s.ClosedAt
		c.ClosedAt = &t
	}
	return &c
}
