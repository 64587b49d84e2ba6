// Package session holds the per-agent SafetySession: its gates, decision
// ledger, attempt history, scope lock and clarification state.
//
// Sessions live in memory for the process lifetime. The Store serializes
// mutation per session; readers always get deep copies.
package session

import (
	"time"

	"github.com/HendryAvila/safeguard/internal/attempts"
	"github.com/HendryAvila/safeguard/internal/intent"
	"github.com/HendryAvila/safeguard/internal/ledger"
	"github.com/HendryAvila/safeguard/internal/scope"
)

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// Gate names one mandatory check.
type Gate string

const (
	GateContextLoaded         Gate = "contextLoaded"
	GateIntentClarified       Gate = "intentClarified"
	GateContradictionsChecked Gate = "contradictionsChecked"
	GateScopeLocked           Gate = "scopeLocked"
	GatePatternsLoaded        Gate = "patternsLoaded"
	GateImplementationStarted Gate = "implementationStarted"
	GateVerificationPassed    Gate = "verificationPassed"
	GateDocumentationUpdated  Gate = "documentationUpdated"
)

// Gates are the monotonic flags of a session. Once true, a gate stays
// true until the session is evicted.
type Gates struct {
	ContextLoaded         bool `json:"contextLoaded"`
	IntentClarified       bool `json:"intentClarified"`
	ContradictionsChecked bool `json:"contradictionsChecked"`
	ScopeLocked           bool `json:"scopeLocked"`
	PatternsLoaded        bool `json:"patternsLoaded"`
	ImplementationStarted bool `json:"implementationStarted"`
	VerificationPassed    bool `json:"verificationPassed"`
	DocumentationUpdated  bool `json:"documentationUpdated"`
}

func (g *Gates) field(name Gate) *bool {
	switch name {
	case GateContextLoaded:
		return &g.ContextLoaded
	case GateIntentClarified:
		return &g.IntentClarified
	case GateContradictionsChecked:
		return &g.ContradictionsChecked
	case GateScopeLocked:
		return &g.ScopeLocked
	case GatePatternsLoaded:
		return &g.PatternsLoaded
	case GateImplementationStarted:
		return &g.ImplementationStarted
	case GateVerificationPassed:
		return &g.VerificationPassed
	case GateDocumentationUpdated:
		return &g.DocumentationUpdated
	}
	return nil
}

// Has reports whether gate is passed. Unknown gates are never passed.
func (g Gates) Has(gate Gate) bool {
	if p := g.field(gate); p != nil {
		return *p
	}
	return false
}

// Set marks gate passed. There is no way to unset one.
func (g *Gates) Set(gate Gate) {
	if p := g.field(gate); p != nil {
		*p = true
	}
}

// Session is one agent's safety state.
type Session struct {
	ID             string                 `json:"sessionId"`
	ProjectPath    string                 `json:"projectPath,omitempty"`
	ProjectHash    string                 `json:"projectHash,omitempty"`
	Gates          Gates                  `json:"gates"`
	Decisions      []ledger.Decision      `json:"decisions"`
	Attempts       []attempts.Attempt     `json:"attempts"`
	Blockers       []attempts.Blocker     `json:"blockers,omitempty"`
	ScopeLock      *scope.Lock            `json:"scopeLock"`
	Intent         *intent.Analysis       `json:"intent,omitempty"`
	Contradictions []ledger.Contradiction `json:"contradictions,omitempty"`
	CreatedAt      time.Time              `json:"createdAt"`
	UpdatedAt      time.Time              `json:"updatedAt"`
}

// New creates an empty session.
func New(id string) *Session {
	now := timeNow().UTC()
	return &Session{
		ID:        id,
		Decisions: []ledger.Decision{},
		Attempts:  []attempts.Attempt{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	c := *s
	c.Decisions = make([]ledger.Decision, len(s.Decisions))
	for i, d := range s.Decisions {
		d.AlternativesConsidered = append([]string(nil), d.AlternativesConsidered...)
		c.Decisions[i] = d
	}
	c.Attempts = append([]attempts.Attempt{}, s.Attempts...)
	c.Blockers = append([]attempts.Blocker(nil), s.Blockers...)
	c.Contradictions = append([]ledger.Contradiction(nil), s.Contradictions...)
	c.ScopeLock = s.ScopeLock.Clone()
	if s.Intent != nil {
		a := s.Intent.Clone()
		c.Intent = &a
	}
	return &c
}

// Ledger returns the session's decisions as a ledger. Appends to it do
// not affect the session until written back with SetLedger.
func (s *Session) Ledger() *ledger.Ledger { return ledger.FromDecisions(s.Decisions) }

// SetLedger stores the ledger's entries on the session.
func (s *Session) SetLedger(l *ledger.Ledger) {
	s.Decisions = append([]ledger.Decision{}, l.Entries()...)
}

// AttemptLog returns the session's attempts as a log.
func (s *Session) AttemptLog() *attempts.Log { return attempts.FromAttempts(s.Attempts) }

// SetAttemptLog stores the log's entries on the session.
func (s *Session) SetAttemptLog(l *attempts.Log) {
	s.Attempts = append([]attempts.Attempt{}, l.Entries()...)
}

// Violations returns the scope lock's violations, or none.
func (s *Session) Violations() []scope.Violation {
	if s.ScopeLock == nil {
		return []scope.Violation{}
	}
	return append([]scope.Violation{}, s.ScopeLock.Violations...)
}
