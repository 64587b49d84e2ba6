// Package enforcement issues the durable two-gate token that brackets a
// unit of work: discover_patterns opens it, validate_complete closes it.
//
// A token moves only forward, active to completed, failed or expired,
// and its terminal result is recorded once. Later validations return the
// recorded result without re-running the checklist.
package enforcement

import (
	"errors"
	"time"
)

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// DefaultTTL is how long a token stays valid.
const DefaultTTL = 2 * time.Hour

// ErrNotFound is returned by stores for an unknown token.
var ErrNotFound = errors.New("enforcement session not found")

// Status is the lifecycle state of a token.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusExpired   Status = "expired"
)

// Terminal reports whether s can no longer change.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusExpired
}

// Severity of a validation issue. Only errors fail validation.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue codes.
const (
	CodeSessionNotFound         = "SESSION_NOT_FOUND"
	CodeSessionExpired          = "SESSION_EXPIRED"
	CodeDiscoverPatternsSkipped = "DISCOVER_PATTERNS_SKIPPED"
	CodeTestsNotRun             = "TESTS_NOT_RUN"
	CodeTestsFailed             = "TESTS_FAILED"
	CodeTypescriptFailed        = "TYPESCRIPT_FAILED"
	CodeTestsNotWritten         = "TESTS_NOT_WRITTEN"
	CodeContextNotLoaded        = "CONTEXT_NOT_LOADED"
	CodeIntentNotClarified      = "INTENT_NOT_CLARIFIED"
	CodeScopeNotLocked          = "SCOPE_NOT_LOCKED"
)

// Issue is one checklist finding.
type Issue struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Session is the durable record behind a token. Mode and the gate lists
// are written with the closure so a replayed validation reads like the
// first one.
type Session struct {
	Token                    string     `json:"sessionToken"`
	TeamID                   string     `json:"teamId,omitempty"`
	Task                     string     `json:"task"`
	PlannedFiles             []string   `json:"plannedFiles"`
	Keywords                 []string   `json:"keywords"`
	PatternsReturned         []string   `json:"patternsReturned"`
	SafetySessionID          string     `json:"safetySessionId,omitempty"`
	StartGatePassed          bool       `json:"startGatePassed"`
	EndGatePassed            bool       `json:"endGatePassed"`
	Status                   Status     `json:"status"`
	Issues                   []Issue    `json:"issues"`
	SafetyScore              int        `json:"safetyScore"`
	Mode                     string     `json:"mode,omitempty"`
	GatesFollowed            []string   `json:"safetyGatesFollowed,omitempty"`
	GatesSkipped             []string   `json:"safetyGatesSkipped,omitempty"`
	ValidatedSafetySessionID string     `json:"validatedSafetySessionId,omitempty"`
	CreatedAt                time.Time  `json:"createdAt"`
	ExpiresAt                time.Time  `json:"expiresAt"`
	ClosedAt                 *time.Time `json:"closedAt,omitempty"`
}

// Closure is the terminal result written by a transition. Mode is empty
// for closures that never ran the checklist.
type Closure struct {
	Status          Status
	Issues          []Issue
	SafetyScore     int
	EndGatePassed   bool
	ClosedAt        time.Time
	Mode            string
	GatesFollowed   []string
	GatesSkipped    []string
	SafetySessionID string
}

// hasErrors reports whether any issue is an error.
func hasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}
