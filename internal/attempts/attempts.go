// Package attempts records what has been tried against an issue and
// refuses to let known-failed approaches be retried blindly.
//
// An attempt is keyed by a normalized signature of its issue and
// approach; near-duplicates are caught with a weighted token similarity.
package attempts

import (
	"fmt"
	"strings"
	"time"

	"github.com/HendryAvila/safeguard/internal/textmatch"
)

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// Result is the outcome of an attempt.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
	ResultPartial Result = "partial"
)

// ValidateResult returns an error if the result is not recognized.
func ValidateResult(r Result) error {
	switch r {
	case ResultSuccess, ResultFailure, ResultPartial:
		return nil
	}
	return fmt.Errorf("invalid result %q: must be one of: success, failure, partial", r)
}

// Attempt is one append-only record.
type Attempt struct {
	ID             string    `json:"id"`
	Issue          string    `json:"issue"`
	Approach       string    `json:"approach"`
	CodeOrCommand  string    `json:"codeOrCommand,omitempty"`
	Result         Result    `json:"result"`
	ErrorMessage   string    `json:"errorMessage,omitempty"`
	LessonsLearned string    `json:"lessonsLearned,omitempty"`
	ShouldNotRetry bool      `json:"shouldNotRetry"`
	Signature      string    `json:"signature"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewAttempt is the caller-supplied part of an Attempt.
type NewAttempt struct {
	// ID is optional; context-loaded attempts pass a deterministic one.
	ID             string
	Issue          string
	Approach       string
	CodeOrCommand  string
	Result         Result
	ErrorMessage   string
	LessonsLearned string
}

// Validate checks required fields.
func (n NewAttempt) Validate() error {
	if strings.TrimSpace(n.Issue) == "" {
		return fmt.Errorf("'issue' is required")
	}
	if strings.TrimSpace(n.Approach) == "" {
		return fmt.Errorf("'approach' is required")
	}
	return ValidateResult(n.Result)
}

// Blocker is an obstacle recorded alongside attempts.
type Blocker struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"` // active | resolved
}

// Signature returns "<issue tokens>|<approach tokens>" where each side is
// the sorted, de-duplicated, stop-word-free token set.
func Signature(issue, approach string) string {
	return strings.Join(textmatch.TokenSet(issue), " ") + "|" +
		strings.Join(textmatch.TokenSet(approach), " ")
}

func splitSignature(sig string) (issue, approach []string) {
	i, a, _ := strings.Cut(sig, "|")
	return strings.Fields(i), strings.Fields(a)
}
