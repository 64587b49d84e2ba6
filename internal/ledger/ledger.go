package ledger

import (
	"time"

	"github.com/google/uuid"
)

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// Ledger is an append-only decision log. It is a plain value with no
// locking of its own; the owning session serializes access.
type Ledger struct {
	entries []Decision
}

// FromDecisions wraps an existing slice. The slice is copied.
func FromDecisions(ds []Decision) *Ledger {
	return &Ledger{entries: append([]Decision(nil), ds...)}
}

// Append validates and inserts a decision, assigning ID and timestamp
// when missing. Appending an ID that already exists returns the stored
// entry unchanged and false.
func (l *Ledger) Append(in NewDecision) (Decision, bool, error) {
	if err := in.Validate(); err != nil {
		return Decision{}, false, err
	}

	if in.ID != "" {
		for _, d := range l.entries {
			if d.ID == in.ID {
				return d, false, nil
			}
		}
	}

	d := Decision{
		ID:                     in.ID,
		Timestamp:              in.Timestamp,
		Decision:               in.Decision,
		Category:               in.Category,
		Reasoning:              in.Reasoning,
		AlternativesConsidered: append([]string{}, in.AlternativesConsidered...),
		Impact:                 in.Impact,
		Reversible:             in.Reversible,
		MadeBy:                 in.MadeBy,
		UserApproved:           in.UserApproved,
	}
	if d.ID == "" {
		d.ID = "dec_" + uuid.NewString()
	}
	if d.Timestamp.IsZero() {
		d.Timestamp = timeNow().UTC()
	}
	if d.MadeBy == "" {
		d.MadeBy = MadeByAI
	}

	l.entries = append(l.entries, d)
	return d, true, nil
}

// Entries returns a copy of the log in insertion order.
func (l *Ledger) Entries() []Decision {
	return append([]Decision(nil), l.entries...)
}

// Len returns the number of decisions.
func (l *Ledger) Len() int { return len(l.entries) }

// Enforced returns the high and critical decisions.
func (l *Ledger) Enforced() []Decision {
	var out []Decision
	for _, d := range l.entries {
		if d.Impact.Enforced() {
			out = append(out, d)
		}
	}
	return out
}
