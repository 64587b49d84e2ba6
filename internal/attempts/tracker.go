package attempts

import (
	"fmt"

	"github.com/HendryAvila/safeguard/internal/textmatch"
	"github.com/google/uuid"
)

// Default thresholds.
const (
	DefaultSimilarityThreshold = 0.7
	DefaultRetryFailureLimit   = 2

	issueWeight    = 0.4
	approachWeight = 0.6
)

// Similarity scores two signatures in [0,1].
type Similarity func(a, b string) float64

// WeightedJaccard compares the issue and approach halves of two signatures
// separately and blends them, weighting the approach higher: the same fix
// applied to a reworded issue is still a retry.
func WeightedJaccard(a, b string) float64 {
	if a == b {
		return 1
	}
	ai, aa := splitSignature(a)
	bi, ba := splitSignature(b)
	return issueWeight*textmatch.Jaccard(ai, bi) + approachWeight*textmatch.Jaccard(aa, ba)
}

// Options configures a Tracker. Zero values fall back to defaults.
type Options struct {
	SimilarityThreshold float64
	RetryFailureLimit   int
	Similarity          Similarity
}

// Tracker applies the retry rules. It holds no attempt data itself.
type Tracker struct {
	threshold  float64
	retryLimit int
	similarity Similarity
}

// NewTracker creates a Tracker.
func NewTracker(opts Options) *Tracker {
	t := &Tracker{
		threshold:  opts.SimilarityThreshold,
		retryLimit: opts.RetryFailureLimit,
		similarity: opts.Similarity,
	}
	if t.threshold <= 0 || t.threshold > 1 {
		t.threshold = DefaultSimilarityThreshold
	}
	if t.retryLimit <= 0 {
		t.retryLimit = DefaultRetryFailureLimit
	}
	if t.similarity == nil {
		t.similarity = WeightedJaccard
	}
	return t
}

// Check is the answer to "has this been tried?".
type Check struct {
	// AlreadyTried is true when the closest prior attempt failed.
	AlreadyTried   bool     `json:"alreadyTried"`
	Match          *Attempt `json:"match,omitempty"`
	Similarity     float64  `json:"similarity,omitempty"`
	Recommendation string   `json:"recommendation,omitempty"`
}

// HasBeenTried looks for an attempt with the same or a similar signature.
// The most similar attempt wins; on ties the most recent one does.
func (t *Tracker) HasBeenTried(issue, approach string, history []Attempt) Check {
	sig := Signature(issue, approach)

	best, bestScore := -1, 0.0
	for i, a := range history {
		score := t.similarity(sig, a.Signature)
		if score < t.threshold {
			continue
		}
		if best < 0 || score >= bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return Check{}
	}

	match := history[best]
	c := Check{Match: &match, Similarity: bestScore}
	switch match.Result {
	case ResultFailure:
		c.AlreadyTried = true
		c.Recommendation = fmt.Sprintf("avoid: %q was already tried for this issue and failed", match.Approach)
		if match.ErrorMessage != "" {
			c.Recommendation += " (" + match.ErrorMessage + ")"
		}
	case ResultPartial:
		c.Recommendation = fmt.Sprintf("%q partially worked before; build on it rather than starting over", match.Approach)
	default:
		c.Recommendation = fmt.Sprintf("%q worked before for a similar issue", match.Approach)
	}
	if match.LessonsLearned != "" {
		c.Recommendation += ". Lesson: " + match.LessonsLearned
	}
	return c
}

// Record validates in and appends it to log. The similarity check runs
// against the history as it was before the append. ShouldNotRetry is set
// on the new attempt once failures matching its signature, this one
// included, reach the retry limit.
func (t *Tracker) Record(log *Log, in NewAttempt) (Attempt, Check, error) {
	if err := in.Validate(); err != nil {
		return Attempt{}, Check{}, err
	}

	history := log.Entries()
	check := t.HasBeenTried(in.Issue, in.Approach, history)

	a := Attempt{
		ID:             in.ID,
		Issue:          in.Issue,
		Approach:       in.Approach,
		CodeOrCommand:  in.CodeOrCommand,
		Result:         in.Result,
		ErrorMessage:   in.ErrorMessage,
		LessonsLearned: in.LessonsLearned,
		Signature:      Signature(in.Issue, in.Approach),
		Timestamp:      timeNow().UTC(),
	}
	if a.ID == "" {
		a.ID = "att_" + uuid.NewString()
	}

	if a.Result == ResultFailure {
		failures := 1
		for _, h := range history {
			if h.Result == ResultFailure && t.similarity(a.Signature, h.Signature) >= t.threshold {
				failures++
			}
		}
		a.ShouldNotRetry = failures >= t.retryLimit
	}

	stored, _ := log.Append(a)
	return stored, check, nil
}

// Log is an append-only attempt history. Like the decision ledger it has
// no lock; the owning session serializes access.
type Log struct {
	entries []Attempt
}

// FromAttempts wraps a copy of as.
func FromAttempts(as []Attempt) *Log {
	return &Log{entries: append([]Attempt(nil), as...)}
}

// Append adds a. An ID already present is a no-op returning the stored
// attempt and false.
func (l *Log) Append(a Attempt) (Attempt, bool) {
	for _, e := range l.entries {
		if e.ID == a.ID {
			return e, false
		}
	}
	l.entries = append(l.entries, a)
	return a, true
}

// Entries returns a copy of the history in insertion order.
func (l *Log) Entries() []Attempt {
	return append([]Attempt(nil), l.entries...)
}

// Len returns the number of attempts.
func (l *Log) Len() int { return len(l.entries) }

// Failed returns the attempts whose result was failure.
func (l *Log) Failed() []Attempt {
	var out []Attempt
	for _, a := range l.entries {
		if a.Result == ResultFailure {
			out = append(out, a)
		}
	}
	return out
}
