package enforcement

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/HendryAvila/safeguard/internal/patterns"
)

// GateStatus is the subset of a safety session's gates that enhanced
// validation looks at.
type GateStatus struct {
	ContextLoaded   bool
	IntentClarified bool
	ScopeLocked     bool
}

// GateSource reports gates of a linked safety session.
type GateSource interface {
	SafetyGates(safetySessionID string) (GateStatus, bool)
}

// Options configures a Service.
type Options struct {
	TTL    time.Duration
	Index  *patterns.Index
	Gates  GateSource
	Logger *zap.Logger
}

// Service runs the two gates.
type Service struct {
	store  Store
	index  *patterns.Index
	gates  GateSource
	ttl    time.Duration
	logger *zap.Logger
}

// NewService creates a Service over store.
func NewService(store Store, opts Options) *Service {
	s := &Service{store: store, index: opts.Index, gates: opts.Gates, ttl: opts.TTL, logger: opts.Logger}
	if s.index == nil {
		s.index = patterns.Default()
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// NewToken returns "ses_" followed by 32 lowercase hex characters.
func NewToken() string {
	id := uuid.New()
	return "ses_" + hex.EncodeToString(id[:])
}

// DiscoverRequest opens a token.
type DiscoverRequest struct {
	Task            string
	Keywords        []string
	Files           []string
	TeamID          string
	SafetySessionID string
}

// DiscoverResult is returned by Discover.
type DiscoverResult struct {
	SessionToken       string                `json:"sessionToken"`
	Patterns           []string              `json:"patterns"`
	Keywords           []string              `json:"keywords"`
	HasExactMatch      bool                  `json:"hasExactMatch"`
	RelatedSuggestions []patterns.Suggestion `json:"relatedSuggestions,omitempty"`
	ExpiresAt          time.Time             `json:"expiresAt"`
}

// Discover resolves the task to guidance modules and persists an active
// token with the start gate passed.
func (s *Service) Discover(ctx context.Context, req DiscoverRequest) (DiscoverResult, error) {
	if strings.TrimSpace(req.Task) == "" {
		return DiscoverResult{}, fmt.Errorf("'task' is required")
	}

	d := s.index.Discover(req.Task, req.Keywords)
	now := timeNow().UTC()
	sess := &Session{
		Token:            NewToken(),
		TeamID:           req.TeamID,
		Task:             req.Task,
		PlannedFiles:     append([]string{}, req.Files...),
		Keywords:         append([]string{}, d.Keywords...),
		PatternsReturned: append([]string{}, d.Patterns...),
		SafetySessionID:  req.SafetySessionID,
		StartGatePassed:  true,
		Status:           StatusActive,
		Issues:           []Issue{},
		CreatedAt:        now,
		ExpiresAt:        now.Add(s.ttl),
	}
	if err := s.store.Create(ctx, sess); err != nil {
		return DiscoverResult{}, err
	}

	s.logger.Info("enforcement session opened",
		zap.String("token", sess.Token),
		zap.String("team", sess.TeamID),
		zap.Strings("patterns", sess.PatternsReturned),
		zap.Bool("exact_match", d.HasExactMatch),
	)

	return DiscoverResult{
		SessionToken:       sess.Token,
		Patterns:           d.Patterns,
		Keywords:           d.Keywords,
		HasExactMatch:      d.HasExactMatch,
		RelatedSuggestions: d.RelatedSuggestions,
		ExpiresAt:          sess.ExpiresAt,
	}, nil
}

// Evidence is what the agent reports when closing a token.
type Evidence struct {
	SessionToken string
	FeatureName  string
	TestsRun     bool
	TestsPassed  bool
	// TypescriptPassed is nil when no build/type check was reported.
	TypescriptPassed *bool
	// TestsWritten is nil when not reported; TestsRun stands in for it.
	TestsWritten *bool
	// SafetySessionID switches on enhanced mode.
	SafetySessionID string
}

// Mode of a validation.
const (
	ModeBasic    = "basic"
	ModeEnhanced = "enhanced"
)

// Result is the outcome of Validate.
type Result struct {
	Passed              bool     `json:"passed"`
	Status              Status   `json:"status,omitempty"`
	Issues              []Issue  `json:"issues"`
	SafetyScore         int      `json:"safetyScore"`
	Mode                string   `json:"mode"`
	SafetyGatesFollowed []string `json:"safetyGatesFollowed,omitempty"`
	SafetyGatesSkipped  []string `json:"safetyGatesSkipped,omitempty"`
	// AlreadyValidated is true when the recorded result was returned.
	AlreadyValidated bool `json:"alreadyValidated,omitempty"`
	// SafetySessionID is the safety session an enhanced validation read.
	SafetySessionID string `json:"safetySessionId,omitempty"`
}

// Validate closes the token named by ev. Policy outcomes, including an
// unknown or expired token, are results; only store failures are errors.
func (s *Service) Validate(ctx context.Context, ev Evidence) (Result, error) {
	sess, err := s.store.Get(ctx, ev.SessionToken)
	if errors.Is(err, ErrNotFound) {
		s.logger.Info("validation for unknown token", zap.String("token", ev.SessionToken))
		return Result{
			Passed: false,
			Issues: []Issue{{
				Code:     CodeSessionNotFound,
				Severity: SeverityError,
				Message:  "no enforcement session for this token; call discover_patterns before implementing",
			}},
			Mode:               ModeBasic,
			SafetyGatesSkipped: []string{"discover_patterns"},
		}, nil
	}
	if err != nil {
		return Result{}, err
	}

	if sess.Status.Terminal() {
		return recorded(sess), nil
	}

	now := timeNow().UTC()
	if now.After(sess.ExpiresAt) {
		return s.close(ctx, sess, expiredClosure(now))
	}

	issues, score, mode, followed, skipped := s.checklist(sess, ev)
	passed := !hasErrors(issues)
	status := StatusCompleted
	if !passed {
		status = StatusFailed
	}

	c := Closure{
		Status:        status,
		Issues:        issues,
		SafetyScore:   score,
		EndGatePassed: passed,
		ClosedAt:      now,
		Mode:          mode,
		GatesFollowed: followed,
		GatesSkipped:  skipped,
	}
	if mode == ModeEnhanced {
		c.SafetySessionID = linkedSafetyID(sess, ev)
	}
	res, err := s.close(ctx, sess, c)
	if err != nil || res.AlreadyValidated {
		return res, err
	}

	s.logger.Info("enforcement session validated",
		zap.String("token", sess.Token),
		zap.String("feature", ev.FeatureName),
		zap.Bool("passed", passed),
		zap.Int("issues", len(issues)),
		zap.Int("safety_score", score),
		zap.String("mode", mode),
	)
	return res, nil
}

// close writes c if the session is still active. When another caller
// closed it first, the recorded result is returned instead.
func (s *Service) close(ctx context.Context, sess *Session, c Closure) (Result, error) {
	won, err := s.store.Transition(ctx, sess.Token, c)
	if err != nil {
		return Result{}, err
	}
	if !won {
		latest, err := s.store.Get(ctx, sess.Token)
		if err != nil {
			return Result{}, err
		}
		return recorded(latest), nil
	}
	return Result{
		Passed:              c.Status == StatusCompleted,
		Status:              c.Status,
		Issues:              append([]Issue{}, c.Issues...),
		SafetyScore:         c.SafetyScore,
		Mode:                modeOrBasic(c.Mode),
		SafetyGatesFollowed: c.GatesFollowed,
		SafetyGatesSkipped:  c.GatesSkipped,
		SafetySessionID:     c.SafetySessionID,
	}, nil
}

func recorded(sess *Session) Result {
	return Result{
		Passed:              sess.Status == StatusCompleted,
		Status:              sess.Status,
		Issues:              append([]Issue{}, sess.Issues...),
		SafetyScore:         sess.SafetyScore,
		Mode:                modeOrBasic(sess.Mode),
		SafetyGatesFollowed: sess.GatesFollowed,
		SafetyGatesSkipped:  sess.GatesSkipped,
		AlreadyValidated:    true,
		SafetySessionID:     sess.ValidatedSafetySessionID,
	}
}

func modeOrBasic(mode string) string {
	if mode == "" {
		return ModeBasic
	}
	return mode
}

// linkedSafetyID prefers the evidence's safety session over the one the
// token was opened with.
func linkedSafetyID(sess *Session, ev Evidence) string {
	if ev.SafetySessionID != "" {
		return ev.SafetySessionID
	}
	return sess.SafetySessionID
}

func (s *Service) checklist(sess *Session, ev Evidence) (issues []Issue, score int, mode string, followed, skipped []string) {
	issues = []Issue{}
	if !sess.StartGatePassed {
		issues = append(issues, Issue{CodeDiscoverPatternsSkipped, SeverityError,
			"discover_patterns was not called for this session"})
	}
	if !ev.TestsRun {
		issues = append(issues, Issue{CodeTestsNotRun, SeverityError, "tests were not run"})
	} else if !ev.TestsPassed {
		issues = append(issues, Issue{CodeTestsFailed, SeverityError, "tests failed"})
	}
	if ev.TypescriptPassed != nil && !*ev.TypescriptPassed {
		issues = append(issues, Issue{CodeTypescriptFailed, SeverityError, "type check or build failed"})
	}
	written := ev.TestsRun
	if ev.TestsWritten != nil {
		written = *ev.TestsWritten
	}
	if !written {
		issues = append(issues, Issue{CodeTestsNotWritten, SeverityWarning, "no tests were written for this change"})
	}

	safetyID := linkedSafetyID(sess, ev)
	if safetyID == "" {
		if sess.StartGatePassed {
			score = 100
		}
		return issues, score, ModeBasic, nil, nil
	}

	var g GateStatus
	if s.gates != nil {
		g, _ = s.gates.SafetyGates(safetyID)
	}
	checks := []struct {
		name   string
		ok     bool
		code   string
		reason string
	}{
		{"discover_patterns", sess.StartGatePassed, "", ""},
		{"load_context", g.ContextLoaded, CodeContextNotLoaded, "project context was not loaded"},
		{"clarify_intent", g.IntentClarified, CodeIntentNotClarified, "intent was not clarified"},
		{"define_scope", g.ScopeLocked, CodeScopeNotLocked, "no scope lock was defined"},
	}
	for _, c := range checks {
		if c.ok {
			score += 25
			followed = append(followed, c.name)
			continue
		}
		skipped = append(skipped, c.name)
		if c.code != "" {
			issues = append(issues, Issue{c.code, SeverityWarning, c.reason})
		}
	}
	return issues, score, ModeEnhanced, followed, skipped
}
