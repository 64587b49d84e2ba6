// Package safety is the gate orchestrator. It is the one place that
// turns an agent's call into work on the session store, the context
// loader, the clarifier, the scope engine, the decision ledger, the
// attempt tracker and the enforcement token service.
//
// Policy outcomes (blocked actions, contradictions, expired tokens,
// failed validations) are returned as responses. Only malformed input
// and infrastructure failures are errors.
package safety

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/HendryAvila/safeguard/internal/attempts"
	"github.com/HendryAvila/safeguard/internal/contextload"
	"github.com/HendryAvila/safeguard/internal/enforcement"
	"github.com/HendryAvila/safeguard/internal/intent"
	"github.com/HendryAvila/safeguard/internal/ledger"
	"github.com/HendryAvila/safeguard/internal/patterns"
	"github.com/HendryAvila/safeguard/internal/schema"
	"github.com/HendryAvila/safeguard/internal/scope"
	"github.com/HendryAvila/safeguard/internal/session"
	"github.com/HendryAvila/safeguard/internal/telemetry"
)

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// Options wires a Service. Zero values fall back to in-memory stores and
// built-in defaults.
type Options struct {
	Sessions session.Store
	Tokens   enforcement.Store
	Index    *patterns.Index
	// Dictionary replaces the default contradiction vocabulary.
	Dictionary ledger.Matcher

	Context  contextload.Options
	Intent   intent.Options
	Attempts attempts.Options
	TokenTTL time.Duration
	// DefaultProjectPath is used when load_context names no project.
	DefaultProjectPath string

	Metrics *telemetry.Metrics
	Logger  *zap.Logger
}

// Service runs safety calls.
type Service struct {
	sessions       session.Store
	loader         *contextload.Loader
	clarifier      *intent.Clarifier
	scope          *scope.Engine
	detector       *ledger.Detector
	tracker        *attempts.Tracker
	tokens         *enforcement.Service
	validator      *schema.Validator
	defaultProject string
	metrics        *telemetry.Metrics
	logger         *zap.Logger
}

// New creates a Service.
func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sessions := opts.Sessions
	if sessions == nil {
		sessions = session.NewMemoryStore()
	}
	tokens := opts.Tokens
	if tokens == nil {
		tokens = enforcement.NewMemoryStore()
	}
	index := opts.Index
	if index == nil {
		index = patterns.Default()
	}

	s := &Service{
		sessions:       sessions,
		loader:         contextload.NewLoader(opts.Context, logger.Named("context")),
		clarifier:      intent.NewClarifier(opts.Intent),
		scope:          scope.NewEngine(index),
		detector:       ledger.NewDetector(opts.Dictionary),
		tracker:        attempts.NewTracker(opts.Attempts),
		validator:      schema.MustNew(),
		defaultProject: opts.DefaultProjectPath,
		metrics:        opts.Metrics,
		logger:         logger,
	}
	s.tokens = enforcement.NewService(tokens, enforcement.Options{
		TTL:    opts.TokenTTL,
		Index:  index,
		Gates:  s,
		Logger: logger.Named("enforcement"),
	})
	return s
}

// Enforcement returns the token service, for the background sweeper.
func (s *Service) Enforcement() *enforcement.Service { return s.tokens }

// Validator returns the argument schemas.
func (s *Service) Validator() *schema.Validator { return s.validator }

// Sessions returns the session store.
func (s *Service) Sessions() session.Store { return s.sessions }

var _ enforcement.GateSource = (*Service)(nil)

// SafetyGates implements enforcement.GateSource.
func (s *Service) SafetyGates(id string) (enforcement.GateStatus, bool) {
	sess, ok := s.sessions.Get(id)
	if !ok {
		return enforcement.GateStatus{}, false
	}
	return enforcement.GateStatus{
		ContextLoaded:   sess.Gates.ContextLoaded,
		IntentClarified: sess.Gates.IntentClarified,
		ScopeLocked:     sess.Gates.ScopeLocked,
	}, true
}

// mutate runs fn under the session's lock, creating the session first
// when create is set.
func (s *Service) mutate(id string, create bool, fn func(*session.Session) error) (*session.Session, error) {
	if create {
		_, created, err := s.sessions.Create(id)
		if err != nil {
			return nil, err
		}
		if created {
			s.logger.Debug("safety session created", zap.String("session", id))
			s.metrics.SetActiveSessions(s.sessions.Len())
		}
	}
	return s.sessions.Update(id, fn)
}

// track records the call's metrics once it returns.
func (s *Service) track(call session.Call, start time.Time, o *Outcome, err *error) {
	outcome := telemetry.OutcomeOK
	switch {
	case err != nil && *err != nil && IsMalformed(*err):
		outcome = telemetry.OutcomeInvalid
	case err != nil && *err != nil:
		outcome = telemetry.OutcomeError
	case o != nil && o.Blocked:
		outcome = telemetry.OutcomeBlocked
	}
	s.metrics.ObserveCall(string(call), outcome, timeNow().Sub(start))
}

func requireField(call session.Call, name, value string) error {
	if strings.TrimSpace(value) == "" {
		return malformed(string(call), "'%s' is required", name)
	}
	return nil
}

// gateBlock turns a hard gate miss into a blocked outcome.
func gateBlock(err error) (Outcome, bool) {
	var gv *session.GateViolation
	if errors.As(err, &gv) {
		return Outcome{Blocked: true, Code: CodeGateViolation, Reason: gv.Error()}, true
	}
	return Outcome{}, false
}

func nonNilDecisions(ds []ledger.Decision) []ledger.Decision {
	if ds == nil {
		return []ledger.Decision{}
	}
	return ds
}

func nonNilAttempts(as []attempts.Attempt) []attempts.Attempt {
	if as == nil {
		return []attempts.Attempt{}
	}
	return as
}

func nonNilStrings(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}

func joinWarnings(ws ...string) string {
	var out []string
	for _, w := range ws {
		if w != "" {
			out = append(out, w)
		}
	}
	return strings.Join(out, "; ")
}

// recordContradiction stamps c and appends it to the session.
func recordContradiction(sess *session.Session, c *ledger.Contradiction) {
	if c == nil {
		return
	}
	c.DetectedAt = timeNow().UTC()
	sess.Contradictions = append(sess.Contradictions, *c)
}

// GetStatus reports a session's gates. A missing session is not an
// error: every gate is false and the next action is load_context.
func (s *Service) GetStatus(_ context.Context, req StatusRequest) (resp StatusResponse, err error) {
	defer s.track(session.CallGetStatus, timeNow(), nil, &err)
	if err := requireField(session.CallGetStatus, "sessionId", req.SessionID); err != nil {
		return StatusResponse{}, err
	}

	resp = StatusResponse{
		SessionID:  req.SessionID,
		NextAction: session.NextAllowed(session.Gates{}),
		Violations: []scope.Violation{},
	}
	sess, ok := s.sessions.Get(req.SessionID)
	if !ok {
		return resp, nil
	}

	resp.Exists = true
	resp.ProjectHash = sess.ProjectHash
	resp.Gates = sess.Gates
	resp.NextAction = session.NextAllowed(sess.Gates)
	resp.SafetyScore = session.SafetyScore(sess.Gates)
	resp.Violations = sess.Violations()
	resp.ContradictionsFound = len(sess.Contradictions)
	resp.AttemptsLogged = len(sess.Attempts)
	resp.DecisionsLogged = len(sess.Decisions)
	if sess.ScopeLock != nil {
		resp.ScopeLockID = sess.ScopeLock.ID
	}
	if sess.Intent != nil {
		resp.PendingQuestions = len(sess.Intent.Questions)
	}
	updated := sess.UpdatedAt
	resp.UpdatedAt = &updated
	return resp, nil
}

// ResetSession evicts the session. It is the only way gates go back to
// false.
func (s *Service) ResetSession(_ context.Context, req ResetSessionRequest) (resp ResetSessionResponse, err error) {
	defer s.track(session.CallResetSession, timeNow(), nil, &err)
	if err := requireField(session.CallResetSession, "sessionId", req.SessionID); err != nil {
		return ResetSessionResponse{}, err
	}
	reset := s.sessions.Evict(req.SessionID)
	if reset {
		s.metrics.SetActiveSessions(s.sessions.Len())
		s.logger.Info("safety session reset", zap.String("session", req.SessionID))
	}
	return ResetSessionResponse{SessionID: req.SessionID, Reset: reset}, nil
}
