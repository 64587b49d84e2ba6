package safety

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/HendryAvila/safeguard/internal/ledger"
	"github.com/HendryAvila/safeguard/internal/session"
)

// CheckContradiction tests proposed work against the session's high and
// critical decisions.
func (s *Service) CheckContradiction(_ context.Context, req CheckContradictionRequest) (resp CheckContradictionResponse, err error) {
	const call = session.CallCheckContradiction
	defer s.track(call, timeNow(), &resp.Outcome, &err)
	if err := requireField(call, "sessionId", req.SessionID); err != nil {
		return CheckContradictionResponse{}, err
	}
	if err := requireField(call, "action", req.Action); err != nil {
		return CheckContradictionResponse{}, err
	}

	var warning string
	var all []ledger.Contradiction
	var worst *ledger.Contradiction
	var checked int
	_, err = s.mutate(req.SessionID, true, func(sess *session.Session) error {
		warning, _ = session.Check(call, sess)
		checked = len(ledger.FromDecisions(sess.Decisions).Enforced())
		all = s.detector.CheckAll(req.Action, sess.Decisions)
		worst = s.detector.Check(req.Action, sess.Decisions)
		recordContradiction(sess, worst)
		session.Advance(call, &sess.Gates, true)
		return nil
	})
	if err != nil {
		return CheckContradictionResponse{}, fmt.Errorf("safety: check contradiction: %w", err)
	}

	resp = CheckContradictionResponse{
		HasContradiction:  worst != nil,
		Contradiction:     worst,
		AllContradictions: all,
		DecisionsChecked:  checked,
	}
	resp.Warning = warning
	if worst != nil {
		resp.Code = CodeContradiction
		resp.Reason = worst.Explanation
		s.metrics.Contradiction(string(worst.Severity))
		s.logger.Info("contradiction detected",
			zap.String("session", req.SessionID),
			zap.String("decision", worst.DecisionID),
			zap.String("subject", worst.Subject),
			zap.String("severity", string(worst.Severity)),
		)
	}
	return resp, nil
}

// LogDecision appends a decision to the session ledger. The new decision
// is first checked against the existing enforced ones; a contradiction is
// reported but the decision is still recorded, since the user may be
// deliberately superseding an earlier choice.
func (s *Service) LogDecision(_ context.Context, req LogDecisionRequest) (resp LogDecisionResponse, err error) {
	const call = session.CallLogDecision
	defer s.track(call, timeNow(), &resp.Outcome, &err)
	if err := requireField(call, "sessionId", req.SessionID); err != nil {
		return LogDecisionResponse{}, err
	}

	in := ledger.NewDecision{
		Decision:               strings.TrimSpace(req.Decision),
		Category:               ledger.Category(req.Category),
		Reasoning:              req.Reasoning,
		AlternativesConsidered: req.AlternativesConsidered,
		Impact:                 ledger.Impact(req.Impact),
		Reversible:             req.Reversible,
		MadeBy:                 ledger.MadeBy(req.MadeBy),
		UserApproved:           req.UserApproved,
	}
	if err := in.Validate(); err != nil {
		return LogDecisionResponse{}, malformed(string(call), "%s", err.Error())
	}

	var stored ledger.Decision
	var contradiction *ledger.Contradiction
	_, err = s.mutate(req.SessionID, true, func(sess *session.Session) error {
		contradiction = s.detector.Check(in.Decision, sess.Decisions)
		recordContradiction(sess, contradiction)

		l := sess.Ledger()
		d, _, err := l.Append(in)
		if err != nil {
			return err
		}
		sess.SetLedger(l)
		stored = d
		session.Advance(call, &sess.Gates, true)
		return nil
	})
	if err != nil {
		return LogDecisionResponse{}, fmt.Errorf("safety: log decision: %w", err)
	}

	resp = LogDecisionResponse{
		DecisionID:       stored.ID,
		HasContradiction: contradiction != nil,
		Contradiction:    contradiction,
		Decision:         stored,
	}
	if contradiction != nil {
		resp.Code = CodeContradiction
		resp.Warning = contradiction.Explanation
		s.metrics.Contradiction(string(contradiction.Severity))
	}
	s.logger.Info("decision logged",
		zap.String("session", req.SessionID),
		zap.String("decision", stored.ID),
		zap.String("impact", string(stored.Impact)),
		zap.Bool("contradiction", contradiction != nil),
	)
	return resp, nil
}
