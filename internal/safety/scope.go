package safety

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/HendryAvila/safeguard/internal/ledger"
	"github.com/HendryAvila/safeguard/internal/scope"
	"github.com/HendryAvila/safeguard/internal/session"
)

// DefineScope locks the session to the directories and actions the
// request implies. A new lock replaces the old one but keeps its
// violations, so the session's violation list only grows.
func (s *Service) DefineScope(_ context.Context, req DefineScopeRequest) (resp DefineScopeResponse, err error) {
	const call = session.CallDefineScope
	defer s.track(call, timeNow(), &resp.Outcome, &err)
	if err := requireField(call, "sessionId", req.SessionID); err != nil {
		return DefineScopeResponse{}, err
	}

	overrides := scope.Overrides{
		AllowedDirectories: req.AllowedDirectories,
		ForbiddenFiles:     req.ForbiddenFiles,
	}
	for _, a := range req.AllowedActions {
		overrides.AllowedActions = append(overrides.AllowedActions, scope.Action(a))
	}
	lock, err := s.scope.Create(req.UserRequest, overrides)
	if err != nil {
		return DefineScopeResponse{}, malformed(string(call), "%s", err.Error())
	}

	var warning string
	st, err := s.mutate(req.SessionID, true, func(sess *session.Session) error {
		warning, _ = session.Check(call, sess)
		if sess.ScopeLock != nil {
			lock.Violations = append(sess.ScopeLock.Violations, lock.Violations...)
		}
		sess.ScopeLock = lock
		session.Advance(call, &sess.Gates, true)
		return nil
	})
	if err != nil {
		return DefineScopeResponse{}, fmt.Errorf("safety: define scope: %w", err)
	}

	s.logger.Info("scope locked",
		zap.String("session", req.SessionID),
		zap.String("scope_lock", lock.ID),
		zap.Strings("directories", lock.AllowedDirectories),
	)
	return DefineScopeResponse{
		Outcome:     Outcome{Warning: warning},
		ScopeLockID: lock.ID,
		Summary:     scopeSummary(st.ScopeLock),
		ScopeLock:   st.ScopeLock,
	}, nil
}

func scopeSummary(l *scope.Lock) string {
	if l == nil {
		return ""
	}
	dirs := "any directory"
	if len(l.AllowedDirectories) > 0 {
		dirs = strings.Join(l.AllowedDirectories, ", ")
	}
	actions := make([]string, len(l.AllowedActions))
	for i, a := range l.AllowedActions {
		actions[i] = string(a)
	}
	return fmt.Sprintf("Changes limited to %s. Allowed actions: %s. %d forbidden file patterns.",
		dirs, strings.Join(actions, ", "), len(l.ForbiddenFiles))
}

// CheckAction decides whether a proposed action may go ahead. The target
// file is checked against the scope lock; the action text is checked
// against the session's enforced decisions. Without a lock the action is
// allowed with a warning. A critical contradiction blocks; a high one
// warns.
func (s *Service) CheckAction(_ context.Context, req CheckActionRequest) (resp CheckActionResponse, err error) {
	const call = session.CallCheckAction
	defer s.track(call, timeNow(), &resp.Outcome, &err)
	if err := requireField(call, "sessionId", req.SessionID); err != nil {
		return CheckActionResponse{}, err
	}
	if strings.TrimSpace(req.Action) == "" && req.ActionType == "" {
		return CheckActionResponse{}, malformed(string(call), "'action' or 'actionType' is required")
	}
	actionType := scope.Action(req.ActionType)
	if req.ActionType != "" {
		if err := scope.ValidateAction(actionType); err != nil {
			return CheckActionResponse{}, malformed(string(call), "%s", err.Error())
		}
	}

	var decision scope.Decision
	var contradiction *ledger.Contradiction
	_, err = s.mutate(req.SessionID, true, func(sess *session.Session) error {
		decision = scope.Check(sess.ScopeLock, scope.Request{Type: actionType, TargetFile: req.TargetFile})

		if text := strings.TrimSpace(req.Action); text != "" {
			contradiction = s.detector.Check(text, sess.Decisions)
			recordContradiction(sess, contradiction)
		}

		allowed := decision.Allowed && !blocksOn(contradiction)
		session.Advance(call, &sess.Gates, allowed && actionType.WritesFile())
		return nil
	})
	if err != nil {
		return CheckActionResponse{}, fmt.Errorf("safety: check action: %w", err)
	}

	resp = CheckActionResponse{
		Allowed:       true,
		Violation:     decision.Violation,
		Contradiction: contradiction,
	}
	resp.Warning = decision.Warning
	switch {
	case !decision.Allowed:
		resp.Allowed = false
		resp.Blocked = true
		resp.Code = CodeScopeViolation
		resp.Reason = decision.Reason
		s.metrics.ScopeViolation()
		s.logger.Info("action blocked by scope",
			zap.String("session", req.SessionID),
			zap.String("action_type", req.ActionType),
			zap.String("target", req.TargetFile),
			zap.String("reason", decision.Reason),
		)
	case blocksOn(contradiction):
		resp.Allowed = false
		resp.Blocked = true
		resp.Code = CodeContradiction
		resp.Reason = contradiction.Explanation
	}
	if contradiction != nil {
		s.metrics.Contradiction(string(contradiction.Severity))
		s.logger.Info("action contradicts a decision",
			zap.String("session", req.SessionID),
			zap.String("decision", contradiction.DecisionID),
			zap.String("severity", string(contradiction.Severity)),
		)
		if !blocksOn(contradiction) {
			resp.Warning = joinWarnings(resp.Warning, contradiction.Explanation)
		}
	}
	return resp, nil
}

// blocksOn reports whether a contradiction stops an action.
func blocksOn(c *ledger.Contradiction) bool {
	return c != nil && c.Severity == ledger.ImpactCritical
}
