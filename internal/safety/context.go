package safety

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/HendryAvila/safeguard/internal/attempts"
	"github.com/HendryAvila/safeguard/internal/ledger"
	"github.com/HendryAvila/safeguard/internal/session"
)

// LoadContext reads the project's decisions and attempts into the
// session, creating it on first use. Reading happens before the session
// lock is taken. A project without context files is not an error; the
// response says so and contextLoaded stays false.
func (s *Service) LoadContext(ctx context.Context, req LoadContextRequest) (resp LoadContextResponse, err error) {
	const call = session.CallLoadContext
	defer s.track(call, timeNow(), &resp.Outcome, &err)
	if err := requireField(call, "sessionId", req.SessionID); err != nil {
		return LoadContextResponse{}, err
	}

	projectPath := req.ProjectPath
	if projectPath == "" {
		projectPath = s.defaultProject
	}
	if projectPath == "" {
		wd, err := os.Getwd()
		if err != nil {
			return LoadContextResponse{}, fmt.Errorf("safety: working directory: %w", err)
		}
		projectPath = wd
	}

	loaded := s.loader.Load(ctx, projectPath)

	var decisionsAdded, attemptsAdded int
	st, err := s.mutate(req.SessionID, true, func(sess *session.Session) error {
		sess.ProjectPath = loaded.ProjectPath
		sess.ProjectHash = loaded.ProjectHash

		l := sess.Ledger()
		for _, d := range loaded.Decisions {
			if _, added, err := l.Append(d); err == nil && added {
				decisionsAdded++
			}
		}
		sess.SetLedger(l)

		log := sess.AttemptLog()
		for _, a := range loaded.Attempts {
			before := log.Len()
			if _, _, err := s.tracker.Record(log, a); err == nil && log.Len() > before {
				attemptsAdded++
			}
		}
		sess.SetAttemptLog(log)

		sess.Blockers = mergeBlockers(sess.Blockers, loaded.Blockers)
		session.Advance(call, &sess.Gates, loaded.Success)
		return nil
	})
	if err != nil {
		return LoadContextResponse{}, fmt.Errorf("safety: load context: %w", err)
	}

	resp = LoadContextResponse{
		SessionID:         req.SessionID,
		Context:           loaded,
		CriticalDecisions: nonNilDecisions(ledger.FromDecisions(st.Decisions).Enforced()),
		FailedApproaches:  nonNilAttempts(attempts.FromAttempts(st.Attempts).Failed()),
		ActiveBlockers:    activeBlockers(st.Blockers),
		DecisionsLoaded:   decisionsAdded,
		AttemptsLoaded:    attemptsAdded,
		NextAction:        session.NextAllowed(st.Gates),
	}
	if !loaded.Success {
		resp.Warning = "no project context could be read; continuing without prior decisions or attempts"
		s.logger.Warn("context load degraded",
			zap.String("session", req.SessionID),
			zap.String("project", loaded.ProjectPath),
			zap.Strings("errors", loaded.Errors),
		)
	}
	return resp, nil
}

// mergeBlockers adds new blockers and lets a reload update the status of
// known ones.
func mergeBlockers(have, loaded []attempts.Blocker) []attempts.Blocker {
	out := append([]attempts.Blocker(nil), have...)
	index := make(map[string]int, len(out))
	for i, b := range out {
		index[b.ID] = i
	}
	for _, b := range loaded {
		if i, ok := index[b.ID]; ok {
			out[i] = b
			continue
		}
		index[b.ID] = len(out)
		out = append(out, b)
	}
	return out
}

func activeBlockers(bs []attempts.Blocker) []attempts.Blocker {
	out := []attempts.Blocker{}
	for _, b := range bs {
		if b.Status != "resolved" {
			out = append(out, b)
		}
	}
	return out
}
