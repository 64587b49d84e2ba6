package safety

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/HendryAvila/safeguard/internal/attempts"
	"github.com/HendryAvila/safeguard/internal/session"
)

// LogAttempt records an attempt and reports whether it repeats a known
// failure. Alternatives are suggested whenever the attempt failed or
// matched an earlier failure.
func (s *Service) LogAttempt(_ context.Context, req LogAttemptRequest) (resp LogAttemptResponse, err error) {
	const call = session.CallLogAttempt
	defer s.track(call, timeNow(), &resp.Outcome, &err)
	if err := requireField(call, "sessionId", req.SessionID); err != nil {
		return LogAttemptResponse{}, err
	}

	in := attempts.NewAttempt{
		Issue:          req.Issue,
		Approach:       req.Approach,
		CodeOrCommand:  req.CodeOrCommand,
		Result:         attempts.Result(req.Result),
		ErrorMessage:   req.ErrorMessage,
		LessonsLearned: req.LessonsLearned,
	}
	if err := in.Validate(); err != nil {
		return LogAttemptResponse{}, malformed(string(call), "%s", err.Error())
	}

	var stored attempts.Attempt
	var check attempts.Check
	var alternatives []string
	_, err = s.mutate(req.SessionID, true, func(sess *session.Session) error {
		log := sess.AttemptLog()
		a, c, err := s.tracker.Record(log, in)
		if err != nil {
			return err
		}
		sess.SetAttemptLog(log)
		stored, check = a, c
		if c.AlreadyTried || a.Result == attempts.ResultFailure {
			alternatives = s.tracker.SuggestAlternatives(a.Issue, log.Entries())
		}
		session.Advance(call, &sess.Gates, true)
		return nil
	})
	if err != nil {
		return LogAttemptResponse{}, fmt.Errorf("safety: log attempt: %w", err)
	}

	resp = LogAttemptResponse{
		AttemptID:             stored.ID,
		WasAlreadyTried:       check.AlreadyTried,
		ShouldNotRetry:        stored.ShouldNotRetry,
		Recommendation:        check.Recommendation,
		PreviousAttempt:       check.Match,
		SuggestedAlternatives: nonNilStrings(alternatives),
	}
	if check.AlreadyTried {
		resp.Warning = check.Recommendation
	}
	s.metrics.Attempt(string(stored.Result), check.AlreadyTried)
	s.logger.Info("attempt logged",
		zap.String("session", req.SessionID),
		zap.String("attempt", stored.ID),
		zap.String("result", string(stored.Result)),
		zap.Bool("already_tried", check.AlreadyTried),
		zap.Bool("should_not_retry", stored.ShouldNotRetry),
	)
	return resp, nil
}
