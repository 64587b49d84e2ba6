package safety

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/HendryAvila/safeguard/internal/intent"
	"github.com/HendryAvila/safeguard/internal/session"
)

// ClarifyIntent scores the request and starts a new clarification loop,
// replacing any earlier one. intentClarified follows readyToProceed.
func (s *Service) ClarifyIntent(_ context.Context, req ClarifyIntentRequest) (resp ClarifyIntentResponse, err error) {
	const call = session.CallClarifyIntent
	defer s.track(call, timeNow(), &resp.Outcome, &err)
	if err := requireField(call, "sessionId", req.SessionID); err != nil {
		return ClarifyIntentResponse{}, err
	}
	if err := requireField(call, "userRequest", req.UserRequest); err != nil {
		return ClarifyIntentResponse{}, err
	}

	var warning string
	var analysis intent.Analysis
	st, err := s.mutate(req.SessionID, true, func(sess *session.Session) error {
		warning, _ = session.Check(call, sess)
		analysis = s.clarifier.Analyze(req.UserRequest)
		stored := analysis.Clone()
		sess.Intent = &stored
		session.Advance(call, &sess.Gates, analysis.ReadyToProceed)
		return nil
	})
	if err != nil {
		return ClarifyIntentResponse{}, fmt.Errorf("safety: clarify intent: %w", err)
	}

	s.logger.Info("intent analyzed",
		zap.String("session", req.SessionID),
		zap.Int("confidence", analysis.OverallConfidence),
		zap.Int("questions", len(analysis.Questions)),
		zap.Bool("ready", analysis.ReadyToProceed),
	)
	return ClarifyIntentResponse{
		Outcome:    Outcome{Warning: warning},
		Analysis:   analysis,
		NextAction: session.NextAllowed(st.Gates),
	}, nil
}

// AnswerClarification applies one answer. Without a prior clarify_intent
// the call is refused with a gate violation; an unknown question id is
// malformed input.
func (s *Service) AnswerClarification(_ context.Context, req AnswerClarificationRequest) (resp AnswerClarificationResponse, err error) {
	const call = session.CallAnswerClarification
	defer s.track(call, timeNow(), &resp.Outcome, &err)
	if err := requireField(call, "sessionId", req.SessionID); err != nil {
		return AnswerClarificationResponse{}, err
	}
	if err := requireField(call, "questionId", req.QuestionID); err != nil {
		return AnswerClarificationResponse{}, err
	}

	st, err := s.sessions.Update(req.SessionID, func(sess *session.Session) error {
		if _, err := session.Check(call, sess); err != nil {
			return err
		}
		next, err := s.clarifier.Answer(*sess.Intent, req.QuestionID, req.Answer)
		if err != nil {
			return err
		}
		sess.Intent = &next
		session.Advance(call, &sess.Gates, next.ReadyToProceed)
		return nil
	})

	switch {
	case errors.Is(err, session.ErrNotFound):
		_, gerr := session.Check(call, nil)
		o, _ := gateBlock(gerr)
		return AnswerClarificationResponse{Outcome: o, RemainingQuestions: []intent.Question{}}, nil
	case errors.Is(err, intent.ErrUnknownQuestion):
		return AnswerClarificationResponse{}, malformed(string(call), "unknown questionId %q", req.QuestionID)
	case errors.Is(err, intent.ErrExhausted):
		resp = answerResponse(st)
		resp.Outcome = Outcome{
			Blocked: true,
			Code:    CodeGateViolation,
			Reason:  "clarification rounds are exhausted; call clarify_intent with a more detailed request",
		}
		return resp, nil
	case err != nil:
		if o, ok := gateBlock(err); ok {
			resp = answerResponse(st)
			resp.Outcome = o
			return resp, nil
		}
		return AnswerClarificationResponse{}, fmt.Errorf("safety: answer clarification: %w", err)
	}

	resp = answerResponse(st)
	if st.Intent != nil && st.Intent.Exhausted && !st.Intent.ReadyToProceed {
		resp.Warning = "maximum clarification rounds reached; proceed with the remaining uncertainty stated in define_scope"
	}
	return resp, nil
}

func answerResponse(st *session.Session) AnswerClarificationResponse {
	resp := AnswerClarificationResponse{RemainingQuestions: []intent.Question{}}
	if st == nil {
		return resp
	}
	resp.NextAction = session.NextAllowed(st.Gates)
	if st.Intent == nil {
		return resp
	}
	a := st.Intent
	resp.ReadyToProceed = a.ReadyToProceed
	resp.RemainingQuestions = append(resp.RemainingQuestions, a.Questions...)
	resp.OverallConfidence = a.OverallConfidence
	resp.Scores = a.Scores
	resp.Round = a.Round
	resp.Exhausted = a.Exhausted
	return resp
}
