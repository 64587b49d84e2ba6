package safety

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/HendryAvila/safeguard/internal/enforcement"
	"github.com/HendryAvila/safeguard/internal/session"
)

// DiscoverPatterns opens an enforcement token for a task. When the call
// names a safety session, the token is linked to it and patternsLoaded is
// set on that session.
func (s *Service) DiscoverPatterns(ctx context.Context, req DiscoverPatternsRequest) (resp DiscoverPatternsResponse, err error) {
	const call = session.CallDiscoverPatterns
	defer s.track(call, timeNow(), &resp.Outcome, &err)
	if err := requireField(call, "task", req.Task); err != nil {
		return DiscoverPatternsResponse{}, err
	}

	res, err := s.tokens.Discover(ctx, enforcement.DiscoverRequest{
		Task:            req.Task,
		Keywords:        req.Keywords,
		Files:           req.Files,
		TeamID:          req.TeamID,
		SafetySessionID: strings.TrimSpace(req.SessionID),
	})
	if err != nil {
		return DiscoverPatternsResponse{}, fmt.Errorf("safety: discover patterns: %w", err)
	}
	s.metrics.TokenOpened()

	if id := strings.TrimSpace(req.SessionID); id != "" {
		if _, err := s.mutate(id, true, func(sess *session.Session) error {
			session.Advance(call, &sess.Gates, true)
			return nil
		}); err != nil {
			return DiscoverPatternsResponse{}, fmt.Errorf("safety: discover patterns: %w", err)
		}
	}

	return DiscoverPatternsResponse{
		SessionToken:       res.SessionToken,
		Patterns:           res.Patterns,
		Keywords:           nonNilStrings(res.Keywords),
		HasExactMatch:      res.HasExactMatch,
		RelatedSuggestions: res.RelatedSuggestions,
		ExpiresAt:          res.ExpiresAt,
	}, nil
}

// ValidateComplete closes an enforcement token. A passing enhanced
// validation also marks verificationPassed on the linked safety session.
func (s *Service) ValidateComplete(ctx context.Context, req ValidateCompleteRequest) (resp ValidateCompleteResponse, err error) {
	const call = session.CallValidateComplete
	defer s.track(call, timeNow(), nil, &err)
	if err := requireField(call, "sessionToken", req.SessionToken); err != nil {
		return ValidateCompleteResponse{}, err
	}

	res, err := s.tokens.Validate(ctx, enforcement.Evidence{
		SessionToken:     req.SessionToken,
		FeatureName:      req.FeatureName,
		TestsRun:         req.TestsRun,
		TestsPassed:      req.TestsPassed,
		TypescriptPassed: req.TypescriptPassed,
		TestsWritten:     req.TestsWritten,
		SafetySessionID:  strings.TrimSpace(req.SafetySessionID),
	})
	if err != nil {
		return ValidateCompleteResponse{}, fmt.Errorf("safety: validate complete: %w", err)
	}

	if res.Passed && !res.AlreadyValidated && res.Mode == enforcement.ModeEnhanced && res.SafetySessionID != "" {
		_, err := s.sessions.Update(res.SafetySessionID, func(sess *session.Session) error {
			session.Advance(call, &sess.Gates, true)
			return nil
		})
		if err != nil && !errors.Is(err, session.ErrNotFound) {
			return ValidateCompleteResponse{}, fmt.Errorf("safety: validate complete: %w", err)
		}
	}

	if !res.AlreadyValidated {
		status := string(res.Status)
		if status == "" {
			status = "not_found"
		}
		s.metrics.Validation(status)
	}

	resp = ValidateCompleteResponse{Result: res, Code: resultCode(res)}
	if resp.Issues == nil {
		resp.Issues = []enforcement.Issue{}
	}
	if !res.Passed {
		s.logger.Info("validation did not pass",
			zap.String("token", req.SessionToken),
			zap.String("code", resp.Code),
			zap.Int("issues", len(res.Issues)),
		)
	}
	return resp, nil
}

// resultCode picks the code a caller should branch on.
func resultCode(res enforcement.Result) string {
	if res.Passed {
		return ""
	}
	for _, i := range res.Issues {
		switch i.Code {
		case enforcement.CodeSessionNotFound:
			return CodeSessionNotFound
		case enforcement.CodeSessionExpired:
			return CodeSessionExpired
		}
	}
	return CodeValidationFailure
}
