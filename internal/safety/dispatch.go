package safety

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"github.com/HendryAvila/safeguard/internal/schema"
)

// Actions lists every call Dispatch accepts.
func (s *Service) Actions() []string { return s.validator.Actions() }

// Dispatch validates raw against the action's schema, decodes it into
// the typed request and runs the call. It backs the HTTP envelope and the
// MCP tools, so both reject the same inputs.
func (s *Service) Dispatch(ctx context.Context, action string, raw json.RawMessage) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := s.validator.ValidateJSON(action, raw); err != nil {
		var se *schema.Error
		if errors.As(err, &se) {
			return nil, &MalformedInputError{Action: se.Action, Detail: se.Detail}
		}
		return nil, malformed(action, "%s", err.Error())
	}

	switch action {
	case "load_context":
		return run(ctx, action, raw, s.LoadContext)
	case "clarify_intent":
		return run(ctx, action, raw, s.ClarifyIntent)
	case "answer_clarification":
		return run(ctx, action, raw, s.AnswerClarification)
	case "define_scope":
		return run(ctx, action, raw, s.DefineScope)
	case "check_action":
		return run(ctx, action, raw, s.CheckAction)
	case "check_contradiction":
		return run(ctx, action, raw, s.CheckContradiction)
	case "log_attempt":
		return run(ctx, action, raw, s.LogAttempt)
	case "log_decision":
		return run(ctx, action, raw, s.LogDecision)
	case "get_status", "get_safety_status":
		return run(ctx, action, raw, s.GetStatus)
	case "reset_session":
		return run(ctx, action, raw, s.ResetSession)
	case "discover_patterns":
		return run(ctx, action, raw, s.DiscoverPatterns)
	case "validate_complete":
		return run(ctx, action, raw, s.ValidateComplete)
	}
	return nil, malformed("", "unknown action %q", action)
}

func run[Req, Resp any](ctx context.Context, action string, raw json.RawMessage, fn func(context.Context, Req) (Resp, error)) (any, error) {
	var req Req
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, malformed(action, "decode arguments: %s", err.Error())
	}
	resp, err := fn(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp, nil
}
