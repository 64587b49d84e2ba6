package prompts

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func promptText(t *testing.T, res *mcp.GetPromptResult) string {
	t.Helper()
	if len(res.Messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(res.Messages))
	}
	tc, ok := res.Messages[0].Content.(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", res.Messages[0].Content)
	}
	return tc.Text
}

func TestWorkflowPrompt_GateOrder(t *testing.T) {
	p := NewWorkflowPrompt()
	if p.Definition().Name != "safety-workflow" {
		t.Errorf("name = %q", p.Definition().Name)
	}

	req := mcp.GetPromptRequest{}
	req.Params.Arguments = map[string]string{"task": "add login", "session_id": "login-1"}
	res, err := p.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	text := promptText(t, res)

	order := []string{"load_context", "clarify_intent", "define_scope", "discover_patterns", "check_action", "validate_complete"}
	last := -1
	for _, call := range order {
		i := strings.Index(text, call)
		if i < 0 {
			t.Fatalf("prompt does not mention %s", call)
		}
		if i < last {
			t.Errorf("%s appears out of order", call)
		}
		last = i
	}
	if !strings.Contains(text, "login-1") {
		t.Error("prompt should use the given session id")
	}
}

func TestStatusPrompt_DefaultSession(t *testing.T) {
	res, err := NewStatusPrompt().Handle(context.Background(), mcp.GetPromptRequest{})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if text := promptText(t, res); !strings.Contains(text, "sessionId='task-1'") {
		t.Errorf("unexpected prompt: %s", text)
	}
}
