package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// ClarifyIntentTool handles the clarify_intent MCP tool.
type ClarifyIntentTool struct {
	d Dispatcher
}

// NewClarifyIntentTool creates a ClarifyIntentTool.
func NewClarifyIntentTool(d Dispatcher) *ClarifyIntentTool {
	return &ClarifyIntentTool{d: d}
}

// Definition returns the MCP tool definition for registration.
func (t *ClarifyIntentTool) Definition() mcp.Tool {
	return mcp.NewTool("clarify_intent",
		mcp.WithDescription(
			"Score how well the user's request pins down users, data, scope, success criteria and tech stack. "+
				"When readyToProceed is false, ask the user the returned questions and record each answer "+
				"with answer_clarification. Do not guess the answers.",
		),
		sessionIDParam,
		mcp.WithString("userRequest",
			mcp.Required(),
			mcp.Description("The user's request, verbatim"),
		),
	)
}

// Handle processes the clarify_intent tool call.
func (t *ClarifyIntentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, t.d, "clarify_intent", req)
}

// AnswerClarificationTool handles the answer_clarification MCP tool.
type AnswerClarificationTool struct {
	d Dispatcher
}

// NewAnswerClarificationTool creates an AnswerClarificationTool.
func NewAnswerClarificationTool(d Dispatcher) *AnswerClarificationTool {
	return &AnswerClarificationTool{d: d}
}

// Definition returns the MCP tool definition for registration.
func (t *AnswerClarificationTool) Definition() mcp.Tool {
	return mcp.NewTool("answer_clarification",
		mcp.WithDescription(
			"Record the user's answer to one clarification question. "+
				"Requires a prior clarify_intent in this session. Each answer uses one round.",
		),
		sessionIDParam,
		mcp.WithString("questionId",
			mcp.Required(),
			mcp.Description("Question id from clarify_intent, e.g. 'q-target_users'"),
		),
		mcp.WithString("answer",
			mcp.Required(),
			mcp.Description("The user's answer, verbatim"),
		),
	)
}

// Handle processes the answer_clarification tool call.
func (t *AnswerClarificationTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, t.d, "answer_clarification", req)
}
