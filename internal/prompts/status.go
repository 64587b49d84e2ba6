package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// StatusPrompt handles the safety-status MCP prompt.
// It instructs the AI to read and present a session's gates.
type StatusPrompt struct{}

// NewStatusPrompt creates a StatusPrompt.
func NewStatusPrompt() *StatusPrompt {
	return &StatusPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StatusPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("safety-status",
		mcp.WithPromptDescription(
			"Check a safety session: which gates passed, the safety score, "+
				"scope violations and what to do next.",
		),
		mcp.WithArgument("session_id",
			mcp.ArgumentDescription("Safety session id. Default: task-1"),
		),
	)
}

// Handle processes the safety-status prompt request.
func (p *StatusPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	sessionID := "task-1"
	if args := req.Params.Arguments; args != nil {
		if v, ok := args["session_id"]; ok && v != "" {
			sessionID = v
		}
	}

	return &mcp.GetPromptResult{
		Description: "Safety Session Status",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"Please run `get_safety_status` with sessionId='%s'.\n\n"+
						"Then:\n"+
						"1. List the gates as passed or pending\n"+
						"2. Show the safety score and any scope violations or contradictions\n"+
						"3. Tell me the next call to make and why",
					sessionID,
				)),
			},
		},
	}, nil
}
