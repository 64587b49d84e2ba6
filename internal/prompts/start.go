// Package prompts implements MCP prompt handlers for the safety workflow.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// WorkflowPrompt handles the safety-workflow MCP prompt.
// It walks the AI through the gates in order for one task.
type WorkflowPrompt struct{}

// NewWorkflowPrompt creates a WorkflowPrompt.
func NewWorkflowPrompt() *WorkflowPrompt {
	return &WorkflowPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *WorkflowPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("safety-workflow",
		mcp.WithPromptDescription(
			"Run a coding task through the safety gates: load context, clarify intent, "+
				"lock scope, discover patterns, check every change and validate before reporting done.",
		),
		mcp.WithArgument("task",
			mcp.ArgumentDescription("What you want built or fixed"),
		),
		mcp.WithArgument("session_id",
			mcp.ArgumentDescription("Safety session id to use. Default: task-1"),
		),
	)
}

// Handle processes the safety-workflow prompt request.
func (p *WorkflowPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	task := "the task I describe next"
	sessionID := "task-1"
	if args := req.Params.Arguments; args != nil {
		if v, ok := args["task"]; ok && v != "" {
			task = v
		}
		if v, ok := args["session_id"]; ok && v != "" {
			sessionID = v
		}
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Safety workflow: %s", task),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I want you to work on %s. Use safety session '%s' for every call.\n\n"+
						"Please:\n"+
						"1. Run `load_context` and read the critical decisions and failed approaches it returns\n"+
						"2. Run `clarify_intent` with my request verbatim. Ask me each returned question and record my answer with `answer_clarification` until readyToProceed is true\n"+
						"3. Run `check_contradiction` on your plan\n"+
						"4. Run `define_scope` with the clarified request\n"+
						"5. Run `discover_patterns` with sessionId='%s' and read the pattern modules it lists; keep the sessionToken\n"+
						"6. Before every file change or command, run `check_action`. If blocked is true, stop and tell me why\n"+
						"7. Record choices with `log_decision` and every fix attempt with `log_attempt`. Never retry an approach marked shouldNotRetry\n"+
						"8. Run the tests, then `validate_complete` with the sessionToken and honest results. Only report the task done if passed is true",
					task, sessionID, sessionID,
				)),
			},
		},
	}, nil
}
