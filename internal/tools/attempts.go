package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/safeguard/internal/schema"
)

// LogAttemptTool handles the log_attempt MCP tool.
type LogAttemptTool struct {
	d Dispatcher
}

// NewLogAttemptTool creates a LogAttemptTool.
func NewLogAttemptTool(d Dispatcher) *LogAttemptTool {
	return &LogAttemptTool{d: d}
}

// Definition returns the MCP tool definition for registration.
func (t *LogAttemptTool) Definition() mcp.Tool {
	return mcp.NewTool("log_attempt",
		mcp.WithDescription(
			"Record a fix attempt and its result. If wasAlreadyTried or shouldNotRetry is true, "+
				"stop repeating the approach and pick one of the suggested alternatives.",
		),
		sessionIDParam,
		mcp.WithString("issue",
			mcp.Required(),
			mcp.Description("The problem being fixed"),
		),
		mcp.WithString("approach",
			mcp.Required(),
			mcp.Description("What was tried"),
		),
		mcp.WithString("result",
			mcp.Required(),
			mcp.Description("Outcome of the attempt"),
			mcp.Enum(schema.Results...),
		),
		mcp.WithString("codeOrCommand",
			mcp.Description("The code or command that was run"),
		),
		mcp.WithString("errorMessage",
			mcp.Description("Error output, if any"),
		),
		mcp.WithString("lessonsLearned",
			mcp.Description("What the attempt showed"),
		),
	)
}

// Handle processes the log_attempt tool call.
func (t *LogAttemptTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, t.d, "log_attempt", req)
}
