package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// LoadContextTool handles the load_context MCP tool.
type LoadContextTool struct {
	d Dispatcher
}

// NewLoadContextTool creates a LoadContextTool.
func NewLoadContextTool(d Dispatcher) *LoadContextTool {
	return &LoadContextTool{d: d}
}

// Definition returns the MCP tool definition for registration.
func (t *LoadContextTool) Definition() mcp.Tool {
	return mcp.NewTool("load_context",
		mcp.WithDescription(
			"Load the project's recorded decisions, past attempts and blockers into the safety session. "+
				"Call this FIRST, before clarifying intent or writing code. "+
				"Returns the critical decisions you must not contradict and the approaches that already failed.",
		),
		sessionIDParam,
		mcp.WithString("projectPath",
			mcp.Description("Project root containing the .safeguard directory. Defaults to the server's project."),
		),
	)
}

// Handle processes the load_context tool call.
func (t *LoadContextTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, t.d, "load_context", req)
}
