package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// StatusTool handles get_status and its get_safety_status alias.
type StatusTool struct {
	d    Dispatcher
	name string
}

// NewStatusTool creates a StatusTool registered under name.
func NewStatusTool(d Dispatcher, name string) *StatusTool {
	return &StatusTool{d: d, name: name}
}

// Definition returns the MCP tool definition for registration.
func (t *StatusTool) Definition() mcp.Tool {
	return mcp.NewTool(t.name,
		mcp.WithDescription(
			"Show the safety session's gates, safety score, scope violations and the next call to make. "+
				"A session that does not exist reports every gate as false.",
		),
		sessionIDParam,
	)
}

// Handle processes the status tool call.
func (t *StatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, t.d, t.name, req)
}

// ResetSessionTool handles the reset_session MCP tool.
type ResetSessionTool struct {
	d Dispatcher
}

// NewResetSessionTool creates a ResetSessionTool.
func NewResetSessionTool(d Dispatcher) *ResetSessionTool {
	return &ResetSessionTool{d: d}
}

// Definition returns the MCP tool definition for registration.
func (t *ResetSessionTool) Definition() mcp.Tool {
	return mcp.NewTool("reset_session",
		mcp.WithDescription(
			"Discard the safety session and all its gates. Only do this when the user starts an unrelated task.",
		),
		sessionIDParam,
	)
}

// Handle processes the reset_session tool call.
func (t *ResetSessionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, t.d, "reset_session", req)
}
