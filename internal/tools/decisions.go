package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/safeguard/internal/schema"
)

// CheckContradictionTool handles the check_contradiction MCP tool.
type CheckContradictionTool struct {
	d Dispatcher
}

// NewCheckContradictionTool creates a CheckContradictionTool.
func NewCheckContradictionTool(d Dispatcher) *CheckContradictionTool {
	return &CheckContradictionTool{d: d}
}

// Definition returns the MCP tool definition for registration.
func (t *CheckContradictionTool) Definition() mcp.Tool {
	return mcp.NewTool("check_contradiction",
		mcp.WithDescription(
			"Check a planned change against the session's high and critical decisions, "+
				"e.g. 'set up Prisma' after 'use Drizzle ORM' was decided.",
		),
		sessionIDParam,
		mcp.WithString("action",
			mcp.Required(),
			mcp.Description("The planned change, in plain words"),
		),
	)
}

// Handle processes the check_contradiction tool call.
func (t *CheckContradictionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, t.d, "check_contradiction", req)
}

// LogDecisionTool handles the log_decision MCP tool.
type LogDecisionTool struct {
	d Dispatcher
}

// NewLogDecisionTool creates a LogDecisionTool.
func NewLogDecisionTool(d Dispatcher) *LogDecisionTool {
	return &LogDecisionTool{d: d}
}

// Definition returns the MCP tool definition for registration.
func (t *LogDecisionTool) Definition() mcp.Tool {
	return mcp.NewTool("log_decision",
		mcp.WithDescription(
			"Record a decision so later work is checked against it. "+
				"High and critical decisions are enforced; low and medium are informational. "+
				"A decision that contradicts an earlier one is still recorded and reported.",
		),
		sessionIDParam,
		mcp.WithString("decision",
			mcp.Required(),
			mcp.Description("The choice made, e.g. 'Use Drizzle ORM'"),
		),
		mcp.WithString("category",
			mcp.Required(),
			mcp.Description("Decision category"),
			mcp.Enum(schema.Categories...),
		),
		mcp.WithString("reasoning",
			mcp.Required(),
			mcp.Description("Why it was chosen"),
		),
		mcp.WithString("impact",
			mcp.Required(),
			mcp.Description("How costly it is to change later"),
			mcp.Enum(schema.Impacts...),
		),
		mcp.WithArray("alternativesConsidered",
			mcp.Description("Options that were rejected"),
			mcp.WithStringItems(),
		),
		mcp.WithBoolean("reversible",
			mcp.Description("Whether the decision can be undone cheaply"),
		),
		mcp.WithString("madeBy",
			mcp.Description("Who made the decision"),
			mcp.Enum(schema.Authors...),
		),
		mcp.WithBoolean("userApproved",
			mcp.Description("Whether the user explicitly approved it"),
		),
	)
}

// Handle processes the log_decision tool call.
func (t *LogDecisionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, t.d, "log_decision", req)
}
