package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/safeguard/internal/schema"
)

// DefineScopeTool handles the define_scope MCP tool.
type DefineScopeTool struct {
	d Dispatcher
}

// NewDefineScopeTool creates a DefineScopeTool.
func NewDefineScopeTool(d Dispatcher) *DefineScopeTool {
	return &DefineScopeTool{d: d}
}

// Definition returns the MCP tool definition for registration.
func (t *DefineScopeTool) Definition() mcp.Tool {
	return mcp.NewTool("define_scope",
		mcp.WithDescription(
			"Lock the task to the directories and actions its request implies. "+
				"Secrets and git internals are always forbidden. "+
				"After this, check every file change with check_action.",
		),
		sessionIDParam,
		mcp.WithString("userRequest",
			mcp.Required(),
			mcp.Description("The clarified request the scope is derived from"),
		),
		mcp.WithArray("allowedDirectories",
			mcp.Description("Directories to allow instead of the inferred ones, e.g. 'src/app/(auth)/'"),
			mcp.WithStringItems(),
		),
		mcp.WithArray("forbiddenFiles",
			mcp.Description("Extra glob patterns to forbid on top of the defaults"),
			mcp.WithStringItems(),
		),
		mcp.WithArray("allowedActions",
			mcp.Description("Actions to allow in addition to the inferred ones"),
			mcp.WithStringItems(mcp.Enum(schema.ActionTypes...)),
		),
	)
}

// Handle processes the define_scope tool call.
func (t *DefineScopeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, t.d, "define_scope", req)
}

// CheckActionTool handles the check_action MCP tool.
type CheckActionTool struct {
	d Dispatcher
}

// NewCheckActionTool creates a CheckActionTool.
func NewCheckActionTool(d Dispatcher) *CheckActionTool {
	return &CheckActionTool{d: d}
}

// Definition returns the MCP tool definition for registration.
func (t *CheckActionTool) Definition() mcp.Tool {
	return mcp.NewTool("check_action",
		mcp.WithDescription(
			"Ask before changing anything. Checks the target file against the scope lock and the "+
				"action text against the session's decisions. If blocked is true, do NOT perform the action; "+
				"explain the reason to the user instead.",
		),
		sessionIDParam,
		mcp.WithString("action",
			mcp.Description("What you are about to do, in plain words. Checked for contradictions."),
		),
		mcp.WithString("actionType",
			mcp.Description("Kind of change"),
			mcp.Enum(schema.ActionTypes...),
		),
		mcp.WithString("targetFile",
			mcp.Description("Repository-relative path of the file the action touches"),
		),
	)
}

// Handle processes the check_action tool call.
func (t *CheckActionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, t.d, "check_action", req)
}
