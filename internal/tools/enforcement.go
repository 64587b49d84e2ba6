package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// DiscoverPatternsTool handles the discover_patterns MCP tool.
type DiscoverPatternsTool struct {
	d Dispatcher
}

// NewDiscoverPatternsTool creates a DiscoverPatternsTool.
func NewDiscoverPatternsTool(d Dispatcher) *DiscoverPatternsTool {
	return &DiscoverPatternsTool{d: d}
}

// Definition returns the MCP tool definition for registration.
func (t *DiscoverPatternsTool) Definition() mcp.Tool {
	return mcp.NewTool("discover_patterns",
		mcp.WithDescription(
			"START GATE. Call before implementing. Returns the pattern modules to read for the task "+
				"and a sessionToken that validate_complete needs. The token expires after two hours.",
		),
		mcp.WithString("task",
			mcp.Required(),
			mcp.Description("What you are about to build, e.g. 'add login with OAuth'"),
		),
		mcp.WithArray("keywords",
			mcp.Description("Extra keywords to match pattern modules"),
			mcp.WithStringItems(),
		),
		mcp.WithArray("files",
			mcp.Description("Files you plan to touch"),
			mcp.WithStringItems(),
		),
		mcp.WithString("teamId",
			mcp.Description("Team the work belongs to"),
		),
		mcp.WithString("sessionId",
			mcp.Description("Safety session to link, so validate_complete checks its gates"),
		),
	)
}

// Handle processes the discover_patterns tool call.
func (t *DiscoverPatternsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, t.d, "discover_patterns", req)
}

// ValidateCompleteTool handles the validate_complete MCP tool.
type ValidateCompleteTool struct {
	d Dispatcher
}

// NewValidateCompleteTool creates a ValidateCompleteTool.
func NewValidateCompleteTool(d Dispatcher) *ValidateCompleteTool {
	return &ValidateCompleteTool{d: d}
}

// Definition returns the MCP tool definition for registration.
func (t *ValidateCompleteTool) Definition() mcp.Tool {
	return mcp.NewTool("validate_complete",
		mcp.WithDescription(
			"END GATE. Call after implementing, with honest test results. "+
				"Do not report the task as done unless passed is true. "+
				"A token is validated once; later calls return the recorded result.",
		),
		mcp.WithString("sessionToken",
			mcp.Required(),
			mcp.Description("Token from discover_patterns"),
		),
		mcp.WithBoolean("testsRun",
			mcp.Required(),
			mcp.Description("Whether the test suite was run"),
		),
		mcp.WithBoolean("testsPassed",
			mcp.Required(),
			mcp.Description("Whether every test passed"),
		),
		mcp.WithString("featureName",
			mcp.Description("Short name of the feature"),
		),
		mcp.WithBoolean("typescriptPassed",
			mcp.Description("Whether the type check passed, if the project has one"),
		),
		mcp.WithBoolean("testsWritten",
			mcp.Description("Whether new tests were written for the change"),
		),
		mcp.WithString("safetySessionId",
			mcp.Description("Safety session whose gates to check, if not linked at discover_patterns"),
		),
	)
}

// Handle processes the validate_complete tool call.
func (t *ValidateCompleteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, t.d, "validate_complete", req)
}

// All returns every safety tool, in gate order.
func All(d Dispatcher) []Tool {
	return []Tool{
		NewLoadContextTool(d),
		NewClarifyIntentTool(d),
		NewAnswerClarificationTool(d),
		NewCheckContradictionTool(d),
		NewDefineScopeTool(d),
		NewDiscoverPatternsTool(d),
		NewCheckActionTool(d),
		NewLogDecisionTool(d),
		NewLogAttemptTool(d),
		NewValidateCompleteTool(d),
		NewStatusTool(d, "get_status"),
		NewStatusTool(d, "get_safety_status"),
		NewResetSessionTool(d),
	}
}
