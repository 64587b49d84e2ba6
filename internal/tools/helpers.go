// Package tools implements the MCP tool handlers for safety calls.
//
// Each tool owns its definition and forwards the raw arguments to a
// Dispatcher, which validates them against the action's schema and runs
// the call. Malformed input comes back as a tool error result; policy
// outcomes (blocked, contradiction, failed validation) come back as
// normal JSON results for the agent to act on.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/safeguard/internal/safety"
)

// Dispatcher runs one safety call from raw JSON arguments.
type Dispatcher interface {
	Dispatch(ctx context.Context, action string, raw json.RawMessage) (any, error)
}

// Tool is what the server registers.
type Tool interface {
	Definition() mcp.Tool
	Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// call forwards req's arguments to d under action.
func call(ctx context.Context, d Dispatcher, action string, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	if args == nil {
		args = map[string]any{}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("arguments are not valid JSON: %v", err)), nil
	}

	out, err := d.Dispatch(ctx, action, raw)
	if err != nil {
		if safety.IsMalformed(err) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return nil, fmt.Errorf("%s: %w", action, err)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling %s response: %w", action, err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

var sessionIDParam = mcp.WithString("sessionId",
	mcp.Required(),
	mcp.Description("Safety session id. Use the same id for every call in one task."),
)
