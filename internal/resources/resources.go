// Package resources implements MCP resource handlers for safety sessions.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (safety://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/safeguard/internal/safety"
)

// StatusURITemplate addresses one session's status.
const StatusURITemplate = "safety://sessions/{sessionId}/status"

// StatusReader reads a session's status.
type StatusReader interface {
	GetStatus(ctx context.Context, req safety.StatusRequest) (safety.StatusResponse, error)
}

// Handler manages safety resource endpoints.
type Handler struct {
	status StatusReader
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(status StatusReader) *Handler {
	return &Handler{status: status}
}

// StatusTemplate returns the MCP resource template for session status.
func (h *Handler) StatusTemplate() mcp.ResourceTemplate {
	return mcp.NewResourceTemplate(
		StatusURITemplate,
		"Safety Session Status",
		mcp.WithTemplateDescription("Gates, safety score, violations and next action of one safety session"),
		mcp.WithTemplateMIMEType("application/json"),
	)
}

// HandleStatus returns the session's status as JSON. It never creates a
// session.
func (h *Handler) HandleStatus(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	id, err := sessionIDFromURI(req.Params.URI)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	status, err := h.status.GetStatus(ctx, safety.StatusRequest{SessionID: id})
	if err != nil {
		if safety.IsMalformed(err) {
			return errorResource(req.Params.URI, err.Error()), nil
		}
		return nil, fmt.Errorf("reading session status: %w", err)
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling status: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
