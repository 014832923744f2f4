// Package resources implements the foundry MCP resources.
//
// Resources are read-only context endpoints addressed by URI
// (foundry://...); hosts pull them without a tool call.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/foundrymcp/foundry/internal/backend"
)

// Handler serves the foundry:// resources.
type Handler struct {
	backend backend.Backend
}

// NewHandler creates a resource Handler on the given backend.
func NewHandler(b backend.Backend) *Handler {
	return &Handler{backend: b}
}

// ProjectsResource returns the MCP resource definition for the project
// listing.
func (h *Handler) ProjectsResource() mcp.Resource {
	return mcp.NewResource(
		"foundry://projects",
		"Foundry Projects",
		mcp.WithResourceDescription("Every foundry project with its spec count, newest first"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleProjects returns the live project listing as JSON.
func (h *Handler) HandleProjects(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	infos, err := h.backend.ListProjects(ctx)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling projects: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a readable failure instead of a protocol error,
// so hosts render something useful.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
