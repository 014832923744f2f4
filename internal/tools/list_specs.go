package tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/foundrymcp/foundry/internal/ops"
)

// ListSpecsTool handles the foundry_list_specs MCP tool.
type ListSpecsTool struct {
	env *ops.Env
}

// NewListSpecsTool creates a ListSpecsTool.
func NewListSpecsTool(env *ops.Env) *ListSpecsTool {
	return &ListSpecsTool{env: env}
}

// Definition returns the MCP tool definition for registration.
func (t *ListSpecsTool) Definition() mcp.Tool {
	return mcp.NewTool("foundry_list_specs",
		mcp.WithDescription(
			"List a project's specs, newest first, with their feature names. "+
				"Spec IDs sort chronologically, so the first entry is the latest work.",
		),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project whose specs to list."),
		),
	)
}

// Handle processes the foundry_list_specs tool call.
func (t *ListSpecsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project := req.GetString("project", "")
	if strings.TrimSpace(project) == "" {
		return mcp.NewToolResultError("'project' is required — which project's specs should be listed?"), nil
	}

	env, err := t.env.ListSpecs(ctx, project)
	if err != nil {
		return resultFromError(err)
	}
	return envelopeResult(env)
}
