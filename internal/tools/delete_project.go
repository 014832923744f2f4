package tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/foundrymcp/foundry/internal/ops"
)

// DeleteProjectTool handles the foundry_delete_project MCP tool.
type DeleteProjectTool struct {
	env *ops.Env
}

// NewDeleteProjectTool creates a DeleteProjectTool.
func NewDeleteProjectTool(env *ops.Env) *DeleteProjectTool {
	return &DeleteProjectTool{env: env}
}

// Definition returns the MCP tool definition for registration.
func (t *DeleteProjectTool) Definition() mcp.Tool {
	return mcp.NewTool("foundry_delete_project",
		mcp.WithDescription(
			"Delete a project and every spec under it. Destructive and permanent: "+
				"confirm must repeat the exact project name or nothing is deleted.",
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Project name to delete."),
		),
		mcp.WithString("confirm",
			mcp.Required(),
			mcp.Description("Must equal the project name. This is the safety latch."),
		),
	)
}

// Handle processes the foundry_delete_project tool call.
func (t *DeleteProjectTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if strings.TrimSpace(name) == "" {
		return mcp.NewToolResultError("'name' is required — which project should be deleted?"), nil
	}

	env, err := t.env.DeleteProject(ctx, ops.DeleteProjectParams{
		Name:    name,
		Confirm: req.GetString("confirm", ""),
	})
	if err != nil {
		return resultFromError(err)
	}
	return envelopeResult(env)
}
