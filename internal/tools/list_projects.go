package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/foundrymcp/foundry/internal/ops"
)

// ListProjectsTool handles the foundry_list_projects MCP tool.
type ListProjectsTool struct {
	env *ops.Env
}

// NewListProjectsTool creates a ListProjectsTool.
func NewListProjectsTool(env *ops.Env) *ListProjectsTool {
	return &ListProjectsTool{env: env}
}

// Definition returns the MCP tool definition for registration.
func (t *ListProjectsTool) Definition() mcp.Tool {
	return mcp.NewTool("foundry_list_projects",
		mcp.WithDescription(
			"List every foundry project with its spec count. Use it to discover what "+
				"already exists before creating or loading a project.",
		),
	)
}

// Handle processes the foundry_list_projects tool call.
func (t *ListProjectsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	env, err := t.env.ListProjects(ctx)
	if err != nil {
		return resultFromError(err)
	}
	return envelopeResult(env)
}
