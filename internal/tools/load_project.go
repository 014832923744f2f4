package tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/foundrymcp/foundry/internal/ops"
)

// LoadProjectTool handles the foundry_load_project MCP tool.
type LoadProjectTool struct {
	env *ops.Env
}

// NewLoadProjectTool creates a LoadProjectTool.
func NewLoadProjectTool(env *ops.Env) *LoadProjectTool {
	return &LoadProjectTool{env: env}
}

// Definition returns the MCP tool definition for registration.
func (t *LoadProjectTool) Definition() mcp.Tool {
	return mcp.NewTool("foundry_load_project",
		mcp.WithDescription(
			"Load a project's three context documents (vision, tech stack, summary) and "+
				"the IDs of its specs, newest first. Call this at the start of a session "+
				"to pick up project-wide context before touching any spec.",
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Project name, as shown by foundry_list_projects."),
		),
	)
}

// Handle processes the foundry_load_project tool call.
func (t *LoadProjectTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if strings.TrimSpace(name) == "" {
		return mcp.NewToolResultError("'name' is required — which project should be loaded?"), nil
	}

	env, err := t.env.LoadProject(ctx, name)
	if err != nil {
		return resultFromError(err)
	}
	return envelopeResult(env)
}
