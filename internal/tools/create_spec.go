package tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/foundrymcp/foundry/internal/ops"
)

// CreateSpecTool handles the foundry_create_spec MCP tool.
type CreateSpecTool struct {
	env *ops.Env
}

// NewCreateSpecTool creates a CreateSpecTool.
func NewCreateSpecTool(env *ops.Env) *CreateSpecTool {
	return &CreateSpecTool{env: env}
}

// Definition returns the MCP tool definition for registration.
func (t *CreateSpecTool) Definition() mcp.Tool {
	return mcp.NewTool("foundry_create_spec",
		mcp.WithDescription(
			"Create a timestamped spec under a project. A spec is one unit of work "+
				"with three files: spec.md (the feature and its acceptance criteria), "+
				"task-list.md (markdown checkboxes the tools keep in sync), and notes.md "+
				"(decisions and discoveries made along the way). The spec ID is minted "+
				"from the creation time and feature name, e.g. 20260825_143000_auth, and "+
				"is what every other spec tool addresses.",
		),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project the spec belongs to."),
		),
		mcp.WithString("feature",
			mcp.Required(),
			mcp.Description("Feature name. Lowercased into the spec ID. Example: 'auth'"),
		),
		mcp.WithString("spec",
			mcp.Description("Initial spec.md content."),
		),
		mcp.WithString("tasks",
			mcp.Description("Initial task-list.md content. Use '- [ ] task' checkbox lines."),
		),
		mcp.WithString("notes",
			mcp.Description("Initial notes.md content."),
		),
	)
}

// Handle processes the foundry_create_spec tool call.
func (t *CreateSpecTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project := req.GetString("project", "")
	if strings.TrimSpace(project) == "" {
		return mcp.NewToolResultError("'project' is required — which project gets the spec?"), nil
	}
	feature := req.GetString("feature", "")
	if strings.TrimSpace(feature) == "" {
		return mcp.NewToolResultError("'feature' is required — name the unit of work, e.g. 'auth'"), nil
	}

	env, err := t.env.CreateSpec(ctx, ops.CreateSpecParams{
		Project: project,
		Feature: feature,
		Spec:    req.GetString("spec", ""),
		Tasks:   req.GetString("tasks", ""),
		Notes:   req.GetString("notes", ""),
	})
	if err != nil {
		return resultFromError(err)
	}
	return envelopeResult(env)
}
