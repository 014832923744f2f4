package tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/foundrymcp/foundry/internal/ops"
)

// LoadSpecTool handles the foundry_load_spec MCP tool.
type LoadSpecTool struct {
	env *ops.Env
}

// NewLoadSpecTool creates a LoadSpecTool.
func NewLoadSpecTool(env *ops.Env) *LoadSpecTool {
	return &LoadSpecTool{env: env}
}

// Definition returns the MCP tool definition for registration.
func (t *LoadSpecTool) Definition() mcp.Tool {
	return mcp.NewTool("foundry_load_spec",
		mcp.WithDescription(
			"Load one spec's three files plus task progress (total and done counts). "+
				"The envelope's next_steps say what to do next: add tasks, finish the "+
				"open ones, or create the next spec.",
		),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project the spec belongs to."),
		),
		mcp.WithString("spec_id",
			mcp.Required(),
			mcp.Description("Spec ID, as shown by foundry_list_specs. Example: 20260825_143000_auth"),
		),
	)
}

// Handle processes the foundry_load_spec tool call.
func (t *LoadSpecTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project := req.GetString("project", "")
	if strings.TrimSpace(project) == "" {
		return mcp.NewToolResultError("'project' is required — which project holds the spec?"), nil
	}
	specID := req.GetString("spec_id", "")
	if strings.TrimSpace(specID) == "" {
		return mcp.NewToolResultError("'spec_id' is required — list specs with foundry_list_specs first"), nil
	}

	env, err := t.env.LoadSpec(ctx, project, specID)
	if err != nil {
		return resultFromError(err)
	}
	return envelopeResult(env)
}
