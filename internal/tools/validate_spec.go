package tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/foundrymcp/foundry/internal/ops"
)

// ValidateSpecTool handles the foundry_validate_spec MCP tool.
type ValidateSpecTool struct {
	env *ops.Env
}

// NewValidateSpecTool creates a ValidateSpecTool.
func NewValidateSpecTool(env *ops.Env) *ValidateSpecTool {
	return &ValidateSpecTool{env: env}
}

// Definition returns the MCP tool definition for registration.
func (t *ValidateSpecTool) Definition() mcp.Tool {
	return mcp.NewTool("foundry_validate_spec",
		mcp.WithDescription(
			"Check a spec's health: per-file sizes, empty files, and task progress. "+
				"validation_status is 'complete' only when the spec has tasks and all "+
				"of them are done; otherwise next_steps say what is missing. Use it "+
				"before declaring a unit of work finished.",
		),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project the spec belongs to."),
		),
		mcp.WithString("spec_id",
			mcp.Required(),
			mcp.Description("Spec ID to validate."),
		),
	)
}

// Handle processes the foundry_validate_spec tool call.
func (t *ValidateSpecTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project := req.GetString("project", "")
	if strings.TrimSpace(project) == "" {
		return mcp.NewToolResultError("'project' is required — which project holds the spec?"), nil
	}
	specID := req.GetString("spec_id", "")
	if strings.TrimSpace(specID) == "" {
		return mcp.NewToolResultError("'spec_id' is required — which spec should be validated?"), nil
	}

	env, err := t.env.ValidateSpec(ctx, project, specID)
	if err != nil {
		return resultFromError(err)
	}
	return envelopeResult(env)
}
