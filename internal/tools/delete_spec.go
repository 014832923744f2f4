package tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/foundrymcp/foundry/internal/ops"
)

// DeleteSpecTool handles the foundry_delete_spec MCP tool.
type DeleteSpecTool struct {
	env *ops.Env
}

// NewDeleteSpecTool creates a DeleteSpecTool.
func NewDeleteSpecTool(env *ops.Env) *DeleteSpecTool {
	return &DeleteSpecTool{env: env}
}

// Definition returns the MCP tool definition for registration.
func (t *DeleteSpecTool) Definition() mcp.Tool {
	return mcp.NewTool("foundry_delete_spec",
		mcp.WithDescription(
			"Delete one spec and its three files. Destructive and permanent: confirm "+
				"must repeat the exact spec ID or nothing is deleted.",
		),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project the spec belongs to."),
		),
		mcp.WithString("spec_id",
			mcp.Required(),
			mcp.Description("Spec ID to delete."),
		),
		mcp.WithString("confirm",
			mcp.Required(),
			mcp.Description("Must equal the spec ID. This is the safety latch."),
		),
	)
}

// Handle processes the foundry_delete_spec tool call.
func (t *DeleteSpecTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project := req.GetString("project", "")
	if strings.TrimSpace(project) == "" {
		return mcp.NewToolResultError("'project' is required — which project holds the spec?"), nil
	}
	specID := req.GetString("spec_id", "")
	if strings.TrimSpace(specID) == "" {
		return mcp.NewToolResultError("'spec_id' is required — which spec should be deleted?"), nil
	}

	env, err := t.env.DeleteSpec(ctx, ops.DeleteSpecParams{
		Project: project,
		SpecID:  specID,
		Confirm: req.GetString("confirm", ""),
	})
	if err != nil {
		return resultFromError(err)
	}
	return envelopeResult(env)
}
