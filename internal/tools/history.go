package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/foundrymcp/foundry/internal/ops"
)

// HistoryTool handles the foundry_history MCP tool.
type HistoryTool struct {
	env *ops.Env
}

// NewHistoryTool creates a HistoryTool.
func NewHistoryTool(env *ops.Env) *HistoryTool {
	return &HistoryTool{env: env}
}

// Definition returns the MCP tool definition for registration.
func (t *HistoryTool) Definition() mcp.Tool {
	return mcp.NewTool("foundry_history",
		mcp.WithDescription(
			"Show recent foundry mutations from the local operation journal, newest "+
				"first: what was created, updated, or deleted, when, against which "+
				"backend, and whether it succeeded. Reads are not journaled.",
		),
		mcp.WithString("project",
			mcp.Description("Only show operations touching this project."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum entries to return. Default 20."),
		),
	)
}

// Handle processes the foundry_history tool call.
func (t *HistoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	env, err := t.env.History(ctx, ops.HistoryParams{
		Project: req.GetString("project", ""),
		Limit:   intArg(req, "limit", 0),
	})
	if err != nil {
		return resultFromError(err)
	}
	return envelopeResult(env)
}
