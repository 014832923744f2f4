package tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/foundrymcp/foundry/internal/ops"
)

// CreateProjectTool handles the foundry_create_project MCP tool.
type CreateProjectTool struct {
	env *ops.Env
}

// NewCreateProjectTool creates a CreateProjectTool.
func NewCreateProjectTool(env *ops.Env) *CreateProjectTool {
	return &CreateProjectTool{env: env}
}

// Definition returns the MCP tool definition for registration.
func (t *CreateProjectTool) Definition() mcp.Tool {
	return mcp.NewTool("foundry_create_project",
		mcp.WithDescription(
			"Create a foundry project: a named context store with three documents — "+
				"vision.md (why the product exists), tech-stack.md (languages, frameworks, "+
				"conventions), and summary.md (what the system does today). "+
				"Seed any of them now or leave them empty and fill them in later with the "+
				"spec tools. The result is a JSON envelope; validation_status 'incomplete' "+
				"with workflow_hints means the project wants more context, not that the "+
				"call failed.",
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Project name. Short and stable; it becomes the storage key. Example: 'checkout-service'"),
		),
		mcp.WithString("vision",
			mcp.Description("Initial vision.md content — the problem this product solves and for whom."),
		),
		mcp.WithString("tech_stack",
			mcp.Description("Initial tech-stack.md content — languages, frameworks, infrastructure, conventions."),
		),
		mcp.WithString("summary",
			mcp.Description("Initial summary.md content — what the system does today, its main components."),
		),
	)
}

// Handle processes the foundry_create_project tool call.
func (t *CreateProjectTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if strings.TrimSpace(name) == "" {
		return mcp.NewToolResultError("'name' is required — give the project a short, stable name"), nil
	}

	env, err := t.env.CreateProject(ctx, ops.CreateProjectParams{
		Name:      name,
		Vision:    req.GetString("vision", ""),
		TechStack: req.GetString("tech_stack", ""),
		Summary:   req.GetString("summary", ""),
	})
	if err != nil {
		return resultFromError(err)
	}
	return envelopeResult(env)
}
