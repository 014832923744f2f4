// Package prompts implements the foundry MCP prompts.
//
// Prompts are user-triggered workflows (like slash commands): unlike
// tools, which the assistant calls on its own, a prompt is the user
// telling the assistant how to drive the foundry tools.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// WorkflowPrompt handles the foundry-workflow MCP prompt. It hands the
// assistant the operating loop for working against foundry context.
type WorkflowPrompt struct{}

// NewWorkflowPrompt creates a WorkflowPrompt.
func NewWorkflowPrompt() *WorkflowPrompt {
	return &WorkflowPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *WorkflowPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("foundry-workflow",
		mcp.WithPromptDescription(
			"Adopt the foundry operating loop: load project context, work one "+
				"spec at a time, and keep its task list current as you go.",
		),
		mcp.WithArgument("project",
			mcp.ArgumentDescription("Project to load up front. When omitted, the loop starts from the project listing."),
		),
	)
}

// Handle processes the foundry-workflow prompt request.
func (p *WorkflowPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	project := ""
	if args := req.Params.Arguments; args != nil {
		project = args["project"]
	}

	firstStep := "1. Run `foundry_list_projects`, ask me which project we're working on, then load it with `foundry_load_project`."
	desc := "Foundry operating loop"
	if project != "" {
		firstStep = fmt.Sprintf("1. Run `foundry_load_project` with name='%s' and read the three context documents.", project)
		desc = fmt.Sprintf("Foundry operating loop: %s", project)
	}

	return &mcp.GetPromptResult{
		Description: desc,
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"Use the foundry tools to keep project context current while we work.\n\n"+
						"%s\n"+
						"2. Run `foundry_list_specs` and load the newest spec with `foundry_load_spec`; "+
						"if the work at hand has no spec yet, create one with `foundry_create_spec`.\n"+
						"3. Read spec.md and task-list.md before writing any code.\n"+
						"4. While working: mark each finished task done with `foundry_update_spec` "+
						"(set_task_status), add discovered work with upsert_task, and record "+
						"decisions in notes.md (append_to_section).\n"+
						"5. Prefer edit commands over whole-file replaces. Batches are atomic, and "+
						"steps that are already true get skipped, so re-sending a batch is safe.\n"+
						"6. Before calling the work done, run `foundry_validate_spec` and close out "+
						"whatever it reports open.\n\n"+
						"Treat validation_status 'incomplete' as guidance, never as failure: follow "+
						"the envelope's next_steps.",
					firstStep,
				)),
			},
		},
	}, nil
}
