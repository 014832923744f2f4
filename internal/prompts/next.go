package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// NextPrompt handles the foundry-next MCP prompt: pick up the next open
// task in a spec.
type NextPrompt struct{}

// NewNextPrompt creates a NextPrompt.
func NewNextPrompt() *NextPrompt {
	return &NextPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *NextPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("foundry-next",
		mcp.WithPromptDescription(
			"Load a spec and start on its next open task.",
		),
		mcp.WithArgument("project",
			mcp.ArgumentDescription("Project the spec belongs to."),
		),
		mcp.WithArgument("spec",
			mcp.ArgumentDescription("Spec ID to work. When omitted, the newest spec is used."),
		),
	)
}

// Handle processes the foundry-next prompt request.
func (p *NextPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	project, spec := "", ""
	if args := req.Params.Arguments; args != nil {
		project = args["project"]
		spec = args["spec"]
	}

	locate := "Run `foundry_list_projects`, ask me which project to work on, then find its newest spec with `foundry_list_specs`."
	switch {
	case project != "" && spec != "":
		locate = fmt.Sprintf("Run `foundry_load_spec` with project='%s' and spec_id='%s'.", project, spec)
	case project != "":
		locate = fmt.Sprintf("Run `foundry_list_specs` with project='%s' and load the newest spec.", project)
	}

	return &mcp.GetPromptResult{
		Description: "Pick up the next open task",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Continue the current unit of work from its spec.\n\n" +
						"1. " + locate + "\n" +
						"2. Find the first unchecked task in task-list.md and restate it to me " +
						"in one sentence before starting.\n" +
						"3. Do the work, consulting spec.md for acceptance criteria and notes.md " +
						"for earlier decisions.\n" +
						"4. When the task is done, mark it with `foundry_update_spec` " +
						"(set_task_status, status='done') and note anything worth remembering " +
						"in notes.md.\n" +
						"5. Tell me what the next open task is, or run `foundry_validate_spec` " +
						"if none remain.",
				),
			},
		},
	}, nil
}
