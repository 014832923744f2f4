package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/foundrymcp/foundry/internal/backend"
	"github.com/foundrymcp/foundry/internal/editor"
	"github.com/foundrymcp/foundry/internal/ops"
)

// UpdateSpecTool handles the foundry_update_spec MCP tool.
type UpdateSpecTool struct {
	env *ops.Env
}

// NewUpdateSpecTool creates an UpdateSpecTool.
func NewUpdateSpecTool(env *ops.Env) *UpdateSpecTool {
	return &UpdateSpecTool{env: env}
}

// Definition returns the MCP tool definition for registration.
func (t *UpdateSpecTool) Definition() mcp.Tool {
	return mcp.NewTool("foundry_update_spec",
		mcp.WithDescription(
			"Edit a spec's files in place. Exactly one mode per call:\n\n"+
				"1. commands — structured edits as JSON (single object or array). Each "+
				"command names a target file (spec|tasks|notes), a command "+
				"(set_task_status, upsert_task, append_to_section, remove_list_item, "+
				"remove_from_section, remove_section, replace_list_item, "+
				"replace_in_section, replace_section_content), a selector (a bare string "+
				"or {type, value, section}), and content/status where the operation "+
				"needs them. Example: {\"target\":\"tasks\",\"command\":"+
				"\"set_task_status\",\"selector\":\"Implement login\",\"status\":\"done\"}\n\n"+
				"2. patches — anchor-based edits as JSON. Each patch names a target, an "+
				"operation (replace|insert|delete), before_context/after_context line "+
				"arrays locating a unique region, content, and an optional "+
				"section_context to narrow the search.\n\n"+
				"3. file + content — replace one whole file.\n\n"+
				"Batches are atomic: when any step fails, nothing is written and the "+
				"report carries candidates for every miss. Steps whose outcome is "+
				"already true are skipped as idempotent, not failed.",
		),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project the spec belongs to."),
		),
		mcp.WithString("spec_id",
			mcp.Required(),
			mcp.Description("Spec ID to edit."),
		),
		mcp.WithString("commands",
			mcp.Description("Edit commands: a JSON object or array, given directly or as a JSON string."),
		),
		mcp.WithString("patches",
			mcp.Description("Context patches: a JSON object or array, given directly or as a JSON string."),
		),
		mcp.WithString("file",
			mcp.Description("Whole-file replace mode: which file to replace (spec, tasks, or notes)."),
		),
		mcp.WithString("content",
			mcp.Description("Whole-file replace mode: the new file content."),
		),
	)
}

// Handle processes the foundry_update_spec tool call.
func (t *UpdateSpecTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project := req.GetString("project", "")
	if strings.TrimSpace(project) == "" {
		return mcp.NewToolResultError("'project' is required — which project holds the spec?"), nil
	}
	specID := req.GetString("spec_id", "")
	if strings.TrimSpace(specID) == "" {
		return mcp.NewToolResultError("'spec_id' is required — which spec should be edited?"), nil
	}

	params := ops.UpdateSpecParams{Project: project, SpecID: specID}

	if raw, err := rawArg(req, "commands"); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid 'commands': %v", err)), nil
	} else if raw != nil {
		cmds, err := editor.DecodeCommands(raw)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid 'commands': %v", err)), nil
		}
		params.Commands = cmds
	}

	if raw, err := rawArg(req, "patches"); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid 'patches': %v", err)), nil
	} else if raw != nil {
		patches, err := editor.DecodePatches(raw)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid 'patches': %v", err)), nil
		}
		params.Patches = patches
	}

	file := req.GetString("file", "")
	content := req.GetString("content", "")
	if file != "" {
		params.Replace = &ops.ReplaceFile{File: backend.FileType(file), Content: content}
	} else if content != "" {
		return mcp.NewToolResultError("'file' is required when 'content' is set — name spec, tasks, or notes"), nil
	}

	env, err := t.env.UpdateSpec(ctx, params)
	if err != nil {
		return resultFromError(err)
	}
	return envelopeResult(env)
}
