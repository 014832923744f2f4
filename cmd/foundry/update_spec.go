package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foundrymcp/foundry/internal/backend"
	"github.com/foundrymcp/foundry/internal/editor"
	"github.com/foundrymcp/foundry/internal/ops"
)

var (
	updateSpecCommands string
	updateSpecPatches  string
	updateSpecFile     string
	updateSpecContent  string
)

var updateSpecCmd = &cobra.Command{
	Use:   "update-spec PROJECT SPEC_ID",
	Short: "Edit spec documents with commands, patches, or a full replace",
	Long: `Edit a spec's documents through one of three modes:

  --commands JSON   Structured edits (set_task_status, upsert_task,
                    append_to_section, ...). Atomic: if any command
                    fails, nothing is written and the report carries
                    every failure with candidate selectors.
  --patches JSON    Context-anchored text patches (replace, insert,
                    delete). Same atomicity.
  --file + --content
                    Replace one whole document (spec, tasks, or notes).

JSON flags accept inline JSON, @path, or "-" for stdin. Edits already in
effect are skipped as idempotent, not failed.

Examples:
  foundry update-spec payments 2026-08-25-refund-flow \
    --commands '{"target":"tasks","command":"set_task_status","selector":"Wire refund API","status":"done"}'
  foundry update-spec payments 2026-08-25-refund-flow --patches @fix.json
  foundry update-spec payments 2026-08-25-refund-flow --file notes --content @notes.md`,
	Args: cobra.ExactArgs(2),
	RunE: runUpdateSpec,
}

func init() {
	updateSpecCmd.Flags().StringVar(&updateSpecCommands, "commands", "", "Edit commands as JSON (object or array; @path or - accepted)")
	updateSpecCmd.Flags().StringVar(&updateSpecPatches, "patches", "", "Patches as JSON (object or array; @path or - accepted)")
	updateSpecCmd.Flags().StringVar(&updateSpecFile, "file", "", "Document to replace: spec, tasks, or notes")
	updateSpecCmd.Flags().StringVar(&updateSpecContent, "content", "", "Replacement content (text, @path, or - for stdin)")

	rootCmd.AddCommand(updateSpecCmd)
}

func runUpdateSpec(cmd *cobra.Command, args []string) error {
	params := ops.UpdateSpecParams{Project: args[0], SpecID: args[1]}

	if updateSpecCommands != "" {
		raw, err := readContent(updateSpecCommands)
		if err != nil {
			return err
		}
		cmds, err := editor.DecodeCommands([]byte(raw))
		if err != nil {
			return fmt.Errorf("invalid --commands: %w", err)
		}
		params.Commands = cmds
	}
	if updateSpecPatches != "" {
		raw, err := readContent(updateSpecPatches)
		if err != nil {
			return err
		}
		patches, err := editor.DecodePatches([]byte(raw))
		if err != nil {
			return fmt.Errorf("invalid --patches: %w", err)
		}
		params.Patches = patches
	}
	if updateSpecFile != "" || updateSpecContent != "" {
		if updateSpecFile == "" {
			return fmt.Errorf("--file is required with --content")
		}
		content, err := readContent(updateSpecContent)
		if err != nil {
			return err
		}
		params.Replace = &ops.ReplaceFile{
			File:    backend.FileType(updateSpecFile),
			Content: content,
		}
	}

	return withEnv(func(ctx context.Context, env *ops.Env) error {
		resp, err := env.UpdateSpec(ctx, params)
		if err != nil {
			return err
		}
		if err := emit(resp); err != nil {
			return err
		}
		if failedEdits(resp.Data) > 0 {
			return fmt.Errorf("edit batch failed; nothing was written")
		}
		return nil
	})
}

// failedEdits pulls the failure count out of an update envelope so the
// CLI can exit non-zero on a failed batch.
func failedEdits(data any) int {
	r, ok := data.(*ops.UpdateResult)
	if !ok {
		return 0
	}
	switch {
	case r.Commands != nil:
		return r.Commands.Failed
	case r.Patches != nil:
		return r.Patches.Failed
	}
	return 0
}
