package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/foundrymcp/foundry/internal/ops"
)

var (
	createSpecSpec    string
	createSpecTasks   string
	createSpecNotes   string
	deleteSpecConfirm string
)

var createSpecCmd = &cobra.Command{
	Use:   "create-spec PROJECT FEATURE",
	Short: "Create a timestamped spec under a project",
	Long: `Create a spec (spec.md, task-list.md, notes.md) under a project. The
spec ID is derived from today's date and the feature name, so specs sort
newest first. Content flags accept literal text, @path, or "-" for stdin.

Examples:
  foundry create-spec payments refund-flow --spec @specs/refunds.md
  foundry create-spec payments refund-flow --tasks "- [ ] Wire refund API"`,
	Args: cobra.ExactArgs(2),
	RunE: runCreateSpec,
}

var loadSpecCmd = &cobra.Command{
	Use:   "load-spec PROJECT SPEC_ID",
	Short: "Show a spec's three documents and task progress",
	Args:  cobra.ExactArgs(2),
	RunE:  runLoadSpec,
}

var listSpecsCmd = &cobra.Command{
	Use:   "list-specs PROJECT",
	Short: "List a project's specs, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runListSpecs,
}

var deleteSpecCmd = &cobra.Command{
	Use:   "delete-spec PROJECT SPEC_ID",
	Short: "Delete one spec",
	Long: `Delete a spec and its three documents. Destructive: requires --confirm
with the exact spec ID.

Example:
  foundry delete-spec payments 2026-08-25-refund-flow --confirm 2026-08-25-refund-flow`,
	Args: cobra.ExactArgs(2),
	RunE: runDeleteSpec,
}

func init() {
	createSpecCmd.Flags().StringVar(&createSpecSpec, "spec", "", "Spec document (text, @path, or - for stdin)")
	createSpecCmd.Flags().StringVar(&createSpecTasks, "tasks", "", "Task list document (text, @path, or - for stdin)")
	createSpecCmd.Flags().StringVar(&createSpecNotes, "notes", "", "Notes document (text, @path, or - for stdin)")
	deleteSpecCmd.Flags().StringVar(&deleteSpecConfirm, "confirm", "", "Repeat the spec ID to confirm deletion")

	rootCmd.AddCommand(createSpecCmd, loadSpecCmd, listSpecsCmd, deleteSpecCmd)
}

func runCreateSpec(cmd *cobra.Command, args []string) error {
	spec, err := readContent(createSpecSpec)
	if err != nil {
		return err
	}
	tasks, err := readContent(createSpecTasks)
	if err != nil {
		return err
	}
	notes, err := readContent(createSpecNotes)
	if err != nil {
		return err
	}
	return withEnv(func(ctx context.Context, env *ops.Env) error {
		resp, err := env.CreateSpec(ctx, ops.CreateSpecParams{
			Project: args[0],
			Feature: args[1],
			Spec:    spec,
			Tasks:   tasks,
			Notes:   notes,
		})
		if err != nil {
			return err
		}
		return emit(resp)
	})
}

func runLoadSpec(cmd *cobra.Command, args []string) error {
	return withEnv(func(ctx context.Context, env *ops.Env) error {
		resp, err := env.LoadSpec(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		return emit(resp)
	})
}

func runListSpecs(cmd *cobra.Command, args []string) error {
	return withEnv(func(ctx context.Context, env *ops.Env) error {
		resp, err := env.ListSpecs(ctx, args[0])
		if err != nil {
			return err
		}
		return emit(resp)
	})
}

func runDeleteSpec(cmd *cobra.Command, args []string) error {
	return withEnv(func(ctx context.Context, env *ops.Env) error {
		resp, err := env.DeleteSpec(ctx, ops.DeleteSpecParams{
			Project: args[0],
			SpecID:  args[1],
			Confirm: deleteSpecConfirm,
		})
		if err != nil {
			return err
		}
		return emit(resp)
	})
}
