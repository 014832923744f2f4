package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/foundrymcp/foundry/internal/ops"
)

var (
	createProjectVision    string
	createProjectTechStack string
	createProjectSummary   string
	deleteProjectConfirm   string
)

var createProjectCmd = &cobra.Command{
	Use:   "create-project NAME",
	Short: "Create a project with its three context documents",
	Long: `Create a project directory holding vision.md, tech-stack.md, and
summary.md. Content flags accept literal text, @path to read a file, or
"-" to read stdin.

Examples:
  foundry create-project payments --vision "One-tap checkout for SMBs"
  foundry create-project payments --vision @docs/vision.md
  cat summary.md | foundry create-project payments --summary -`,
	Args: cobra.ExactArgs(1),
	RunE: runCreateProject,
}

var loadProjectCmd = &cobra.Command{
	Use:   "load-project NAME",
	Short: "Show a project's context documents and spec IDs",
	Args:  cobra.ExactArgs(1),
	RunE:  runLoadProject,
}

var listProjectsCmd = &cobra.Command{
	Use:   "list-projects",
	Short: "List every project",
	Args:  cobra.NoArgs,
	RunE:  runListProjects,
}

var deleteProjectCmd = &cobra.Command{
	Use:   "delete-project NAME",
	Short: "Delete a project and all of its specs",
	Long: `Delete a project and everything under it. Destructive: requires
--confirm with the exact project name.

Example:
  foundry delete-project payments --confirm payments`,
	Args: cobra.ExactArgs(1),
	RunE: runDeleteProject,
}

func init() {
	createProjectCmd.Flags().StringVar(&createProjectVision, "vision", "", "Vision document (text, @path, or - for stdin)")
	createProjectCmd.Flags().StringVar(&createProjectTechStack, "tech-stack", "", "Tech stack document (text, @path, or - for stdin)")
	createProjectCmd.Flags().StringVar(&createProjectSummary, "summary", "", "Summary document (text, @path, or - for stdin)")
	deleteProjectCmd.Flags().StringVar(&deleteProjectConfirm, "confirm", "", "Repeat the project name to confirm deletion")

	rootCmd.AddCommand(createProjectCmd, loadProjectCmd, listProjectsCmd, deleteProjectCmd)
}

func runCreateProject(cmd *cobra.Command, args []string) error {
	vision, err := readContent(createProjectVision)
	if err != nil {
		return err
	}
	tech, err := readContent(createProjectTechStack)
	if err != nil {
		return err
	}
	summary, err := readContent(createProjectSummary)
	if err != nil {
		return err
	}
	return withEnv(func(ctx context.Context, env *ops.Env) error {
		resp, err := env.CreateProject(ctx, ops.CreateProjectParams{
			Name:      args[0],
			Vision:    vision,
			TechStack: tech,
			Summary:   summary,
		})
		if err != nil {
			return err
		}
		return emit(resp)
	})
}

func runLoadProject(cmd *cobra.Command, args []string) error {
	return withEnv(func(ctx context.Context, env *ops.Env) error {
		resp, err := env.LoadProject(ctx, args[0])
		if err != nil {
			return err
		}
		return emit(resp)
	})
}

func runListProjects(cmd *cobra.Command, args []string) error {
	return withEnv(func(ctx context.Context, env *ops.Env) error {
		resp, err := env.ListProjects(ctx)
		if err != nil {
			return err
		}
		return emit(resp)
	})
}

func runDeleteProject(cmd *cobra.Command, args []string) error {
	return withEnv(func(ctx context.Context, env *ops.Env) error {
		resp, err := env.DeleteProject(ctx, ops.DeleteProjectParams{
			Name:    args[0],
			Confirm: deleteProjectConfirm,
		})
		if err != nil {
			return err
		}
		return emit(resp)
	})
}
