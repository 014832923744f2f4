package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/foundrymcp/foundry/internal/ops"
)

var validateSpecCmd = &cobra.Command{
	Use:   "validate-spec PROJECT SPEC_ID",
	Short: "Report a spec's document health and task progress",
	Long: `Check a spec without changing it: per-document sizes, empty documents,
and task counts. Incomplete means there is follow-up work, never that
something is broken.`,
	Args: cobra.ExactArgs(2),
	RunE: runValidateSpec,
}

func init() {
	rootCmd.AddCommand(validateSpecCmd)
}

func runValidateSpec(cmd *cobra.Command, args []string) error {
	return withEnv(func(ctx context.Context, env *ops.Env) error {
		resp, err := env.ValidateSpec(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		return emit(resp)
	})
}
