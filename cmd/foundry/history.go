package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/foundrymcp/foundry/internal/ops"
)

var (
	historyProject string
	historyLimit   int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent operations from the journal",
	Long: `Show the operation journal, newest first: what ran, against which
project and spec, the backend, the outcome, and how long it took.

Examples:
  foundry history
  foundry history --project payments --limit 50`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyProject, "project", "", "Only operations touching this project")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "Maximum entries to show (default 20)")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	return withEnv(func(ctx context.Context, env *ops.Env) error {
		resp, err := env.History(ctx, ops.HistoryParams{
			Project: historyProject,
			Limit:   historyLimit,
		})
		if err != nil {
			return err
		}
		return emit(resp)
	})
}
