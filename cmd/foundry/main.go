// Foundry: structured project context for AI coding agents.
//
// Foundry keeps a project's durable context (vision, tech stack, specs,
// task lists) as structured markdown that agents read and edit over MCP
// and humans manage from this CLI.
//
// Usage:
//
//	foundry serve                   # Start the MCP server (stdio transport)
//	foundry create-project NAME     # Work with projects and specs directly
//	foundry install claude-code     # Register the server with an MCP client
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/foundrymcp/foundry/internal/backend"
	"github.com/foundrymcp/foundry/internal/config"
	"github.com/foundrymcp/foundry/internal/ops"
	"github.com/foundrymcp/foundry/internal/server"
	"github.com/foundrymcp/foundry/internal/ui"
)

var jsonOutput bool

var rootCmd = &cobra.Command{
	Use:   "foundry",
	Short: "foundry - Structured project context for AI coding agents",
	Long: `Foundry keeps durable project context (vision, tech stack, specs, and
task lists) as structured markdown that both humans and coding agents
can read and edit.

Run "foundry serve" to expose the operations to agents over MCP, or use
the subcommands directly from scripts and terminals. Every subcommand
accepts --json to print the raw response envelope.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("foundry version %s\n", server.Version)
			return
		}
		_ = cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print raw response envelopes as JSON")
	rootCmd.Flags().BoolP("version", "V", false, "Print version information")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.RenderError(err.Error(), backend.CandidatesOf(err)))
		os.Exit(1)
	}
}

// withEnv resolves configuration, builds the operation environment, and
// runs fn under a signal-aware context. Every data subcommand goes
// through here so the CLI and the MCP server share one wiring path.
func withEnv(fn func(ctx context.Context, env *ops.Env) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	env, cleanup, err := server.NewEnv(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	return fn(ctx, env)
}

// readContent resolves flag values that may point elsewhere: "@path"
// reads a file, "-" reads stdin, anything else is taken literally.
func readContent(v string) (string, error) {
	switch {
	case v == "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	case strings.HasPrefix(v, "@"):
		path := strings.TrimPrefix(v, "@")
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", path, err)
		}
		return string(data), nil
	default:
		return v, nil
	}
}
