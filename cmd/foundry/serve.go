package main

import (
	"fmt"
	"os"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/foundrymcp/foundry/internal/config"
	"github.com/foundrymcp/foundry/internal/server"
	"github.com/foundrymcp/foundry/internal/updater"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server (stdio transport)",
	Long: `Start the MCP server on stdio. This is the command MCP clients run;
register it with "foundry install <client>" or add it manually:

  {
    "mcpServers": {
      "foundry": {
        "command": "foundry",
        "args": ["serve"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	s, cleanup, err := server.New(cfg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// Version check prints to stderr so it can never disturb the MCP
	// stdio transport on stdout. Best-effort, runs in the background.
	go notifyUpdates()

	return mcpserver.ServeStdio(s)
}

func notifyUpdates() {
	res := updater.CheckVersion(server.Version)
	if res.UpdateAvailable {
		fmt.Fprintf(os.Stderr,
			"update available: v%s -> v%s (run: foundry update)\n  %s\n",
			res.CurrentVersion, res.LatestVersion, res.ReleaseURL)
	}
}
