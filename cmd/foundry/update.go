package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/foundrymcp/foundry/internal/server"
	"github.com/foundrymcp/foundry/internal/ui"
	"github.com/foundrymcp/foundry/internal/updater"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update foundry to the latest release",
	Long: `Download the latest release for this platform and replace the running
binary in place. Restart foundry afterwards to pick it up.`,
	Args: cobra.NoArgs,
	RunE: runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	fmt.Fprintln(os.Stderr, ui.RenderSubtle("checking for updates..."))

	res := updater.CheckVersion(server.Version)
	if !res.UpdateAvailable {
		fmt.Printf("already at the latest version (v%s)\n", res.CurrentVersion)
		return nil
	}

	fmt.Fprintf(os.Stderr, "new version available: v%s -> v%s\n", res.CurrentVersion, res.LatestVersion)
	if err := updater.SelfUpdate(server.Version); err != nil {
		if res.ReleaseURL != "" {
			fmt.Fprintln(os.Stderr, ui.RenderSubtle("manual download: "+res.ReleaseURL))
		}
		return fmt.Errorf("update failed: %w", err)
	}

	fmt.Printf("%s updated to v%s; restart foundry to use it\n", ui.IconPass, res.LatestVersion)
	return nil
}
