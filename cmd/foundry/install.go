package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foundrymcp/foundry/internal/install"
	"github.com/foundrymcp/foundry/internal/ui"
)

var installCmd = &cobra.Command{
	Use:   "install CLIENT",
	Short: "Register foundry in an MCP client's config",
	Long: `Add foundry to an MCP client's configuration so the client starts
"foundry serve" automatically. Existing entries and unrelated settings
are left untouched; installing twice is a no-op.

Supported clients: claude-code, cursor, windsurf.`,
	Args: cobra.ExactArgs(1),
	RunE: runInstall,
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall CLIENT",
	Short: "Remove foundry from an MCP client's config",
	Args:  cobra.ExactArgs(1),
	RunE:  runUninstall,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which MCP clients foundry is registered with",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(installCmd, uninstallCmd, statusCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	res, err := install.Install(args[0])
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(res)
	}
	if res.Changed {
		fmt.Printf("%s registered foundry with %s (%s)\n", ui.IconPass, res.Target, res.Path)
	} else {
		fmt.Printf("foundry is already registered with %s\n", res.Target)
	}
	return nil
}

func runUninstall(cmd *cobra.Command, args []string) error {
	res, err := install.Uninstall(args[0])
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(res)
	}
	if res.Changed {
		fmt.Printf("%s removed foundry from %s\n", ui.IconPass, res.Target)
	} else {
		fmt.Printf("foundry was not registered with %s\n", res.Target)
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	statuses, err := install.Status()
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(statuses)
	}
	for _, st := range statuses {
		switch {
		case !st.ConfigFound:
			fmt.Printf("%s %-12s no config at %s\n", ui.IconWarn, st.Target, st.Path)
		case !st.Registered:
			fmt.Printf("%s %-12s not registered\n", ui.IconWarn, st.Target)
		case !st.BinaryFound:
			fmt.Printf("%s %-12s registered but the binary is missing: %s\n", ui.IconFail, st.Target, st.Command)
		default:
			fmt.Printf("%s %-12s registered (%s)\n", ui.IconPass, st.Target, st.Command)
		}
	}
	return nil
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
