package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foundrymcp/foundry/internal/config"
	"github.com/foundrymcp/foundry/internal/ui"
)

var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write a starter config.yaml to the foundry root",
	Long: `Write a commented starter config.yaml to the foundry root (FOUNDRY_ROOT
or $HOME/.foundry). Refuses to overwrite an existing file.`,
	Args: cobra.NoArgs,
	RunE: runInitConfig,
}

func init() {
	rootCmd.AddCommand(initConfigCmd)
}

func runInitConfig(cmd *cobra.Command, args []string) error {
	root, err := config.ResolveRoot()
	if err != nil {
		return err
	}
	path, err := config.InitFile(root)
	if err != nil {
		return err
	}
	fmt.Printf("%s wrote %s\n", ui.IconPass, path)
	fmt.Println(ui.RenderSubtle("edit it to switch backends or tune the linear client"))
	return nil
}
