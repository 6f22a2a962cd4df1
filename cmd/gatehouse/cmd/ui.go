package cmd

import (
	"github.com/spf13/cobra"

	"github.com/gatehouse-dev/gatehouse/tui"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Start the interactive terminal interface",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, cfg, cleanup, err := newFlow()
		if err != nil {
			return err
		}
		defer cleanup()

		printBanner()
		return tui.Run(cmd.Context(), f, cfg.TUI.AltScreen)
	},
}

func init() {
	rootCmd.AddCommand(uiCmd)
}
