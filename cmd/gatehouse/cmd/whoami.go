package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, _, cleanup, err := newFlow()
		if err != nil {
			return err
		}
		defer cleanup()

		f.Session().Init(cmd.Context())
		snap := f.Session().Snapshot()
		if !snap.IsAuthenticated() {
			fmt.Println("Not signed in.")
			return nil
		}

		status := "disabled"
		if snap.User.TwoFactorEnabled {
			status = "enabled"
		}
		fmt.Printf("%s (id %s, two-factor %s)\n", snap.User.Username, snap.User.ID, status)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}
