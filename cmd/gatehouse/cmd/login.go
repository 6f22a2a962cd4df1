package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Sign in with a password",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, _, cleanup, err := newFlow()
		if err != nil {
			return err
		}
		defer cleanup()

		username := ""
		if len(args) == 1 {
			username = args[0]
		} else {
			username, err = promptLine("Username")
			if err != nil {
				return err
			}
		}

		password, err := promptPassword("Password")
		if err != nil {
			return err
		}
		defer password.Destroy()

		outcome, err := f.Login(cmd.Context(), username, password.String())
		if err != nil {
			return asDisplayError(err)
		}

		user := outcome.User
		if outcome.TwoFactorRequired {
			code, err := promptLine("Two-factor code")
			if err != nil {
				return err
			}
			user, err = f.VerifyLogin(cmd.Context(), code)
			if err != nil {
				return asDisplayError(err)
			}
		}

		fmt.Printf("Signed in as %s\n", user.Username)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
}
