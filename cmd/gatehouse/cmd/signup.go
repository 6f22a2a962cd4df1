package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var signupCmd = &cobra.Command{
	Use:   "signup [username]",
	Short: "Create a new account",
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

		confirm, err := promptPassword("Confirm password")
		if err != nil {
			return err
		}
		defer confirm.Destroy()

		if !password.EqualTo(confirm.Bytes()) {
			return errors.New("passwords do not match")
		}

		user, err := f.Signup(cmd.Context(), username, password.String())
		if err != nil {
			return asDisplayError(err)
		}

		fmt.Printf("Account %s created. Run 'gatehouse login %s' to sign in.\n", user.Username, user.Username)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(signupCmd)
}
