package cmd

import (
	"fmt"
	"os"

	"github.com/mdp/qrterminal/v3"
	"github.com/spf13/cobra"
)

var twoFactorCmd = &cobra.Command{
	Use:   "2fa",
	Short: "Manage two-factor authentication",
}

var twoFactorSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Enroll an authenticator app",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, _, cleanup, err := newFlow()
		if err != nil {
			return err
		}
		defer cleanup()

		setup, err := f.BeginTwoFactorSetup(cmd.Context())
		if err != nil {
			return asDisplayError(err)
		}

		fmt.Println("Scan this QR code with your authenticator app:")
		fmt.Println()
		qrterminal.GenerateWithConfig(setup.OtpauthURI, qrterminal.Config{
			Level:      qrterminal.L,
			Writer:     os.Stdout,
			HalfBlocks: true,
			QuietZone:  1,
		})
		fmt.Printf("\nOr enter the secret manually: %s\n\n", setup.Secret)

		code, err := promptLine("Enter a code to confirm")
		if err != nil {
			return err
		}
		if err := f.ConfirmTwoFactorSetup(cmd.Context(), code); err != nil {
			return asDisplayError(err)
		}

		fmt.Println("Two-factor authentication enabled.")
		return nil
	},
}

var twoFactorDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Turn off two-factor authentication",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, _, cleanup, err := newFlow()
		if err != nil {
			return err
		}
		defer cleanup()

		// The disable flow checks the cached user's enrollment first.
		f.Session().Init(cmd.Context())

		code, err := promptLine("Enter a current code to confirm")
		if err != nil {
			return err
		}
		if err := f.DisableTwoFactor(cmd.Context(), code); err != nil {
			return asDisplayError(err)
		}

		fmt.Println("Two-factor authentication disabled.")
		return nil
	},
}

func init() {
	twoFactorCmd.AddCommand(twoFactorSetupCmd)
	twoFactorCmd.AddCommand(twoFactorDisableCmd)
	rootCmd.AddCommand(twoFactorCmd)
}
