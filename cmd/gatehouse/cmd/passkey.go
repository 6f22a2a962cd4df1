package cmd

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gatehouse-dev/gatehouse/flow"
	"github.com/gatehouse-dev/gatehouse/passkey"
)

var passkeyCmd = &cobra.Command{
	Use:   "passkey",
	Short: "Manage and sign in with passkeys",
}

var passkeyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered passkeys",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, _, cleanup, err := newFlow()
		if err != nil {
			return err
		}
		defer cleanup()

		list, err := f.Passkeys(cmd.Context())
		if err != nil {
			return asDisplayError(err)
		}
		if list.Count == 0 {
			fmt.Println("No passkeys registered.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tCREATED\tLAST USED")
		for _, pk := range list.Passkeys {
			lastUsed := "never"
			if pk.LastUsedAt != nil {
				lastUsed = pk.LastUsedAt.Format("2006-01-02 15:04")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", pk.ID, pk.Label, pk.CreatedAt.Format("2006-01-02"), lastUsed)
		}
		return w.Flush()
	},
}

var passkeyAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Register a new passkey on this device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, _, cleanup, err := newFlow()
		if err != nil {
			return err
		}
		defer cleanup()

		if err := f.RegisterPasskey(cmd.Context(), args[0]); err != nil {
			return asCeremonyError(err, passkey.RegistrationMessage)
		}
		fmt.Printf("Passkey %q registered.\n", args[0])
		return nil
	},
}

var passkeyLoginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Sign in with a passkey",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, _, cleanup, err := newFlow()
		if err != nil {
			return err
		}
		defer cleanup()

		user, err := f.LoginWithPasskey(cmd.Context(), args[0])
		if err != nil {
			return asCeremonyError(err, passkey.AuthenticationMessage)
		}
		fmt.Printf("Signed in as %s\n", user.Username)
		return nil
	},
}

var passkeyRenameCmd = &cobra.Command{
	Use:   "rename <id> <name>",
	Short: "Rename a passkey",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, _, cleanup, err := newFlow()
		if err != nil {
			return err
		}
		defer cleanup()

		if err := f.RenamePasskey(cmd.Context(), args[0], args[1]); err != nil {
			return asDisplayError(err)
		}
		fmt.Println("Passkey renamed.")
		return nil
	},
}

var passkeyRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Delete a passkey",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, _, cleanup, err := newFlow()
		if err != nil {
			return err
		}
		defer cleanup()

		ok, err := confirm(fmt.Sprintf("Delete passkey %s? [y/N]", args[0]))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Cancelled.")
			return nil
		}

		if err := f.RemovePasskey(cmd.Context(), args[0]); err != nil {
			return asDisplayError(err)
		}
		fmt.Println("Passkey deleted.")
		return nil
	},
}

// asCeremonyError maps WebAuthn ceremony failures to their user-facing
// messages; everything else falls through to the standard display rules.
func asCeremonyError(err error, message func(error) string) error {
	switch {
	case errors.Is(err, passkey.ErrCancelled),
		errors.Is(err, passkey.ErrUnsupported),
		errors.Is(err, passkey.ErrSecurity),
		errors.Is(err, passkey.ErrCredentialExists),
		errors.Is(err, passkey.ErrNoCredential):
		return errors.New(message(err))
	case flow.IsFieldError(err):
		return errors.New(err.Error())
	default:
		return asDisplayError(err)
	}
}

func confirm(prompt string) (bool, error) {
	answer, err := promptLine(prompt)
	if err != nil {
		return false, err
	}
	return answer == "y" || answer == "Y" || answer == "yes", nil
}

func init() {
	passkeyCmd.AddCommand(passkeyListCmd)
	passkeyCmd.AddCommand(passkeyAddCmd)
	passkeyCmd.AddCommand(passkeyLoginCmd)
	passkeyCmd.AddCommand(passkeyRenameCmd)
	passkeyCmd.AddCommand(passkeyRemoveCmd)
	rootCmd.AddCommand(passkeyCmd)
}
