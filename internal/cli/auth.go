package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/romanslonov/todoapp/internal/credential"
)

func newAuthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage stored credentials",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key>",
		Short: "Store a credential in the system keyring",
		Long:  "set prompts for a secret and stores it under the given keyring key,\ne.g. backend-token for the remote backend or email-password for ingest.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := promptSecret(fmt.Sprintf("Value for %s", args[0]))
			if err != nil {
				return err
			}
			if secret == "" {
				return fmt.Errorf("empty value, nothing stored")
			}
			if err := credential.Set(args[0], secret); err != nil {
				return err
			}
			cmd.Printf("Stored %s\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "unset <key>",
		Short: "Remove a credential from the system keyring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := credential.Delete(args[0]); err != nil {
				return err
			}
			cmd.Printf("Removed %s\n", args[0])
			return nil
		},
	})

	return cmd
}

func promptSecret(title string) (string, error) {
	var secret string
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title(title).
			EchoMode(huh.EchoModePassword).
			Value(&secret),
	))
	if err := form.Run(); err != nil {
		return "", err
	}
	return strings.TrimSpace(secret), nil
}
