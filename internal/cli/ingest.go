package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/romanslonov/todoapp/internal/credential"
	"github.com/romanslonov/todoapp/internal/ingest/email"
)

func newIngestCommand(cfgPath *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Capture flagged mailbox messages as tasks",
		Long:  "ingest connects to the configured IMAP mailbox, turns every flagged\nmessage into a task (subject becomes the title, body the note, attachments\nbecome files), and removes the flag afterwards.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := Build(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer c.Close()

			ec := c.Config.Email
			if !ec.Enabled {
				return fmt.Errorf("email capture is disabled, set email.enabled in %s", *cfgPath)
			}
			if ec.Host == "" || ec.Username == "" {
				return fmt.Errorf("email capture needs email.host and email.username in %s", *cfgPath)
			}

			password, err := credential.Get(ec.PasswordKey)
			if err != nil {
				return fmt.Errorf("reading mailbox password: %w", err)
			}

			if limit <= 0 {
				limit = ec.Limit
			}

			client := email.NewClient(ec.Host, ec.Port, ec.Username, password, ec.TLS)
			capturer := email.NewCapturer(client, c.Repo, c.Logger)

			n, err := capturer.Run(cmd.Context(), limit)
			if err != nil {
				return err
			}
			cmd.Printf("Captured %d tasks\n", n)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "max messages to examine (default from config)")
	return cmd
}
