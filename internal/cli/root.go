// Package cli provides the command-line interface for todoapp.
package cli

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/romanslonov/todoapp/internal/app"
	"github.com/romanslonov/todoapp/internal/config"
	"github.com/romanslonov/todoapp/internal/model"
	"github.com/romanslonov/todoapp/internal/watch"
)

// NewRootCommand creates the root command. Running it with no
// subcommand launches the interactive task list.
func NewRootCommand(version string) *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "todoapp",
		Short:         "Terminal task manager",
		Long:          "todoapp is a terminal task manager with due dates and file attachments.\nTasks live in a local SQLite database by default; PostgreSQL and a remote\nHTTP backend are also supported.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), cfgPath)
		},
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultConfigPath(), "path to the configuration file")

	root.AddCommand(newInitCommand(&cfgPath))
	root.AddCommand(newListCommand(&cfgPath))
	root.AddCommand(newAddCommand(&cfgPath))
	root.AddCommand(newDoneCommand(&cfgPath))
	root.AddCommand(newRemoveCommand(&cfgPath))
	root.AddCommand(newExportCommand(&cfgPath))
	root.AddCommand(newIngestCommand(&cfgPath))
	root.AddCommand(newAuthCommand())

	return root
}

// runTUI wires the full application and hands control to bubbletea.
func runTUI(ctx context.Context, cfgPath string) error {
	c, err := Build(ctx, cfgPath)
	if err != nil {
		return err
	}
	defer c.Close()

	interval := time.Duration(c.Config.Watcher.IntervalSec) * time.Second
	if interval <= 0 {
		interval = watch.DefaultInterval
	}
	watcher := watch.New(interval, func(taskID string) {
		expireCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.Repo.ChangeStatus(expireCtx, taskID, model.StatusExpired); err != nil {
			c.Logger.Error("marking task expired", "task_id", taskID, "error", err)
		}
	})
	defer watcher.Close()

	m := app.New(c.Repo, c.Store, watcher, c.Logger)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
