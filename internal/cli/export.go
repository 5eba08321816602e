package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/romanslonov/todoapp/internal/model"
)

// exportTask is the YAML shape of one exported task.
type exportTask struct {
	ID        string       `yaml:"id"`
	Title     string       `yaml:"title"`
	Content   string       `yaml:"content,omitempty"`
	Status    string       `yaml:"status"`
	CreatedAt string       `yaml:"created_at"`
	Due       string       `yaml:"due,omitempty"`
	Files     []exportFile `yaml:"files,omitempty"`
}

type exportFile struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

func newExportCommand(cfgPath *string) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all tasks as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := Build(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer c.Close()

			tasks, err := c.Repo.FetchAll(cmd.Context())
			if err != nil {
				return err
			}

			exported := make([]exportTask, 0, len(tasks))
			for _, t := range tasks {
				exported = append(exported, toExportTask(t))
			}

			data, err := yaml.Marshal(exported)
			if err != nil {
				return fmt.Errorf("encoding tasks: %w", err)
			}

			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", out, err)
			}
			cmd.Printf("Exported %d tasks to %s\n", len(exported), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default stdout)")
	return cmd
}

func toExportTask(t model.Task) exportTask {
	et := exportTask{
		ID:        t.ID,
		Title:     t.Title,
		Content:   t.Content,
		Status:    string(t.Status),
		CreatedAt: t.CreatedAt.UTC().Format(time.RFC3339),
	}
	if t.Due != nil {
		et.Due = t.Due.UTC().Format(time.RFC3339)
	}
	for _, f := range t.Files {
		et.Files = append(et.Files, exportFile{Name: f.Name, Path: f.Path})
	}
	return et
}
