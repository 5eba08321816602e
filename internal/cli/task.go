package cli

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/romanslonov/todoapp/internal/model"
)

func newListCommand(cfgPath *string) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
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

			if len(tasks) == 0 {
				cmd.Println("No tasks.")
				return nil
			}

			for _, t := range tasks {
				if !all && t.Status == model.StatusCompleted {
					continue
				}
				cmd.Println(formatTaskLine(t))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "include completed tasks")
	return cmd
}

func newAddCommand(cfgPath *string) *cobra.Command {
	var content string
	var due string
	var files []string

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := Build(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer c.Close()

			uploads, err := readFileUploads(files)
			if err != nil {
				return err
			}

			payload := model.TaskPayload{
				Title:   strings.Join(args, " "),
				Content: content,
				Due:     due,
				Files:   uploads,
			}

			task, err := c.Repo.Create(cmd.Context(), payload)
			if err != nil {
				return err
			}

			cmd.Printf("Added task %s\n", task.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&content, "note", "m", "", "task note")
	cmd.Flags().StringVarP(&due, "due", "d", "", "due date (e.g. 2026-01-02T15:04)")
	cmd.Flags().StringArrayVarP(&files, "file", "f", nil, "attach a file (repeatable)")
	return cmd
}

func newDoneCommand(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "done <task-id>",
		Short: "Mark a task as completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := Build(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer c.Close()

			task, err := findTask(cmd, c, args[0])
			if err != nil {
				return err
			}
			if !task.Status.CanTransitionTo(model.StatusCompleted) {
				return fmt.Errorf("task %s is %s and cannot be completed", task.ID, task.Status)
			}

			if err := c.Repo.ChangeStatus(cmd.Context(), task.ID, model.StatusCompleted); err != nil {
				return err
			}
			cmd.Printf("Completed %s\n", task.Title)
			return nil
		},
	}
}

func newRemoveCommand(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <task-id>",
		Aliases: []string{"remove"},
		Short:   "Remove a task and its attachments",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := Build(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer c.Close()

			task, err := findTask(cmd, c, args[0])
			if err != nil {
				return err
			}

			if err := c.Repo.Remove(cmd.Context(), task); err != nil {
				return err
			}
			cmd.Printf("Removed %s\n", task.Title)
			return nil
		},
	}
}

// findTask fetches all tasks and resolves ref as an exact id or a
// unique id prefix.
func findTask(cmd *cobra.Command, c *Container, ref string) (model.Task, error) {
	tasks, err := c.Repo.FetchAll(cmd.Context())
	if err != nil {
		return model.Task{}, err
	}

	var matches []model.Task
	for _, t := range tasks {
		if t.ID == ref {
			return t, nil
		}
		if strings.HasPrefix(t.ID, ref) {
			matches = append(matches, t)
		}
	}

	switch len(matches) {
	case 0:
		return model.Task{}, fmt.Errorf("no task matches %q", ref)
	case 1:
		return matches[0], nil
	default:
		return model.Task{}, fmt.Errorf("%q matches %d tasks, use a longer prefix", ref, len(matches))
	}
}

// readFileUploads loads local files as attachment uploads.
func readFileUploads(paths []string) ([]model.FileUpload, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	uploads := make([]model.FileUpload, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading attachment %s: %w", p, err)
		}
		ct := mime.TypeByExtension(filepath.Ext(p))
		if ct == "" {
			ct = "application/octet-stream"
		}
		uploads = append(uploads, model.FileUpload{
			Name:        filepath.Base(p),
			ContentType: ct,
			Data:        data,
		})
	}
	return uploads, nil
}

// formatTaskLine renders one task for plain-text listings.
func formatTaskLine(t model.Task) string {
	var b strings.Builder

	mark := " "
	switch t.Status {
	case model.StatusCompleted:
		mark = "x"
	case model.StatusExpired:
		mark = "!"
	}
	fmt.Fprintf(&b, "[%s] %-8s %s", mark, shortID(t.ID), t.Title)

	if t.Due != nil {
		fmt.Fprintf(&b, "  (due %s)", t.Due.Local().Format("2006-01-02 15:04"))
	}
	if n := len(t.Files); n == 1 {
		b.WriteString("  [1 file]")
	} else if n > 1 {
		fmt.Fprintf(&b, "  [%d files]", n)
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
