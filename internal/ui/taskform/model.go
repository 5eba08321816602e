// Package taskform is the create/edit form for a task, built on huh.
package taskform

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/romanslonov/todoapp/internal/model"
)

// SubmitMsg is dispatched when the form is submitted. EditID is empty
// for a create; FilePaths are local paths the user wants attached.
type SubmitMsg struct {
	EditID    string
	Payload   model.TaskPayload
	FilePaths []string
}

// CancelMsg is dispatched when the user cancels the form.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's
// Value() pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	title   string
	content string
	due     string
	files   string
}

// Model is the Bubble Tea model for the task create/edit form.
type Model struct {
	form     *huh.Form
	fb       *formBindings
	editMode bool
	editTask model.Task
	width    int
	height   int
}

// New creates a new task form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
}

// StartCreate initializes the form for creating a new task.
func (m *Model) StartCreate() tea.Cmd {
	m.editMode = false
	m.editTask = model.Task{}
	m.fb.title = ""
	m.fb.content = ""
	m.fb.due = ""
	m.fb.files = ""
	m.form = m.buildForm("Create task")
	return m.form.Init()
}

// StartEdit initializes the form for editing an existing task.
func (m *Model) StartEdit(task model.Task) tea.Cmd {
	m.editMode = true
	m.editTask = task
	m.fb.title = task.Title
	m.fb.content = task.Content
	if task.Due != nil {
		m.fb.due = task.Due.Local().Format("2006-01-02T15:04")
	} else {
		m.fb.due = ""
	}
	m.fb.files = ""
	m.form = m.buildForm("Edit task")
	return m.form.Init()
}

// buildForm constructs the huh form for both modes.
func (m *Model) buildForm(title string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().Title(title),
			huh.NewInput().
				Title("Title").
				Placeholder("Make a dinner").
				Value(&m.fb.title).
				Validate(requireNonEmpty("Title is required.")),
			huh.NewText().
				Title("Note").
				Placeholder("Some note about this task").
				Value(&m.fb.content).
				Validate(requireNonEmpty("Content is required.")),
			huh.NewInput().
				Title("Due (optional)").
				Placeholder("2006-01-02T15:04").
				Value(&m.fb.due).
				Validate(validateDue),
			huh.NewText().
				Title("Attach files (optional)").
				Description("One local file path per line.").
				Value(&m.fb.files),
		),
	).WithWidth(min(m.width, 72)).WithShowHelp(true)
}

// Update handles messages for the task form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "esc" {
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{} }
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		msg := SubmitMsg{
			EditID: m.editTask.ID,
			Payload: model.TaskPayload{
				Title:   strings.TrimSpace(m.fb.title),
				Content: strings.TrimSpace(m.fb.content),
				Due:     strings.TrimSpace(m.fb.due),
			},
			FilePaths: splitPaths(m.fb.files),
		}
		m.form = nil
		return m, func() tea.Msg { return msg }
	}

	return m, cmd
}

// EditTask returns the task being edited, if the form is in edit mode.
func (m Model) EditTask() (model.Task, bool) {
	return m.editTask, m.editMode
}

// View renders the form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}
	return m.form.View()
}

// requireNonEmpty returns a validator rejecting blank input.
func requireNonEmpty(message string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s", message)
		}
		return nil
	}
}

// validateDue accepts an empty due or a parseable date-time that is not
// already in the past.
func validateDue(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	due, err := model.TaskPayload{Due: s}.ParseDue()
	if err != nil {
		return fmt.Errorf("Use a format like 2006-01-02T15:04.")
	}
	if due.Before(time.Now()) {
		return fmt.Errorf("You cannot select a due time older than the current one.")
	}
	return nil
}

// splitPaths splits the files field into cleaned, non-empty paths.
func splitPaths(s string) []string {
	var paths []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			paths = append(paths, line)
		}
	}
	return paths
}
