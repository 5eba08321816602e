// Package tasklist renders the task collection as two sections:
// active (including expired) tasks on top, completed tasks below.
package tasklist

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/romanslonov/todoapp/internal/keys"
	"github.com/romanslonov/todoapp/internal/model"
	"github.com/romanslonov/todoapp/internal/theme"
)

// Model is the Bubble Tea model for the task list.
type Model struct {
	keys   *keys.KeyMap
	tasks  []model.Task // visible order: active first, then completed
	cursor int
	width  int
	height int
}

// New creates a new task list model.
func New(k *keys.KeyMap, width, height int) Model {
	return Model{keys: k, width: width, height: height}
}

// SetTasks replaces the displayed tasks from a state snapshot, keeping
// the cursor on a valid row.
func (m *Model) SetTasks(tasks []model.Task) {
	visible := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Status != model.StatusCompleted {
			visible = append(visible, t)
		}
	}
	for _, t := range tasks {
		if t.Status == model.StatusCompleted {
			visible = append(visible, t)
		}
	}

	m.tasks = visible
	if m.cursor >= len(m.tasks) {
		m.cursor = len(m.tasks) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// SetSize updates the rendering dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Selected returns the task under the cursor, if any.
func (m Model) Selected() (model.Task, bool) {
	if len(m.tasks) == 0 {
		return model.Task{}, false
	}
	return m.tasks[m.cursor], true
}

// Update handles navigation messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Down):
		if m.cursor < len(m.tasks)-1 {
			m.cursor++
		}
	case key.Matches(keyMsg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	}

	return m, nil
}

// View renders the two task sections.
func (m Model) View() string {
	var b strings.Builder

	active, completed := 0, 0
	for _, t := range m.tasks {
		if t.Status == model.StatusCompleted {
			completed++
		} else {
			active++
		}
	}

	b.WriteString(theme.HeaderStyle.Render(fmt.Sprintf("Tasks — %d", active)))
	b.WriteString("\n\n")

	if len(m.tasks) == 0 {
		b.WriteString(theme.ListItemStyle.Render("No tasks yet. Press 'n' to create one."))
		b.WriteString("\n")
		return b.String()
	}

	inCompleted := false
	for i, t := range m.tasks {
		if t.Status == model.StatusCompleted && !inCompleted {
			inCompleted = true
			b.WriteString("\n")
			b.WriteString(theme.HeaderStyle.Render(fmt.Sprintf("Completed — %d", completed)))
			b.WriteString("\n\n")
		}

		b.WriteString(m.renderRow(t, i == m.cursor))
		b.WriteString("\n")
	}

	return b.String()
}

// renderRow renders a single task line.
func (m Model) renderRow(t model.Task, selected bool) string {
	checkbox := "[ ]"
	if t.Status == model.StatusCompleted {
		checkbox = "[x]"
	}

	title := t.Title
	if t.Status == model.StatusCompleted {
		title = theme.CompletedStyle.Render(title)
	}

	line := checkbox + " " + title
	if t.Status == model.StatusExpired {
		line += " " + theme.ExpiredLabelStyle.Render("expired")
	}
	if t.Due != nil {
		line += " " + theme.DueStyle.Render("· due "+t.Due.Format("2 Jan 2006 3:04PM"))
	}
	if n := len(t.Files); n > 0 {
		line += " " + theme.DueStyle.Render(fmt.Sprintf("· %d file(s)", n))
	}

	if selected {
		return theme.SelectedItemStyle.Render(line)
	}
	return theme.ListItemStyle.Render(line)
}
