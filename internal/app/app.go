// Package app wires the task list and form into the root Bubble Tea
// model and connects them to the repository and expiry watcher.
package app

import (
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/romanslonov/todoapp/internal/keys"
	"github.com/romanslonov/todoapp/internal/model"
	"github.com/romanslonov/todoapp/internal/repository"
	"github.com/romanslonov/todoapp/internal/state"
	"github.com/romanslonov/todoapp/internal/theme"
	"github.com/romanslonov/todoapp/internal/ui/taskform"
	"github.com/romanslonov/todoapp/internal/ui/tasklist"
	"github.com/romanslonov/todoapp/internal/watch"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewList ViewState = iota
	ViewForm
)

// Model is the root Bubble Tea model. It reads task state only through
// store snapshots and mutates it only through repository operations.
type Model struct {
	currentView ViewState
	repo        *repository.Repository
	store       *state.Store
	watcher     *watch.Watcher
	states      <-chan state.State
	keys        *keys.KeyMap
	logger      *slog.Logger

	taskList tasklist.Model
	taskForm taskform.Model

	width    int
	height   int
	errMsg   string
	showHelp bool
}

// New creates the root application model.
func New(repo *repository.Repository, st *state.Store, watcher *watch.Watcher, logger *slog.Logger) Model {
	k := keys.DefaultKeyMap()
	return Model{
		currentView: ViewList,
		repo:        repo,
		store:       st,
		watcher:     watcher,
		states:      st.Subscribe(),
		keys:        k,
		logger:      logger,
		taskList:    tasklist.New(k, 80, 24),
		taskForm:    taskform.New(80, 24),
	}
}

// Init triggers the initial fetch and subscribes to state snapshots.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchTasks(), m.waitForState())
}

// Update routes messages to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.taskList.SetSize(msg.Width, msg.Height)
		return m, nil

	case stateMsg:
		m.taskList.SetTasks(msg.state.Tasks)
		m.watcher.Sync(msg.state.Tasks)
		return m, m.waitForState()

	case fetchedMsg:
		if msg.err != nil {
			m.errMsg = msg.err.Error()
			m.logger.Error("fetching tasks failed", "error", msg.err)
		} else {
			m.errMsg = ""
		}
		return m, nil

	case opResultMsg:
		if msg.err != nil {
			m.errMsg = msg.err.Error()
			m.logger.Error("task operation failed", "error", msg.err)
			// A failed submit keeps the form open for retry.
			if msg.keepForm {
				return m, nil
			}
		} else {
			m.errMsg = ""
			if m.currentView == ViewForm {
				m.currentView = ViewList
			}
		}
		return m, nil

	case taskform.SubmitMsg:
		return m, m.submitForm(msg)

	case taskform.CancelMsg:
		m.currentView = ViewList
		return m, nil

	case tea.KeyMsg:
		if m.currentView == ViewForm {
			break
		}
		return m.handleListKey(msg)
	}

	if m.currentView == ViewForm {
		var cmd tea.Cmd
		m.taskForm, cmd = m.taskForm.Update(msg)
		return m, cmd
	}

	return m, nil
}

// handleListKey handles keys while the list view is active.
func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.watcher.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		return m, m.fetchTasks()

	case key.Matches(msg, m.keys.New):
		m.currentView = ViewForm
		return m, m.taskForm.StartCreate()

	case key.Matches(msg, m.keys.Edit):
		task, ok := m.taskList.Selected()
		if !ok {
			return m, nil
		}
		m.currentView = ViewForm
		return m, m.taskForm.StartEdit(task)

	case key.Matches(msg, m.keys.Delete):
		task, ok := m.taskList.Selected()
		if !ok {
			return m, nil
		}
		return m, m.removeTask(task)

	case key.Matches(msg, m.keys.Toggle):
		task, ok := m.taskList.Selected()
		if !ok {
			return m, nil
		}
		return m, m.toggleTask(task)
	}

	var cmd tea.Cmd
	m.taskList, cmd = m.taskList.Update(msg)
	return m, cmd
}

// View renders the active view plus the status and help lines.
func (m Model) View() string {
	var b strings.Builder

	switch m.currentView {
	case ViewForm:
		b.WriteString(m.taskForm.View())
	default:
		b.WriteString(m.taskList.View())
	}

	if m.errMsg != "" {
		b.WriteString("\n")
		b.WriteString(theme.ErrorStyle.Render(m.errMsg))
	}

	b.WriteString("\n")
	if m.showHelp {
		b.WriteString(theme.HelpStyle.Render(helpText(m.keys)))
	} else {
		b.WriteString(theme.HelpStyle.Render("? help · q quit"))
	}

	return b.String()
}

// helpText renders the full keybinding help line.
func helpText(k *keys.KeyMap) string {
	bindings := []key.Binding{
		k.Up, k.Down, k.Toggle, k.New, k.Edit, k.Delete, k.Refresh, k.Help, k.Quit,
	}

	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " · ")
}

// nextStatus computes the toggle target for a task, honoring the rule
// that an expired task never returns to active through normal flow.
func nextStatus(t model.Task) (model.Status, bool) {
	switch t.Status {
	case model.StatusActive:
		return model.StatusCompleted, true
	case model.StatusCompleted:
		return model.StatusActive, true
	default:
		return "", false
	}
}
