package app

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/romanslonov/todoapp/internal/model"
	"github.com/romanslonov/todoapp/internal/state"
	"github.com/romanslonov/todoapp/internal/ui/taskform"
)

// stateMsg carries a fresh state snapshot to the UI.
type stateMsg struct {
	state state.State
}

// fetchedMsg is sent after the initial or manual fetch completes.
type fetchedMsg struct {
	err error
}

// opResultMsg is sent after a repository operation completes. keepForm
// holds the form open so a failed submission can be retried.
type opResultMsg struct {
	err      error
	keepForm bool
}

// waitForState returns a command that waits for the next state
// snapshot. It re-arms itself from Update after every message.
func (m Model) waitForState() tea.Cmd {
	states := m.states
	return func() tea.Msg {
		st, ok := <-states
		if !ok {
			return nil
		}
		return stateMsg{state: st}
	}
}

// fetchTasks performs a full fetch-and-replace.
func (m Model) fetchTasks() tea.Cmd {
	repo := m.repo
	return func() tea.Msg {
		_, err := repo.FetchAll(context.Background())
		return fetchedMsg{err: err}
	}
}

// toggleTask flips a task between active and completed. Expired tasks
// are left alone.
func (m Model) toggleTask(task model.Task) tea.Cmd {
	repo := m.repo
	status, ok := nextStatus(task)
	if !ok {
		return nil
	}
	return func() tea.Msg {
		err := repo.ChangeStatus(context.Background(), task.ID, status)
		return opResultMsg{err: err}
	}
}

// removeTask deletes a task along with its attachments.
func (m Model) removeTask(task model.Task) tea.Cmd {
	repo := m.repo
	return func() tea.Msg {
		err := repo.Remove(context.Background(), task)
		return opResultMsg{err: err}
	}
}

// submitForm persists a form submission: file paths are read into
// uploads, then the payload goes through Create or Update.
func (m Model) submitForm(msg taskform.SubmitMsg) tea.Cmd {
	repo := m.repo
	editTask, editing := m.taskForm.EditTask()
	return func() tea.Msg {
		payload := msg.Payload

		files, err := readUploads(msg.FilePaths)
		if err != nil {
			return opResultMsg{err: err, keepForm: true}
		}
		payload.Files = files

		if editing && msg.EditID != "" {
			_, err = repo.Update(context.Background(), editTask, payload)
		} else {
			_, err = repo.Create(context.Background(), payload)
		}
		return opResultMsg{err: err, keepForm: err != nil}
	}
}

// readUploads loads local files into upload payloads.
func readUploads(paths []string) ([]model.FileUpload, error) {
	var uploads []model.FileUpload
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading attachment %s: %w", p, err)
		}
		uploads = append(uploads, model.FileUpload{
			Name:        filepath.Base(p),
			ContentType: contentTypeFor(p),
			Data:        data,
		})
	}
	return uploads, nil
}

// contentTypeFor guesses a MIME type from the file extension.
func contentTypeFor(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
