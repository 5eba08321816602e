package state

import "github.com/romanslonov/todoapp/internal/model"

// Action is one of a closed set of state transitions applied to the task
// state. The set is sealed: only the five variants in this file satisfy
// the interface, so dispatch over actions is exhaustive by construction.
type Action interface {
	isAction()
}

// SetTasks replaces the entire collection. Used after a full fetch.
type SetTasks struct {
	Tasks []model.Task
}

// CreateTask prepends a newly persisted task to the front of the list.
type CreateTask struct {
	Task model.Task
}

// ChangeStatusTask replaces the status of the task matching TaskID,
// leaving every other field untouched. Unknown ids are a no-op.
type ChangeStatusTask struct {
	TaskID string
	Status model.Status
}

// UpdateTask replaces the whole record of the task matching TaskID with
// Data, reassigned the same id. Unknown ids are a no-op.
type UpdateTask struct {
	TaskID string
	Data   model.Task
}

// RemoveTask filters out the task matching TaskID. Unknown ids are a no-op.
type RemoveTask struct {
	TaskID string
}

func (SetTasks) isAction()         {}
func (CreateTask) isAction()       {}
func (ChangeStatusTask) isAction() {}
func (UpdateTask) isAction()       {}
func (RemoveTask) isAction()       {}
