package model

import (
	"fmt"
	"strings"
	"time"
)

// Task is a user-created to-do item with an optional deadline and attachments.
type Task struct {
	// ID is assigned by the document store on creation and never changes.
	ID string `json:"id"`

	// Title is the short human-readable summary of the task.
	Title string `json:"title"`

	// Content is the free-text note attached to the task.
	Content string `json:"content"`

	// Status is the lifecycle state (use the Status* constants).
	Status Status `json:"status"`

	// CreatedAt is set once at creation and is immutable.
	CreatedAt time.Time `json:"created_at"`

	// Due is the optional deadline. Nil means the task has no deadline.
	Due *time.Time `json:"due,omitempty"`

	// Files are the attachments in upload order. Edits only ever add files.
	Files []TaskFile `json:"files"`
}

// TaskFile is a single attachment. Its ID is independent of the storage
// path so that renaming storage keys never changes the attachment identity.
type TaskFile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// FileUpload carries the raw bytes of a file the user wants to attach.
type FileUpload struct {
	Name        string
	ContentType string
	Data        []byte
}

// TaskPayload is the user-facing input for creating or editing a task.
// Due is a date-time string as entered in the form; empty means no deadline.
type TaskPayload struct {
	Title   string
	Content string
	Due     string
	Files   []FileUpload
}

// Validate checks that the payload satisfies the form constraints.
func (p TaskPayload) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("task title must not be empty")
	}
	if strings.TrimSpace(p.Content) == "" {
		return fmt.Errorf("task content must not be empty")
	}
	if _, err := p.ParseDue(); err != nil {
		return err
	}
	return nil
}

// dueLayouts are the accepted due date-time formats, tried in order.
// The short layout matches what an HTML datetime-local input produces.
var dueLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ParseDue parses the payload's due string. An empty string parses to nil.
func (p TaskPayload) ParseDue() (*time.Time, error) {
	if p.Due == "" {
		return nil, nil
	}
	for _, layout := range dueLayouts {
		if t, err := time.ParseInLocation(layout, p.Due, time.Local); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("parsing due date %q: unrecognized format", p.Due)
}

// StatusForDue computes the temporal status of a task from its due date.
// A nil due or a due in the future yields active; a due at or before now
// yields expired. Completion is tracked separately by the caller.
func StatusForDue(due *time.Time, now time.Time) Status {
	if due == nil {
		return StatusActive
	}
	if !now.Before(*due) {
		return StatusExpired
	}
	return StatusActive
}

// Overdue reports whether the task has a due date at or before now.
func (t Task) Overdue(now time.Time) bool {
	return t.Due != nil && !now.Before(*t.Due)
}
