package repository

import (
	"fmt"
	"time"

	"github.com/romanslonov/todoapp/internal/backend"
	"github.com/romanslonov/todoapp/internal/model"
)

// encodeTask converts a task into document fields. Timestamps are
// stored as RFC 3339 strings in UTC. An absent due date is omitted
// entirely rather than written as a sentinel value.
func encodeTask(t model.Task) map[string]any {
	files := make([]any, len(t.Files))
	for i, f := range t.Files {
		files[i] = map[string]any{
			"id":   f.ID,
			"name": f.Name,
			"path": f.Path,
		}
	}

	fields := map[string]any{
		"title":      t.Title,
		"content":    t.Content,
		"status":     string(t.Status),
		"created_at": t.CreatedAt.UTC().Format(time.RFC3339Nano),
		"files":      files,
	}
	if t.Due != nil {
		fields["due"] = t.Due.UTC().Format(time.RFC3339Nano)
	}
	return fields
}

// decodeTask converts a stored document back into a task.
func decodeTask(doc backend.Document) (model.Task, error) {
	status := model.Status(stringField(doc.Fields, "status"))
	if !status.IsValid() {
		return model.Task{}, fmt.Errorf("decoding task %s: invalid status %q", doc.ID, status)
	}

	task := model.Task{
		ID:      doc.ID,
		Title:   stringField(doc.Fields, "title"),
		Content: stringField(doc.Fields, "content"),
		Status:  status,
	}

	createdAt, err := timeField(doc.Fields, "created_at")
	if err != nil {
		return model.Task{}, fmt.Errorf("decoding task %s: %w", doc.ID, err)
	}
	if createdAt == nil {
		return model.Task{}, fmt.Errorf("decoding task %s: missing created_at", doc.ID)
	}
	task.CreatedAt = *createdAt

	due, err := timeField(doc.Fields, "due")
	if err != nil {
		return model.Task{}, fmt.Errorf("decoding task %s: %w", doc.ID, err)
	}
	task.Due = due

	task.Files, err = filesField(doc.Fields)
	if err != nil {
		return model.Task{}, fmt.Errorf("decoding task %s: %w", doc.ID, err)
	}

	return task, nil
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}

// timeField parses an RFC 3339 timestamp field. A missing field decodes
// to nil, not an error.
func timeField(fields map[string]any, key string) (*time.Time, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		return nil, nil
	}

	switch v := v.(type) {
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("parsing %s %q: %w", key, v, err)
		}
		return &t, nil
	case time.Time:
		return &v, nil
	default:
		return nil, fmt.Errorf("unexpected %s type %T", key, v)
	}
}

// filesField decodes the attachment list. Adapters that round-trip
// through JSON hand back []any of map[string]any.
func filesField(fields map[string]any) ([]model.TaskFile, error) {
	v, ok := fields["files"]
	if !ok || v == nil {
		return nil, nil
	}

	entries, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected files type %T", v)
	}

	files := make([]model.TaskFile, 0, len(entries))
	for _, e := range entries {
		m, ok := e.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("unexpected file entry type %T", e)
		}
		files = append(files, model.TaskFile{
			ID:   stringField(m, "id"),
			Name: stringField(m, "name"),
			Path: stringField(m, "path"),
		})
	}
	return files, nil
}
