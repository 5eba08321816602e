// Package repository bridges the task model and the remote backends.
// It owns all multi-step orchestration: blob uploads are sequenced
// before the document writes that reference them, and the local state
// store is only ever touched after the remote step has succeeded.
package repository

import (
	"context"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/romanslonov/todoapp/internal/backend"
	"github.com/romanslonov/todoapp/internal/model"
	"github.com/romanslonov/todoapp/internal/state"
)

// DefaultCollection is the document collection that holds tasks.
const DefaultCollection = "tasks"

// defaultBlobPrefix is prepended to every attachment storage key.
const defaultBlobPrefix = "files/"

// Repository translates task-level operations into document and blob
// store calls plus local state transitions.
type Repository struct {
	docs       backend.DocumentStore
	blobs      backend.BlobStore
	store      *state.Store
	collection string
	blobPrefix string

	// now and newID are injectable for tests.
	now   func() time.Time
	newID func() string
}

// New creates a Repository over the given backends and state store.
func New(docs backend.DocumentStore, blobs backend.BlobStore, st *state.Store) *Repository {
	return &Repository{
		docs:       docs,
		blobs:      blobs,
		store:      st,
		collection: DefaultCollection,
		blobPrefix: defaultBlobPrefix,
		now:        time.Now,
		newID:      func() string { return uuid.New().String() },
	}
}

// SetCollection overrides the document collection that holds tasks.
// Empty names are ignored.
func (r *Repository) SetCollection(name string) {
	if name != "" {
		r.collection = name
	}
}

// FetchAll lists every task document, decodes it, and replaces the local
// state with the result. Returns the fetched tasks newest first.
func (r *Repository) FetchAll(ctx context.Context) ([]model.Task, error) {
	docs, err := r.docs.List(ctx, r.collection)
	if err != nil {
		return nil, fmt.Errorf("listing collection %q: %w: %w", r.collection, ErrRemoteRead, err)
	}

	tasks := make([]model.Task, 0, len(docs))
	for _, doc := range docs {
		task, err := decodeTask(doc)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRemoteRead, err)
		}
		tasks = append(tasks, task)
	}

	r.store.Dispatch(state.SetTasks{Tasks: tasks})
	return tasks, nil
}

// Create uploads any attached files, writes the task document, and
// prepends the new task to the local state. The task starts active with
// CreatedAt set to now; the id comes from the document store.
//
// An upload failure aborts the whole create. Blobs already uploaded at
// that point are not cleaned up; see the package notes on compensation.
func (r *Repository) Create(ctx context.Context, payload model.TaskPayload) (model.Task, error) {
	if err := payload.Validate(); err != nil {
		return model.Task{}, err
	}

	due, err := payload.ParseDue()
	if err != nil {
		return model.Task{}, err
	}

	files, err := r.uploadAll(ctx, payload.Files)
	if err != nil {
		return model.Task{}, err
	}

	task := model.Task{
		Title:     payload.Title,
		Content:   payload.Content,
		Status:    model.StatusActive,
		CreatedAt: r.now(),
		Due:       due,
		Files:     files,
	}

	id, err := r.docs.Create(ctx, r.collection, encodeTask(task))
	if err != nil {
		return model.Task{}, fmt.Errorf("creating task document: %w: %w", ErrRemoteWrite, err)
	}
	task.ID = id

	r.store.Dispatch(state.CreateTask{Task: task})
	return task, nil
}

// ChangeStatus writes only the status field remotely, then updates the
// local state. This is the fast path used by completion toggling and by
// the expiry watcher.
func (r *Repository) ChangeStatus(ctx context.Context, taskID string, status model.Status) error {
	err := r.docs.Update(ctx, r.collection, taskID, map[string]any{
		"status": string(status),
	})
	if err != nil {
		return fmt.Errorf("updating status of task %s: %w: %w", taskID, ErrRemoteWrite, err)
	}

	r.store.Dispatch(state.ChangeStatusTask{TaskID: taskID, Status: status})
	return nil
}

// Update applies an edit to an existing task: newly attached files are
// uploaded and prepended to the file list (existing attachments are
// never dropped), status is recomputed from the new due date, and the
// merged record is written remotely before the local state changes.
//
// A due date already in the past marks the task expired; an absent due
// forces it back to active regardless of its prior status.
func (r *Repository) Update(ctx context.Context, task model.Task, payload model.TaskPayload) (model.Task, error) {
	if err := payload.Validate(); err != nil {
		return model.Task{}, err
	}

	due, err := payload.ParseDue()
	if err != nil {
		return model.Task{}, err
	}

	added, err := r.uploadAll(ctx, payload.Files)
	if err != nil {
		return model.Task{}, err
	}

	merged := task
	merged.Title = payload.Title
	merged.Content = payload.Content
	merged.Due = due
	merged.Status = model.StatusForDue(due, r.now())
	merged.Files = append(added, task.Files...)

	fields := encodeTask(merged)
	if merged.Due == nil {
		// Document updates are merges, so a cleared due must be written
		// as an explicit null or the stored deadline survives the edit.
		fields["due"] = nil
	}

	err = r.docs.Update(ctx, r.collection, task.ID, fields)
	if err != nil {
		return model.Task{}, fmt.Errorf("updating task %s: %w: %w", task.ID, ErrRemoteWrite, err)
	}

	r.store.Dispatch(state.UpdateTask{TaskID: task.ID, Data: merged})
	return merged, nil
}

// Remove deletes every attached blob, then the task document, then the
// task from local state. Any blob deletion failure aborts the whole
// operation before the document is touched; there is no retry for blobs
// that were already removed.
func (r *Repository) Remove(ctx context.Context, task model.Task) error {
	if err := r.deleteAll(ctx, task.Files); err != nil {
		return err
	}

	if err := r.docs.Delete(ctx, r.collection, task.ID); err != nil {
		return fmt.Errorf("deleting task %s: %w: %w", task.ID, ErrRemoteWrite, err)
	}

	r.store.Dispatch(state.RemoveTask{TaskID: task.ID})
	return nil
}

// FileURL resolves a download URL for an attachment.
func (r *Repository) FileURL(ctx context.Context, file model.TaskFile) (string, error) {
	url, err := r.blobs.DownloadURL(ctx, file.Path)
	if err != nil {
		return "", fmt.Errorf("resolving URL for %s: %w: %w", file.Path, ErrRemoteRead, err)
	}
	return url, nil
}

// storageKey derives a collision-free storage key from an original file
// name by injecting a fresh unique token before the extension. Two
// uploads of "photo.jpg" therefore never clobber each other's blob.
func (r *Repository) storageKey(name string) string {
	ext := path.Ext(name)
	base := name[:len(name)-len(ext)]
	return r.blobPrefix + base + "-" + r.newID() + ext
}

// uploadAll uploads the given files concurrently and waits for all of
// them to finish. Storage keys and file ids are assigned up front so
// the returned attachment order matches the input order.
func (r *Repository) uploadAll(ctx context.Context, uploads []model.FileUpload) ([]model.TaskFile, error) {
	if len(uploads) == 0 {
		return nil, nil
	}

	files := make([]model.TaskFile, len(uploads))
	for i, up := range uploads {
		files[i] = model.TaskFile{
			ID:   r.newID(),
			Name: up.Name,
			Path: r.storageKey(up.Name),
		}
	}

	errs := make(chan error, len(uploads))
	var wg sync.WaitGroup
	for i, up := range uploads {
		wg.Add(1)
		go func(key string, up model.FileUpload) {
			defer wg.Done()
			if _, err := r.blobs.Upload(ctx, key, up.Data, up.ContentType); err != nil {
				errs <- fmt.Errorf("uploading %s: %w: %w", up.Name, ErrUpload, err)
			}
		}(files[i].Path, up)
	}
	wg.Wait()
	close(errs)

	if err := <-errs; err != nil {
		return nil, err
	}
	return files, nil
}

// deleteAll deletes the blobs for the given attachments concurrently
// and waits for all of them to finish.
func (r *Repository) deleteAll(ctx context.Context, files []model.TaskFile) error {
	if len(files) == 0 {
		return nil
	}

	errs := make(chan error, len(files))
	var wg sync.WaitGroup
	for _, f := range files {
		wg.Add(1)
		go func(f model.TaskFile) {
			defer wg.Done()
			if err := r.blobs.Delete(ctx, f.Path); err != nil {
				errs <- fmt.Errorf("deleting blob %s: %w: %w", f.Path, ErrDelete, err)
			}
		}(f)
	}
	wg.Wait()
	close(errs)

	return <-errs
}
