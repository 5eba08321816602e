package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romanslonov/todoapp/internal/backend"
	"github.com/romanslonov/todoapp/internal/backend/sqldoc"
	"github.com/romanslonov/todoapp/internal/model"
	"github.com/romanslonov/todoapp/internal/state"
)

// fakeDocs is an in-memory DocumentStore that records call order.
type fakeDocs struct {
	mu    sync.Mutex
	docs  []backend.Document
	calls []string

	nextID     int
	lastUpdate map[string]any

	failCreate error
	failUpdate error
	failDelete error
	failList   error
}

func (f *fakeDocs) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeDocs) List(_ context.Context, _ string) ([]backend.Document, error) {
	f.record("list")
	if f.failList != nil {
		return nil, f.failList
	}
	return f.docs, nil
}

func (f *fakeDocs) Create(_ context.Context, _ string, fields map[string]any) (string, error) {
	f.record("create")
	if f.failCreate != nil {
		return "", f.failCreate
	}
	f.nextID++
	id := fmt.Sprintf("doc-%d", f.nextID)
	f.docs = append([]backend.Document{{ID: id, Fields: fields}}, f.docs...)
	return id, nil
}

func (f *fakeDocs) Update(_ context.Context, _, id string, fields map[string]any) error {
	f.record("update " + id)
	if f.failUpdate != nil {
		return f.failUpdate
	}
	f.lastUpdate = fields
	return nil
}

func (f *fakeDocs) Delete(_ context.Context, _, id string) error {
	f.record("delete " + id)
	return f.failDelete
}

// fakeBlobs is an in-memory BlobStore safe for concurrent use.
type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string

	failUpload error
	failDelete error
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: make(map[string][]byte)}
}

func (f *fakeBlobs) Upload(_ context.Context, key string, data []byte, contentType string) (backend.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpload != nil {
		return backend.ObjectInfo{}, f.failUpload
	}
	f.objects[key] = data
	return backend.ObjectInfo{Key: key, Size: int64(len(data)), ContentType: contentType}, nil
}

func (f *fakeBlobs) DownloadURL(_ context.Context, key string) (string, error) {
	return "https://blobs.test/" + key, nil
}

func (f *fakeBlobs) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete != nil {
		return f.failDelete
	}
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeBlobs) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.objects))
	for k := range f.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

var testNow = time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

func newTestRepo(docs backend.DocumentStore, blobs backend.BlobStore) (*Repository, *state.Store) {
	st := state.NewStore()
	r := New(docs, blobs, st)
	r.now = func() time.Time { return testNow }

	n := 0
	r.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return r, st
}

func TestCreate(t *testing.T) {
	docs := &fakeDocs{}
	blobs := newFakeBlobs()
	r, st := newTestRepo(docs, blobs)

	task, err := r.Create(context.Background(), model.TaskPayload{
		Title:   "write report",
		Content: "quarterly numbers",
		Files: []model.FileUpload{
			{Name: "draft.txt", Data: []byte("hello")},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "doc-1", task.ID)
	assert.Equal(t, model.StatusActive, task.Status)
	assert.Equal(t, testNow, task.CreatedAt)
	assert.Nil(t, task.Due)

	require.Len(t, task.Files, 1)
	assert.Equal(t, "draft.txt", task.Files[0].Name)
	assert.True(t, strings.HasPrefix(task.Files[0].Path, "files/draft-"))
	assert.True(t, strings.HasSuffix(task.Files[0].Path, ".txt"))
	assert.Contains(t, blobs.objects, task.Files[0].Path)

	// Blob upload happens before the document write.
	assert.Equal(t, []string{"create"}, docs.calls)
	fields := docs.docs[0].Fields
	assert.Equal(t, "active", fields["status"])
	_, hasDue := fields["due"]
	assert.False(t, hasDue, "absent due must be omitted, not written as a sentinel")

	// New task is prepended to local state.
	tasks := st.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "doc-1", tasks[0].ID)
}

func TestCreateStatusIgnoresPastDue(t *testing.T) {
	docs := &fakeDocs{}
	r, _ := newTestRepo(docs, newFakeBlobs())

	// Creation always starts active even when the due is already past;
	// the watcher expires it afterwards.
	task, err := r.Create(context.Background(), model.TaskPayload{
		Title:   "late already",
		Content: "note",
		Due:     testNow.Add(-time.Hour).Format(time.RFC3339),
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, task.Status)
	require.NotNil(t, task.Due)
}

func TestCreateDistinctKeysForSameName(t *testing.T) {
	docs := &fakeDocs{}
	blobs := newFakeBlobs()
	r, _ := newTestRepo(docs, blobs)

	task, err := r.Create(context.Background(), model.TaskPayload{
		Title:   "photos",
		Content: "vacation",
		Files: []model.FileUpload{
			{Name: "photo.jpg", Data: []byte("one")},
			{Name: "photo.jpg", Data: []byte("two")},
		},
	})
	require.NoError(t, err)

	require.Len(t, task.Files, 2)
	assert.NotEqual(t, task.Files[0].Path, task.Files[1].Path)
	assert.NotEqual(t, task.Files[0].ID, task.Files[1].ID)
	assert.Len(t, blobs.keys(), 2)
}

func TestCreateUploadFailureAborts(t *testing.T) {
	docs := &fakeDocs{}
	blobs := newFakeBlobs()
	blobs.failUpload = errors.New("disk full")
	r, st := newTestRepo(docs, blobs)

	_, err := r.Create(context.Background(), model.TaskPayload{
		Title:   "task",
		Content: "note",
		Files:   []model.FileUpload{{Name: "a.txt", Data: []byte("x")}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUpload))

	// The document was never written and local state never changed.
	assert.Empty(t, docs.calls)
	assert.Empty(t, st.Tasks())
}

func TestCreateRemoteFailureSkipsDispatch(t *testing.T) {
	docs := &fakeDocs{failCreate: errors.New("503")}
	r, st := newTestRepo(docs, newFakeBlobs())

	_, err := r.Create(context.Background(), model.TaskPayload{Title: "task", Content: "note"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRemoteWrite))
	assert.Empty(t, st.Tasks())
}

func TestCreateValidation(t *testing.T) {
	docs := &fakeDocs{}
	r, _ := newTestRepo(docs, newFakeBlobs())

	_, err := r.Create(context.Background(), model.TaskPayload{Title: "", Content: "note"})
	assert.Error(t, err)
	_, err = r.Create(context.Background(), model.TaskPayload{Title: "t", Content: "note", Due: "whenever"})
	assert.Error(t, err)
	assert.Empty(t, docs.calls)
}

func TestChangeStatus(t *testing.T) {
	docs := &fakeDocs{}
	r, st := newTestRepo(docs, newFakeBlobs())
	st.Dispatch(state.SetTasks{Tasks: []model.Task{{ID: "doc-1", Status: model.StatusActive}}})

	err := r.ChangeStatus(context.Background(), "doc-1", model.StatusCompleted)
	require.NoError(t, err)

	// Only the status field goes over the wire.
	assert.Equal(t, map[string]any{"status": "completed"}, docs.lastUpdate)
	assert.Equal(t, model.StatusCompleted, st.Tasks()[0].Status)
}

func TestChangeStatusRemoteFailure(t *testing.T) {
	docs := &fakeDocs{failUpdate: errors.New("offline")}
	r, st := newTestRepo(docs, newFakeBlobs())
	st.Dispatch(state.SetTasks{Tasks: []model.Task{{ID: "doc-1", Status: model.StatusActive}}})

	err := r.ChangeStatus(context.Background(), "doc-1", model.StatusCompleted)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRemoteWrite))
	assert.Equal(t, model.StatusActive, st.Tasks()[0].Status)
}

func TestUpdate(t *testing.T) {
	docs := &fakeDocs{}
	blobs := newFakeBlobs()
	r, st := newTestRepo(docs, blobs)

	existing := model.Task{
		ID:        "doc-1",
		Title:     "old title",
		Content:   "old note",
		Status:    model.StatusCompleted,
		CreatedAt: testNow.Add(-24 * time.Hour),
		Files:     []model.TaskFile{{ID: "f-old", Name: "old.txt", Path: "files/old-x.txt"}},
	}
	st.Dispatch(state.SetTasks{Tasks: []model.Task{existing}})

	due := testNow.Add(time.Hour)
	updated, err := r.Update(context.Background(), existing, model.TaskPayload{
		Title:   "new title",
		Content: "new note",
		Due:     due.Format(time.RFC3339),
		Files:   []model.FileUpload{{Name: "new.txt", Data: []byte("n")}},
	})
	require.NoError(t, err)

	// Future due resets status to active even for a completed task.
	assert.Equal(t, model.StatusActive, updated.Status)
	assert.Equal(t, existing.CreatedAt, updated.CreatedAt)

	// New attachments come first, old ones are preserved.
	require.Len(t, updated.Files, 2)
	assert.Equal(t, "new.txt", updated.Files[0].Name)
	assert.Equal(t, "f-old", updated.Files[1].ID)

	assert.Equal(t, []string{"update doc-1"}, docs.calls)
	local := st.Tasks()[0]
	assert.Equal(t, "doc-1", local.ID)
	assert.Equal(t, "new title", local.Title)
}

func TestUpdatePastDueExpires(t *testing.T) {
	docs := &fakeDocs{}
	r, st := newTestRepo(docs, newFakeBlobs())

	existing := model.Task{ID: "doc-1", Status: model.StatusActive, CreatedAt: testNow}
	st.Dispatch(state.SetTasks{Tasks: []model.Task{existing}})

	updated, err := r.Update(context.Background(), existing, model.TaskPayload{
		Title:   "title",
		Content: "note",
		Due:     testNow.Add(-time.Minute).Format(time.RFC3339),
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusExpired, updated.Status)
	assert.Equal(t, "expired", docs.lastUpdate["status"])
}

func TestUpdateNoDueForcesActive(t *testing.T) {
	docs := &fakeDocs{}
	r, st := newTestRepo(docs, newFakeBlobs())

	existing := model.Task{ID: "doc-1", Status: model.StatusExpired, CreatedAt: testNow}
	st.Dispatch(state.SetTasks{Tasks: []model.Task{existing}})

	updated, err := r.Update(context.Background(), existing, model.TaskPayload{
		Title:   "title",
		Content: "note",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, updated.Status)
	assert.Nil(t, updated.Due)
}

func TestUpdateClearedDueWritesNull(t *testing.T) {
	docs := &fakeDocs{}
	r, st := newTestRepo(docs, newFakeBlobs())

	due := testNow.Add(time.Hour)
	existing := model.Task{ID: "doc-1", Status: model.StatusActive, CreatedAt: testNow, Due: &due}
	st.Dispatch(state.SetTasks{Tasks: []model.Task{existing}})

	_, err := r.Update(context.Background(), existing, model.TaskPayload{
		Title:   "title",
		Content: "note",
	})
	require.NoError(t, err)

	// Document updates merge, so clearing the due must write an
	// explicit null rather than omitting the key.
	v, ok := docs.lastUpdate["due"]
	require.True(t, ok, "cleared due must be written to the store")
	assert.Nil(t, v)
}

func TestUpdateClearedDueSurvivesReload(t *testing.T) {
	docs, err := sqldoc.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = docs.Close() })

	r, _ := newTestRepo(docs, newFakeBlobs())

	created, err := r.Create(context.Background(), model.TaskPayload{
		Title:   "had a deadline",
		Content: "note",
		Due:     testNow.Add(time.Hour).Format(time.RFC3339),
	})
	require.NoError(t, err)
	require.NotNil(t, created.Due)

	_, err = r.Update(context.Background(), created, model.TaskPayload{
		Title:   "had a deadline",
		Content: "note",
	})
	require.NoError(t, err)

	// A fresh fetch must not resurrect the cleared deadline.
	tasks, err := r.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Nil(t, tasks[0].Due)
	assert.Equal(t, model.StatusActive, tasks[0].Status)
}

func TestUpdateRemoteFailureSkipsDispatch(t *testing.T) {
	docs := &fakeDocs{failUpdate: errors.New("conflict")}
	r, st := newTestRepo(docs, newFakeBlobs())

	existing := model.Task{ID: "doc-1", Title: "old", Content: "old", Status: model.StatusActive, CreatedAt: testNow}
	st.Dispatch(state.SetTasks{Tasks: []model.Task{existing}})

	_, err := r.Update(context.Background(), existing, model.TaskPayload{Title: "new", Content: "new"})
	require.Error(t, err)
	assert.Equal(t, "old", st.Tasks()[0].Title)
}

func TestRemove(t *testing.T) {
	docs := &fakeDocs{}
	blobs := newFakeBlobs()
	r, st := newTestRepo(docs, blobs)

	task := model.Task{
		ID:     "doc-1",
		Status: model.StatusActive,
		Files: []model.TaskFile{
			{ID: "f1", Path: "files/a-1.txt"},
			{ID: "f2", Path: "files/b-2.txt"},
		},
	}
	st.Dispatch(state.SetTasks{Tasks: []model.Task{task}})

	require.NoError(t, r.Remove(context.Background(), task))

	// Both blobs went away, then the document, then the local entry.
	assert.ElementsMatch(t, []string{"files/a-1.txt", "files/b-2.txt"}, blobs.deleted)
	assert.Equal(t, []string{"delete doc-1"}, docs.calls)
	assert.Empty(t, st.Tasks())
}

func TestRemoveBlobFailureAborts(t *testing.T) {
	docs := &fakeDocs{}
	blobs := newFakeBlobs()
	blobs.failDelete = errors.New("denied")
	r, st := newTestRepo(docs, blobs)

	task := model.Task{ID: "doc-1", Files: []model.TaskFile{{Path: "files/a-1.txt"}}}
	st.Dispatch(state.SetTasks{Tasks: []model.Task{task}})

	err := r.Remove(context.Background(), task)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDelete))

	// The document was never touched and the task is still visible.
	assert.Empty(t, docs.calls)
	assert.Len(t, st.Tasks(), 1)
}

func TestFetchAll(t *testing.T) {
	task := model.Task{
		ID:        "ignored",
		Title:     "fetched",
		Content:   "note",
		Status:    model.StatusActive,
		CreatedAt: testNow,
		Files:     []model.TaskFile{{ID: "f1", Name: "a.txt", Path: "files/a-1.txt"}},
	}
	docs := &fakeDocs{docs: []backend.Document{{ID: "doc-9", Fields: encodeTask(task)}}}
	r, st := newTestRepo(docs, newFakeBlobs())

	tasks, err := r.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	got := tasks[0]
	assert.Equal(t, "doc-9", got.ID)
	assert.Equal(t, "fetched", got.Title)
	assert.True(t, got.CreatedAt.Equal(testNow))
	assert.Equal(t, task.Files, got.Files)

	assert.Equal(t, tasks, st.Tasks())
}

func TestFetchAllRejectsUnknownStatus(t *testing.T) {
	fields := encodeTask(model.Task{Title: "corrupt", Status: model.StatusActive, CreatedAt: testNow})
	fields["status"] = "archived"
	docs := &fakeDocs{docs: []backend.Document{{ID: "doc-1", Fields: fields}}}
	r, st := newTestRepo(docs, newFakeBlobs())

	_, err := r.FetchAll(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRemoteRead))
	assert.Contains(t, err.Error(), "invalid status")
	assert.Empty(t, st.Tasks())
}

func TestFetchAllRemoteFailure(t *testing.T) {
	docs := &fakeDocs{failList: errors.New("timeout")}
	r, st := newTestRepo(docs, newFakeBlobs())
	st.Dispatch(state.SetTasks{Tasks: []model.Task{{ID: "stale"}}})

	_, err := r.FetchAll(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRemoteRead))

	// A failed fetch leaves the previous state in place.
	assert.Len(t, st.Tasks(), 1)
}

func TestFileURL(t *testing.T) {
	r, _ := newTestRepo(&fakeDocs{}, newFakeBlobs())

	url, err := r.FileURL(context.Background(), model.TaskFile{Path: "files/a-1.txt"})
	require.NoError(t, err)
	assert.Equal(t, "https://blobs.test/files/a-1.txt", url)
}

func TestStorageKeyKeepsExtension(t *testing.T) {
	r, _ := newTestRepo(&fakeDocs{}, newFakeBlobs())

	assert.Equal(t, "files/report-id-1.pdf", r.storageKey("report.pdf"))
	assert.Equal(t, "files/README-id-2", r.storageKey("README"))
}
