package restdoc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordedRequest captures what the server saw for assertions.
type recordedRequest struct {
	method string
	path   string
	auth   string
	body   []byte
}

// newTestServer runs a handler and records every request it receives.
func newTestServer(t *testing.T, status int, response string) (*Client, *[]recordedRequest) {
	t.Helper()

	var seen []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		seen = append(seen, recordedRequest{
			method: r.Method,
			path:   r.URL.Path,
			auth:   r.Header.Get("Authorization"),
			body:   body,
		})
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)

	return NewClient(srv.URL, "secret-token"), &seen
}

func TestDocumentStoreList(t *testing.T) {
	client, seen := newTestServer(t, http.StatusOK,
		`{"documents":[{"id":"d2","fields":{"title":"newer"}},{"id":"d1","fields":{"title":"older"}}]}`)
	store := NewDocumentStore(client)

	docs, err := store.List(context.Background(), "tasks")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "d2", docs[0].ID)
	assert.Equal(t, "newer", docs[0].Fields["title"])

	require.Len(t, *seen, 1)
	req := (*seen)[0]
	assert.Equal(t, http.MethodGet, req.method)
	assert.Equal(t, "/v1/collections/tasks/documents", req.path)
	assert.Equal(t, "Bearer secret-token", req.auth)
}

func TestDocumentStoreCreate(t *testing.T) {
	client, seen := newTestServer(t, http.StatusOK, `{"id":"d-new"}`)
	store := NewDocumentStore(client)

	id, err := store.Create(context.Background(), "tasks", map[string]any{"title": "hello"})
	require.NoError(t, err)
	assert.Equal(t, "d-new", id)

	req := (*seen)[0]
	assert.Equal(t, http.MethodPost, req.method)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(req.body, &payload))
	fields, ok := payload["fields"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hello", fields["title"])
}

func TestDocumentStoreCreateWithoutID(t *testing.T) {
	client, _ := newTestServer(t, http.StatusOK, `{}`)
	store := NewDocumentStore(client)

	_, err := store.Create(context.Background(), "tasks", map[string]any{"title": "hello"})
	assert.ErrorContains(t, err, "no id")
}

func TestDocumentStoreUpdateAndDelete(t *testing.T) {
	client, seen := newTestServer(t, http.StatusOK, `{}`)
	store := NewDocumentStore(client)
	ctx := context.Background()

	require.NoError(t, store.Update(ctx, "tasks", "d1", map[string]any{"status": "completed"}))
	require.NoError(t, store.Delete(ctx, "tasks", "d1"))

	require.Len(t, *seen, 2)
	assert.Equal(t, http.MethodPatch, (*seen)[0].method)
	assert.Equal(t, "/v1/collections/tasks/documents/d1", (*seen)[0].path)
	assert.Equal(t, http.MethodDelete, (*seen)[1].method)
}

func TestClientErrorStatus(t *testing.T) {
	client, _ := newTestServer(t, http.StatusInternalServerError, `boom`)
	store := NewDocumentStore(client)

	_, err := store.List(context.Background(), "tasks")
	require.Error(t, err)
	assert.ErrorContains(t, err, "500")
	assert.ErrorContains(t, err, "boom")
}

func TestBlobStoreUpload(t *testing.T) {
	client, seen := newTestServer(t, http.StatusOK, ``)
	blobs := NewBlobStore(client)

	info, err := blobs.Upload(context.Background(), "files/photo one.jpg", []byte("jpeg"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "files/photo one.jpg", info.Key)
	assert.Equal(t, int64(4), info.Size)

	req := (*seen)[0]
	assert.Equal(t, http.MethodPut, req.method)
	// Slashes separate path segments; everything else is escaped.
	assert.Equal(t, "/v1/objects/files/photo one.jpg", req.path)
	assert.Equal(t, []byte("jpeg"), req.body)
}

func TestBlobStoreDownloadURL(t *testing.T) {
	client, seen := newTestServer(t, http.StatusOK, `{"url":"https://cdn.test/signed"}`)
	blobs := NewBlobStore(client)

	u, err := blobs.DownloadURL(context.Background(), "files/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/signed", u)
	assert.Equal(t, "/v1/objects/files/a.txt/url", (*seen)[0].path)
}

func TestBlobStoreDelete(t *testing.T) {
	client, seen := newTestServer(t, http.StatusNoContent, ``)
	blobs := NewBlobStore(client)

	require.NoError(t, blobs.Delete(context.Background(), "files/a.txt"))
	assert.Equal(t, http.MethodDelete, (*seen)[0].method)
}

func TestEscapeKey(t *testing.T) {
	assert.Equal(t, "files/a.txt", escapeKey("files/a.txt"))
	assert.Equal(t, "files/photo%20one.jpg", escapeKey("files/photo one.jpg"))
}

func TestBackoffDelay(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}

	assert.Equal(t, time.Second, backoffDelay(resp, 0))
	assert.Equal(t, 2*time.Second, backoffDelay(resp, 1))
	assert.Equal(t, 4*time.Second, backoffDelay(resp, 2))

	resp.Header.Set("Retry-After", "7")
	assert.Equal(t, 7*time.Second, backoffDelay(resp, 0))
}
