package restdoc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/romanslonov/todoapp/internal/backend"
)

// BlobStore implements backend.BlobStore over the REST API. Objects are
// uploaded as raw bytes; the backend issues time-limited download URLs.
type BlobStore struct {
	client *Client
}

// NewBlobStore creates a blob store over the given client.
func NewBlobStore(client *Client) *BlobStore {
	return &BlobStore{client: client}
}

// objectResponse is the wire shape of object metadata.
type objectResponse struct {
	Key         string `json:"key"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// urlResponse carries a signed download URL.
type urlResponse struct {
	URL string `json:"url"`
}

// Upload stores data under key, overwriting any existing object.
func (s *BlobStore) Upload(ctx context.Context, key string, data []byte, contentType string) (backend.ObjectInfo, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var resp objectResponse
	err := s.client.do(ctx, http.MethodPut,
		"/v1/objects/"+escapeKey(key),
		data, contentType,
		func(body []byte) error {
			if len(body) == 0 {
				return nil
			}
			return json.Unmarshal(body, &resp)
		},
	)
	if err != nil {
		return backend.ObjectInfo{}, fmt.Errorf("uploading object %s: %w", key, err)
	}

	info := backend.ObjectInfo{Key: key, Size: int64(len(data)), ContentType: contentType}
	if resp.Key != "" {
		info = backend.ObjectInfo{Key: resp.Key, Size: resp.Size, ContentType: resp.ContentType}
	}
	return info, nil
}

// DownloadURL asks the backend for a time-limited download URL.
func (s *BlobStore) DownloadURL(ctx context.Context, key string) (string, error) {
	var resp urlResponse
	err := s.client.get(ctx, "/v1/objects/"+escapeKey(key)+"/url", &resp)
	if err != nil {
		return "", fmt.Errorf("resolving URL for object %s: %w", key, err)
	}
	return resp.URL, nil
}

// Delete removes the object at key.
func (s *BlobStore) Delete(ctx context.Context, key string) error {
	if err := s.client.del(ctx, "/v1/objects/" + escapeKey(key)); err != nil {
		return fmt.Errorf("deleting object %s: %w", key, err)
	}
	return nil
}

// escapeKey escapes an object key for use as a path suffix while
// preserving its slash separators.
func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
