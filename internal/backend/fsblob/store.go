// Package fsblob implements the blob store contract on the local
// filesystem. Objects live under a root directory addressed by their
// key; content types are kept in a JSON sidecar next to each object.
package fsblob

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/romanslonov/todoapp/internal/backend"
)

// metaSuffix is appended to an object's path for its sidecar file.
const metaSuffix = ".meta.json"

// Store implements backend.BlobStore under a local root directory.
type Store struct {
	root string
}

// New creates a Store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving blob root %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("creating blob root %s: %w", abs, err)
	}
	return &Store{root: abs}, nil
}

// objectMeta is the sidecar payload stored next to each object.
type objectMeta struct {
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Upload stores data under key, overwriting any existing object.
func (s *Store) Upload(_ context.Context, key string, data []byte, contentType string) (backend.ObjectInfo, error) {
	path, err := s.objectPath(key)
	if err != nil {
		return backend.ObjectInfo{}, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return backend.ObjectInfo{}, fmt.Errorf("creating object directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return backend.ObjectInfo{}, fmt.Errorf("writing object %s: %w", key, err)
	}

	meta := objectMeta{ContentType: contentType, Size: int64(len(data))}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return backend.ObjectInfo{}, fmt.Errorf("marshaling object metadata: %w", err)
	}
	if err := os.WriteFile(path+metaSuffix, metaJSON, 0o644); err != nil {
		return backend.ObjectInfo{}, fmt.Errorf("writing object metadata %s: %w", key, err)
	}

	return backend.ObjectInfo{Key: key, Size: meta.Size, ContentType: contentType}, nil
}

// DownloadURL returns a file URL for the object. The local backend has
// no notion of expiring links; the URL is valid as long as the file is.
func (s *Store) DownloadURL(_ context.Context, key string) (string, error) {
	path, err := s.objectPath(key)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("object %s: %w", key, err)
	}

	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String(), nil
}

// Delete removes the object at key along with its metadata sidecar.
func (s *Store) Delete(_ context.Context, key string) error {
	path, err := s.objectPath(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting object %s: %w", key, err)
	}
	if err := os.Remove(path + metaSuffix); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting object metadata %s: %w", key, err)
	}
	return nil
}

// objectPath maps a key onto a path under the root, rejecting keys that
// would escape it.
func (s *Store) objectPath(key string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(s.root, cleaned), nil
}
