// Package backend defines the contracts this application expects from
// its remote persistence services: a schemaless document store and a
// path-addressed blob store. Concrete adapters live in subpackages.
package backend

import "context"

// Document is a single schemaless record in a named collection.
type Document struct {
	// ID is assigned by the store on creation.
	ID string

	// Fields holds the decoded record payload.
	Fields map[string]any
}

// DocumentStore provides generic record operations against named
// collections. Implementations assign document ids on Create; callers
// never supply one.
type DocumentStore interface {
	// List returns every document in the collection, newest first.
	List(ctx context.Context, collection string) ([]Document, error)

	// Create stores a new document and returns its assigned id.
	Create(ctx context.Context, collection string, fields map[string]any) (string, error)

	// Update merges the given fields into an existing document.
	// Fields not present in the argument are left untouched.
	Update(ctx context.Context, collection, id string, fields map[string]any) error

	// Delete removes a document. Deleting an absent document is not an error.
	Delete(ctx context.Context, collection, id string) error
}

// ObjectInfo describes a stored blob.
type ObjectInfo struct {
	Key         string
	Size        int64
	ContentType string
}

// BlobStore provides binary object storage addressed by key.
type BlobStore interface {
	// Upload stores data under key, overwriting any existing object.
	Upload(ctx context.Context, key string, data []byte, contentType string) (ObjectInfo, error)

	// DownloadURL returns a URL from which the object at key can be read.
	DownloadURL(ctx context.Context, key string) (string, error)

	// Delete removes the object at key.
	Delete(ctx context.Context, key string) error
}
