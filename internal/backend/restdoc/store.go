package restdoc

import (
	"context"
	"fmt"
	"net/url"

	"github.com/romanslonov/todoapp/internal/backend"
)

// DocumentStore implements backend.DocumentStore over the REST API.
type DocumentStore struct {
	client *Client
}

// NewDocumentStore creates a document store over the given client.
func NewDocumentStore(client *Client) *DocumentStore {
	return &DocumentStore{client: client}
}

// documentJSON is the wire shape of a single document.
type documentJSON struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// listResponse is the wire shape of a collection listing.
type listResponse struct {
	Documents []documentJSON `json:"documents"`
}

// createResponse carries the id assigned by the backend.
type createResponse struct {
	ID string `json:"id"`
}

// List returns every document in the collection, newest first.
func (s *DocumentStore) List(ctx context.Context, collection string) ([]backend.Document, error) {
	var resp listResponse
	err := s.client.get(ctx, "/v1/collections/"+url.PathEscape(collection)+"/documents", &resp)
	if err != nil {
		return nil, fmt.Errorf("listing collection %q: %w", collection, err)
	}

	docs := make([]backend.Document, 0, len(resp.Documents))
	for _, d := range resp.Documents {
		docs = append(docs, backend.Document{ID: d.ID, Fields: d.Fields})
	}
	return docs, nil
}

// Create stores a new document and returns the id the backend assigned.
func (s *DocumentStore) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	var resp createResponse
	err := s.client.post(ctx,
		"/v1/collections/"+url.PathEscape(collection)+"/documents",
		map[string]any{"fields": fields},
		&resp,
	)
	if err != nil {
		return "", fmt.Errorf("creating document in %q: %w", collection, err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("creating document in %q: backend returned no id", collection)
	}
	return resp.ID, nil
}

// Update merges the given fields into an existing document.
func (s *DocumentStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	err := s.client.patch(ctx,
		"/v1/collections/"+url.PathEscape(collection)+"/documents/"+url.PathEscape(id),
		map[string]any{"fields": fields},
		nil,
	)
	if err != nil {
		return fmt.Errorf("updating document %s/%s: %w", collection, id, err)
	}
	return nil
}

// Delete removes a document.
func (s *DocumentStore) Delete(ctx context.Context, collection, id string) error {
	err := s.client.del(ctx,
		"/v1/collections/"+url.PathEscape(collection)+"/documents/"+url.PathEscape(id))
	if err != nil {
		return fmt.Errorf("deleting document %s/%s: %w", collection, id, err)
	}
	return nil
}
