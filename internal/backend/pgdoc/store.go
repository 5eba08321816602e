// Package pgdoc implements the document store contract on PostgreSQL.
// Document fields live in a JSONB column, which lets partial updates
// merge server-side without a read-modify-write round trip.
package pgdoc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/romanslonov/todoapp/internal/backend"
)

// Store implements backend.DocumentStore on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to PostgreSQL with the given DSN and ensures the
// documents table exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.ensureTable(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// ensureTable creates the documents table if it doesn't exist.
func (s *Store) ensureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			collection  TEXT NOT NULL,
			id          TEXT NOT NULL,
			fields      JSONB NOT NULL DEFAULT '{}',
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (collection, id)
		)`)
	if err != nil {
		return fmt.Errorf("creating documents table: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection, created_at)`)
	if err != nil {
		return fmt.Errorf("creating documents index: %w", err)
	}
	return nil
}

// List returns every document in the collection, newest first.
func (s *Store) List(ctx context.Context, collection string) ([]backend.Document, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT id, fields FROM documents WHERE collection = $1 ORDER BY created_at DESC",
		collection,
	)
	if err != nil {
		return nil, fmt.Errorf("querying collection %q: %w", collection, err)
	}
	defer rows.Close()

	var docs []backend.Document
	for rows.Next() {
		var id string
		var fieldsJSON []byte
		if err := rows.Scan(&id, &fieldsJSON); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}

		var fields map[string]any
		if err := json.Unmarshal(fieldsJSON, &fields); err != nil {
			return nil, fmt.Errorf("unmarshaling document %s: %w", id, err)
		}

		docs = append(docs, backend.Document{ID: id, Fields: fields})
	}

	return docs, rows.Err()
}

// Create stores a new document under a freshly assigned id.
func (s *Store) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := uuid.New().String()

	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("marshaling document fields: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO documents (collection, id, fields)
		VALUES ($1, $2, $3::jsonb)`,
		collection, id, string(fieldsJSON),
	)
	if err != nil {
		return "", fmt.Errorf("creating document in %q: %w", collection, err)
	}

	return id, nil
}

// Update merges the given fields into an existing document using a
// JSONB concatenation, so each provided key replaces the stored value.
func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshaling document fields: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE documents
		SET fields = fields || $3::jsonb, updated_at = NOW()
		WHERE collection = $1 AND id = $2`,
		collection, id, string(fieldsJSON),
	)
	if err != nil {
		return fmt.Errorf("updating document %s/%s: %w", collection, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s/%s not found", collection, id)
	}

	return nil
}

// Delete removes a document. Deleting an absent document is a no-op.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.pool.Exec(ctx,
		"DELETE FROM documents WHERE collection = $1 AND id = $2",
		collection, id,
	)
	if err != nil {
		return fmt.Errorf("deleting document %s/%s: %w", collection, id, err)
	}
	return nil
}
