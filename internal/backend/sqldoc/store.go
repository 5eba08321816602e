// Package sqldoc implements the document store contract on a local
// SQLite database. Records are schemaless: each row holds a collection
// name, a store-assigned id, and the document fields as JSON.
package sqldoc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/romanslonov/todoapp/internal/backend"
)

// Store implements backend.DocumentStore using a local SQLite database.
type Store struct {
	db *sqlx.DB
}

// Open opens (or creates) a SQLite database at dbPath, enables WAL
// mode, and runs any pending schema migrations.
func Open(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *Store) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// List returns every document in the collection, newest first.
func (s *Store) List(ctx context.Context, collection string) ([]backend.Document, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT id, fields FROM documents WHERE collection = ? ORDER BY created_at DESC",
		collection,
	)
	if err != nil {
		return nil, fmt.Errorf("querying collection %q: %w", collection, err)
	}
	defer rows.Close()

	var docs []backend.Document
	for rows.Next() {
		var id, fieldsJSON string
		if err := rows.Scan(&id, &fieldsJSON); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}

		var fields map[string]any
		if err := json.Unmarshal([]byte(fieldsJSON), &fields); err != nil {
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

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, fields, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		collection, id, string(fieldsJSON), now, now,
	)
	if err != nil {
		return "", fmt.Errorf("creating document in %q: %w", collection, err)
	}

	return id, nil
}

// Update merges the given fields into an existing document. The merge
// is shallow: each provided key replaces the stored value wholesale.
func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var fieldsJSON string
	err = tx.GetContext(ctx, &fieldsJSON,
		"SELECT fields FROM documents WHERE collection = ? AND id = ?",
		collection, id,
	)
	if err != nil {
		return fmt.Errorf("document %s/%s not found: %w", collection, id, err)
	}

	var stored map[string]any
	if err := json.Unmarshal([]byte(fieldsJSON), &stored); err != nil {
		return fmt.Errorf("unmarshaling document %s: %w", id, err)
	}
	for k, v := range fields {
		stored[k] = v
	}

	merged, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshaling document fields: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE documents SET fields = ?, updated_at = ? WHERE collection = ? AND id = ?",
		string(merged), time.Now().UTC(), collection, id,
	)
	if err != nil {
		return fmt.Errorf("updating document %s/%s: %w", collection, id, err)
	}

	return tx.Commit()
}

// Delete removes a document. Deleting an absent document is a no-op.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM documents WHERE collection = ? AND id = ?",
		collection, id,
	)
	if err != nil {
		return fmt.Errorf("deleting document %s/%s: %w", collection, id, err)
	}
	return nil
}
