package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"outpost/internal/docstore"
)

// StorePostgres is a PostgreSQL implementation of docstore.Store. Documents
// are rows in a single JSONB-backed table keyed by (collection, id). It uses
// database/sql with parameterized queries and contains no business logic.
type StorePostgres struct {
	db *sql.DB
}

// NewStorePostgres creates a docstore.Store over the given tenant database.
func NewStorePostgres(db *sql.DB) *StorePostgres {
	return &StorePostgres{db: db}
}

var _ docstore.Store = (*StorePostgres)(nil)

// Get fetches a single document. A missing row yields (nil, nil).
func (s *StorePostgres) Get(ctx context.Context, collection, id string) (docstore.Record, error) {
	const q = `SELECT data FROM documents WHERE collection = $1 AND id = $2`
	var raw []byte
	if err := s.db.QueryRowContext(ctx, q, collection, id).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return decodeRecord(id, raw)
}

// List returns every document in a collection ordered by id.
func (s *StorePostgres) List(ctx context.Context, collection string) ([]docstore.Record, error) {
	const q = `SELECT id, data FROM documents WHERE collection = $1 ORDER BY id`
	rows, err := s.db.QueryContext(ctx, q, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]docstore.Record, 0)
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		rec, err := decodeRecord(id, raw)
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Add inserts a document under a freshly generated UUID.
func (s *StorePostgres) Add(ctx context.Context, collection string, data docstore.Record) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	id := uuid.NewString()
	const q = `INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)`
	if _, err := s.db.ExecContext(ctx, q, collection, id, raw); err != nil {
		return "", err
	}
	return id, nil
}

// Set upserts at a caller-chosen id, replacing or shallow-merging the stored data.
func (s *StorePostgres) Set(ctx context.Context, collection, id string, data docstore.Record, merge bool) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	q := `INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)
		ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data`
	if merge {
		q = `INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)
		ON CONFLICT (collection, id) DO UPDATE SET data = documents.data || EXCLUDED.data`
	}
	_, err = s.db.ExecContext(ctx, q, collection, id, raw)
	return err
}

// Update shallow-merges patch into an existing document.
func (s *StorePostgres) Update(ctx context.Context, collection, id string, patch docstore.Record) error {
	raw, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("encode patch: %w", err)
	}
	const q = `UPDATE documents SET data = data || $3 WHERE collection = $1 AND id = $2`
	res, err := s.db.ExecContext(ctx, q, collection, id, raw)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return docstore.ErrNoDocument
	}
	return nil
}

// Delete removes a document by id. It does not return an error if the row does not exist.
func (s *StorePostgres) Delete(ctx context.Context, collection, id string) error {
	const q = `DELETE FROM documents WHERE collection = $1 AND id = $2`
	res, err := s.db.ExecContext(ctx, q, collection, id)
	if err != nil {
		return err
	}
	_, _ = res.RowsAffected()
	return nil
}

func decodeRecord(id string, raw []byte) (docstore.Record, error) {
	rec := docstore.Record{}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", id, err)
	}
	// The stored data never carries "id"; surface the row key as a field.
	rec["id"] = id
	return rec, nil
}
