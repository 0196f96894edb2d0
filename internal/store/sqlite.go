package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SQLiteStore implements Store over the collections table.
//
// Each key maps to one row holding the serialised JSON array. SQLite's
// single-writer model plus the callers' own serialisation gives the
// single-writer semantics the engine relies on.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a SQLite-backed collection store.
// The db parameter should be an open connection with migrations applied.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Load returns the payload stored under key.
func (s *SQLiteStore) Load(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT payload FROM collections WHERE key = ?", key).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("loading collection %q: %w", key, err)
	}
	return payload, nil
}

// Save writes the payload under key, replacing any previous value.
func (s *SQLiteStore) Save(ctx context.Context, key string, payload []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO collections (key, payload, updated_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(key) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		key, payload)
	if err != nil {
		return fmt.Errorf("saving collection %q: %w", key, err)
	}
	return nil
}

// Keys returns all keys currently present in the store.
func (s *SQLiteStore) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key FROM collections ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("listing collection keys: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only iteration

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scanning collection key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating collection keys: %w", err)
	}
	return keys, nil
}
