package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/purgedom/dbopen"
)

// Schema is a key/value table holding the selector record under StorageKey.
const Schema = `
CREATE TABLE IF NOT EXISTS storage (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// SQLite stores the record in an SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite wraps an open database and applies Schema.
func NewSQLite(db *sql.DB) (*SQLite, error) {
	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("store: schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// OpenSQLite opens (or creates) the database file at path.
// The caller must blank-import modernc.org/sqlite.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(Schema))
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) Get(ctx context.Context, page string) ([]string, error) {
	raw, err := readRecord(s.db.QueryRowContext(ctx, `SELECT value FROM storage WHERE key = ?`, StorageKey))
	if err != nil {
		return nil, err
	}
	return decodeSelectors(decodeRecord(raw)[page]), nil
}

func (s *SQLite) Put(ctx context.Context, page string, selectors []string) error {
	return dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		raw, err := readRecord(tx.QueryRowContext(ctx, `SELECT value FROM storage WHERE key = ?`, StorageKey))
		if err != nil {
			return err
		}
		next, err := applyPut(raw, page, selectors)
		if err != nil {
			return fmt.Errorf("store: encode record: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO storage (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			StorageKey, string(next), time.Now().UnixMilli())
		if err != nil {
			return fmt.Errorf("store: write record: %w", err)
		}
		return nil
	})
}

// Raw returns the stored record, nil if absent.
func (s *SQLite) Raw(ctx context.Context) ([]byte, error) {
	return readRecord(s.db.QueryRowContext(ctx, `SELECT value FROM storage WHERE key = ?`, StorageKey))
}

func readRecord(row *sql.Row) ([]byte, error) {
	var value string
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: read record: %w", err)
	}
	return []byte(value), nil
}
