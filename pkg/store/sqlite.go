package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite"

	"github.com/vanityserve/vanityserve/pkg/vanity"
)

const schema = `
CREATE TABLE IF NOT EXISTS vanity_results (
	phone_number TEXT PRIMARY KEY,
	result BLOB NOT NULL,
	summary TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
`

// SQLite persists results in a single table, one row per phone number. The
// result is stored msgpack-encoded next to its summary for ad hoc queries.
type SQLite struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer keeps INSERT OR IGNORE free of SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLite{db: db, path: path}, nil
}

// Get implements Store.
func (s *SQLite) Get(ctx context.Context, key string) (*vanity.Result, bool, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT result FROM vanity_results WHERE phone_number = ?`, key).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	var r vanity.Result
	if err := msgpack.Unmarshal(blob, &r); err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return &r, true, nil
}

// PutIfAbsent implements Store.
func (s *SQLite) PutIfAbsent(ctx context.Context, key string, result *vanity.Result) (bool, error) {
	blob, err := msgpack.Marshal(result)
	if err != nil {
		return false, fmt.Errorf("encode %s: %w", key, err)
	}
	created := result.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO vanity_results (phone_number, result, summary, created_at) VALUES (?, ?, ?, ?)`,
		key, blob, result.Summary(), created.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("put %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("put %s: %w", key, err)
	}
	return n == 1, nil
}

// Count returns how many numbers are stored.
func (s *SQLite) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vanity_results`).Scan(&n)
	return n, err
}

// Path returns the database location.
func (s *SQLite) Path() string { return s.path }

// Close implements Store.
func (s *SQLite) Close() error { return s.db.Close() }
