// Package localstore is the console's shared persistent key/value state.
// Several console processes on one machine may follow the same log stream;
// they coordinate through this store the way browser tabs coordinate through
// local storage: advisory timestamps, no locking guarantee.
package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps the SQLite-backed key/value state.
type Store struct {
	db *sql.DB
}

// Open creates (if needed) and opens the state database.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	// WAL mode with a busy timeout so concurrent console processes do not
	// trip over each other's writes.
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping state database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	const migration = `
CREATE TABLE IF NOT EXISTS state (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`
	if _, err := s.db.ExecContext(ctx, migration); err != nil {
		return fmt.Errorf("state migration failed: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value for a key. The second return is false when the key
// is absent.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read state key %q: %w", key, err)
	}
	return value, true, nil
}

// Put writes a key, replacing any existing value.
func (s *Store) Put(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO state (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value)
	if err != nil {
		return fmt.Errorf("failed to write state key %q: %w", key, err)
	}
	return nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM state WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete state key %q: %w", key, err)
	}
	return nil
}

// pollKey names the shared poll stamp for one log target.
func pollKey(target string) string {
	return "poll:" + target
}

// PollStamp returns the last poll timestamp written for a log target by any
// console process. The second return is false when no stamp exists.
func (s *Store) PollStamp(ctx context.Context, target string) (time.Time, bool, error) {
	value, ok, err := s.Get(ctx, pollKey(target))
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	millis, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		// A corrupt stamp is treated as absent; the next refresh fixes it.
		return time.Time{}, false, nil
	}
	return time.UnixMilli(millis), true, nil
}

// RefreshPollStamp records that this process polled the target at t.
func (s *Store) RefreshPollStamp(ctx context.Context, target string, t time.Time) error {
	return s.Put(ctx, pollKey(target), strconv.FormatInt(t.UnixMilli(), 10))
}
