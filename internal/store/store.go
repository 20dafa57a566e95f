// Package store implements the local issue cache: an embedded SQLite database
// holding issues, dependencies, labels, the durable write outbox, and sync
// metadata.
//
// The database lives at <repo>/.lb/cache.db and is opened in WAL mode so the
// foreground command, the background worker, and the export child can share
// it. All multi-row writes run inside a single transaction.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/steveyegge/lb/internal/types"
)

// Store wraps the cache database connection.
type Store struct {
	conn *sql.DB
	path string

	// onMutate is invoked after every successful cache mutation so the
	// JSONL export scheduler can debounce a snapshot. Nil in worker and
	// export children, which must not schedule exports themselves.
	onMutate func()
}

// Open opens (creating if necessary) the cache database at path, enables WAL
// journaling, and runs schema migrations. The caller must Close the store.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating cache directory: %v", types.ErrStorage, err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening cache database: %v", types.ErrStorage, err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: pinging cache database: %v", types.ErrStorage, err)
	}

	conn.SetMaxOpenConns(4)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{conn: conn, path: path}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("%w: %s: %v", types.ErrStorage, pragma, err)
		}
	}

	if err := s.migrate(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// SetMutationHook registers fn to run after every cache mutation. Passing nil
// disables notifications (required inside worker and export children).
func (s *Store) SetMutationHook(fn func()) { s.onMutate = fn }

func (s *Store) notify() {
	if s.onMutate != nil {
		s.onMutate()
	}
}

// Close checkpoints the WAL and closes the connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	_, _ = s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	err := s.conn.Close()
	s.conn = nil
	if err != nil {
		return fmt.Errorf("closing cache database: %w", err)
	}
	return nil
}

// storage wraps low-level database errors in the retriable storage class.
func storage(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", types.ErrStorage, op, err)
}

func timeToNullString(t *time.Time) sql.NullString {
	if t == nil || t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func nullStringToTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil
	}
	return &t
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
