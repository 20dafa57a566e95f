package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/steveyegge/lb/internal/types"
)

// GetMeta reads one metadata value. Missing keys return "" without error.
func (s *Store) GetMeta(key string) (string, error) {
	var value string
	err := s.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", storage("reading metadata "+key, err)
	}
	return value, nil
}

// SetMeta writes one metadata value.
func (s *Store) SetMeta(key, value string) error {
	_, err := s.conn.Exec(
		`INSERT INTO metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return storage("writing metadata "+key, err)
	}
	return nil
}

// GetMetaTime reads a metadata value as an RFC 3339 timestamp. Missing or
// malformed values return the zero time.
func (s *Store) GetMetaTime(key string) (time.Time, error) {
	raw, err := s.GetMeta(key)
	if err != nil || raw == "" {
		return time.Time{}, err
	}
	return parseTime(raw), nil
}

// SetMetaTime writes a metadata timestamp.
func (s *Store) SetMetaTime(key string, t time.Time) error {
	return s.SetMeta(key, formatTime(t))
}

// IncrMeta atomically increments an integer metadata counter and returns the
// new value. Missing keys start from zero.
func (s *Store) IncrMeta(key string) (int64, error) {
	tx, err := s.conn.Begin()
	if err != nil {
		return 0, storage("beginning counter update", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var raw string
	var n int64
	err = tx.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&raw)
	switch {
	case err == sql.ErrNoRows:
		n = 0
	case err != nil:
		return 0, storage("reading counter "+key, err)
	default:
		if n, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return 0, storage("parsing counter "+key, err)
		}
	}
	n++
	if _, err := tx.Exec(
		`INSERT INTO metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, strconv.FormatInt(n, 10)); err != nil {
		return 0, storage("writing counter "+key, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, storage("committing counter update", err)
	}
	return n, nil
}

// NextLocalID allocates the next local-only identifier (LOCAL-1, LOCAL-2, ...).
func (s *Store) NextLocalID() (string, error) {
	n, err := s.IncrMeta(types.MetaNextLocalID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%d", types.LocalIDPrefix, n), nil
}

// LastSync returns the high-water mark used by incremental pulls.
func (s *Store) LastSync() (time.Time, error) {
	return s.GetMetaTime(types.MetaLastSync)
}

// MarkSync records a completed sync: the last_sync high-water mark always, the
// last_full_sync mark when full is set, and the rolling run counter.
func (s *Store) MarkSync(at time.Time, full bool) error {
	if err := s.SetMetaTime(types.MetaLastSync, at); err != nil {
		return err
	}
	if full {
		if err := s.SetMetaTime(types.MetaLastFullSync, at); err != nil {
			return err
		}
	}
	_, err := s.IncrMeta(types.MetaSyncRunCount)
	return err
}
