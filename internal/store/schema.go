package store

import (
	"database/sql"
	"fmt"

	"github.com/steveyegge/lb/internal/types"
)

// currentSchemaVersion is bumped whenever the schema changes shape. Migrations
// run in order inside a transaction; a failed migration leaves the database
// untouched and the open fails.
const currentSchemaVersion = 1

const schemaSQL = `
CREATE TABLE IF NOT EXISTS issues (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	identifier TEXT NOT NULL UNIQUE,
	remote_id TEXT,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'open',
	priority INTEGER NOT NULL DEFAULT 2,
	issue_type TEXT,
	assignee TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	closed_at TEXT,
	cached_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS dependencies (
	issue_id TEXT NOT NULL,
	depends_on_id TEXT NOT NULL,
	type TEXT NOT NULL,
	created_at TEXT NOT NULL,
	created_by TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (issue_id, depends_on_id, type)
);

CREATE TABLE IF NOT EXISTS labels (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	team_id TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS outbox (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	operation TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at TEXT NOT NULL,
	retry_count INTEGER NOT NULL DEFAULT 0,
	last_error TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS metadata (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_issues_status ON issues(status);
CREATE INDEX IF NOT EXISTS idx_issues_remote ON issues(remote_id);
CREATE INDEX IF NOT EXISTS idx_issues_cached ON issues(cached_at);
CREATE INDEX IF NOT EXISTS idx_deps_target ON dependencies(depends_on_id);
CREATE INDEX IF NOT EXISTS idx_deps_type ON dependencies(type, issue_id);
`

// migrate creates the schema on a fresh database and applies any pending
// version migrations on an existing one.
func (s *Store) migrate() error {
	if _, err := s.conn.Exec(schemaSQL); err != nil {
		return fmt.Errorf("%w: initializing schema: %v", types.ErrStorage, err)
	}

	version, err := s.schemaVersion()
	if err != nil {
		return err
	}
	for v := version; v < currentSchemaVersion; v++ {
		if err := s.applyMigration(v); err != nil {
			return fmt.Errorf("%w: migrating schema %d -> %d: %v", types.ErrStorage, v, v+1, err)
		}
	}
	return nil
}

func (s *Store) schemaVersion() (int, error) {
	var raw sql.NullString
	err := s.conn.QueryRow(`SELECT value FROM metadata WHERE key = 'schema_version'`).Scan(&raw)
	if err == sql.ErrNoRows {
		// Fresh database: the CREATE TABLE block above already produced
		// the current shape, so stamp it and skip the migration chain.
		if _, err := s.conn.Exec(
			`INSERT INTO metadata (key, value) VALUES ('schema_version', ?)`,
			fmt.Sprint(currentSchemaVersion)); err != nil {
			return 0, storage("stamping schema version", err)
		}
		return currentSchemaVersion, nil
	}
	if err != nil {
		return 0, storage("reading schema version", err)
	}
	var version int
	if _, err := fmt.Sscanf(raw.String, "%d", &version); err != nil {
		return 0, storage("parsing schema version", err)
	}
	return version, nil
}

func (s *Store) applyMigration(from int) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	switch from {
	case 0:
		// Version 0 databases carried issue_type NOT NULL, which broke
		// teams that disable type labelling. Rebuild without it.
		stmts := []string{
			`ALTER TABLE issues RENAME TO issues_old`,
			`CREATE TABLE issues (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				identifier TEXT NOT NULL UNIQUE,
				remote_id TEXT,
				title TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL DEFAULT 'open',
				priority INTEGER NOT NULL DEFAULT 2,
				issue_type TEXT,
				assignee TEXT NOT NULL DEFAULT '',
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				closed_at TEXT,
				cached_at TEXT NOT NULL
			)`,
			`INSERT INTO issues SELECT * FROM issues_old`,
			`DROP TABLE issues_old`,
			`CREATE INDEX IF NOT EXISTS idx_issues_status ON issues(status)`,
			`CREATE INDEX IF NOT EXISTS idx_issues_remote ON issues(remote_id)`,
			`CREATE INDEX IF NOT EXISTS idx_issues_cached ON issues(cached_at)`,
		}
		for _, stmt := range stmts {
			if _, err := tx.Exec(stmt); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("no migration from version %d", from)
	}

	if _, err := tx.Exec(
		`UPDATE metadata SET value = ? WHERE key = 'schema_version'`,
		fmt.Sprint(from+1)); err != nil {
		return err
	}
	return tx.Commit()
}
