package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/steveyegge/lb/internal/types"
)

const issueColumns = `identifier, remote_id, title, description, status, priority,
	issue_type, assignee, created_at, updated_at, closed_at, cached_at`

// issuesColumnsQualified is issueColumns with each column prefixed by the
// issues table name, for use in queries that JOIN issues against another
// table sharing column names (e.g. dependencies.created_at).
const issuesColumnsQualified = `issues.identifier, issues.remote_id, issues.title, issues.description, issues.status, issues.priority,
	issues.issue_type, issues.assignee, issues.created_at, issues.updated_at, issues.closed_at, issues.cached_at`

// UpsertIssue writes one issue into the cache, keyed by identifier. cached_at
// never moves backward, so a slow full-sync page cannot clobber a row a
// concurrent incremental pull already refreshed.
func (s *Store) UpsertIssue(issue *types.Issue) error {
	if err := issue.Validate(); err != nil {
		return err
	}
	if issue.CachedAt.IsZero() {
		issue.CachedAt = time.Now().UTC()
	}
	if err := s.upsertIssueExec(s.conn, issue); err != nil {
		return err
	}
	s.notify()
	return nil
}

// UpsertIssues writes a batch of issues inside one transaction.
func (s *Store) UpsertIssues(issues []*types.Issue) error {
	if len(issues) == 0 {
		return nil
	}
	now := time.Now().UTC()
	tx, err := s.conn.Begin()
	if err != nil {
		return storage("beginning upsert batch", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, issue := range issues {
		if err := issue.Validate(); err != nil {
			return err
		}
		if issue.CachedAt.IsZero() {
			issue.CachedAt = now
		}
		if err := s.upsertIssueExec(tx, issue); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return storage("committing upsert batch", err)
	}
	s.notify()
	return nil
}

type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func (s *Store) upsertIssueExec(db execer, issue *types.Issue) error {
	_, err := db.Exec(`
	INSERT INTO issues (`+issueColumns+`)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(identifier) DO UPDATE SET
		remote_id = excluded.remote_id,
		title = excluded.title,
		description = excluded.description,
		status = excluded.status,
		priority = excluded.priority,
		issue_type = excluded.issue_type,
		assignee = excluded.assignee,
		created_at = excluded.created_at,
		updated_at = excluded.updated_at,
		closed_at = excluded.closed_at,
		cached_at = MAX(issues.cached_at, excluded.cached_at)`,
		issue.ID,
		nullIfEmpty(issue.RemoteID),
		issue.Title,
		issue.Description,
		string(issue.Status),
		issue.Priority,
		nullIfEmpty(string(issue.IssueType)),
		issue.Assignee,
		formatTime(issue.CreatedAt),
		formatTime(issue.UpdatedAt),
		timeToNullString(issue.ClosedAt),
		formatTime(issue.CachedAt),
	)
	if err != nil {
		return storage("upserting issue "+issue.ID, err)
	}
	return nil
}

// RenameIssue replaces a pending placeholder identifier with the identifier
// the Remote assigned, carrying dependency edges along on both ends.
func (s *Store) RenameIssue(oldID, newID, remoteID string) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return storage("beginning rename", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.Exec(`UPDATE issues SET identifier = ?, remote_id = ? WHERE identifier = ?`,
		newID, nullIfEmpty(remoteID), oldID)
	if err != nil {
		return storage("renaming issue", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: issue %s", types.ErrNotFound, oldID)
	}
	if _, err := tx.Exec(`UPDATE dependencies SET issue_id = ? WHERE issue_id = ?`, newID, oldID); err != nil {
		return storage("renaming dependency sources", err)
	}
	if _, err := tx.Exec(`UPDATE dependencies SET depends_on_id = ? WHERE depends_on_id = ?`, newID, oldID); err != nil {
		return storage("renaming dependency targets", err)
	}
	if err := tx.Commit(); err != nil {
		return storage("committing rename", err)
	}
	s.notify()
	return nil
}

// GetIssue fetches one issue by public identifier. Matching is
// case-insensitive so `lb show eng-42` works.
func (s *Store) GetIssue(id string) (*types.Issue, error) {
	row := s.conn.QueryRow(`SELECT `+issueColumns+` FROM issues WHERE identifier = ? COLLATE NOCASE`, id)
	issue, err := scanIssue(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: issue %s", types.ErrNotFound, id)
	}
	if err != nil {
		return nil, storage("reading issue "+id, err)
	}
	return issue, nil
}

// GetIssueByRemoteID fetches one issue by the Remote's internal identifier.
func (s *Store) GetIssueByRemoteID(remoteID string) (*types.Issue, error) {
	row := s.conn.QueryRow(`SELECT `+issueColumns+` FROM issues WHERE remote_id = ?`, remoteID)
	issue, err := scanIssue(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: remote issue %s", types.ErrNotFound, remoteID)
	}
	if err != nil {
		return nil, storage("reading issue by remote id", err)
	}
	return issue, nil
}

// IssueFilter narrows ListIssues. Zero values mean "no constraint".
type IssueFilter struct {
	Status       types.Status
	Assignee     string
	IssueType    types.IssueType
	UpdatedSince time.Time
	Limit        int
}

// ListIssues scans the cache with the given filter, ordered by priority then
// most recent update.
func (s *Store) ListIssues(f IssueFilter) ([]*types.Issue, error) {
	query := `SELECT ` + issueColumns + ` FROM issues`
	var conds []string
	var args []interface{}

	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.Assignee != "" {
		conds = append(conds, "assignee = ?")
		args = append(args, f.Assignee)
	}
	if f.IssueType != "" {
		conds = append(conds, "issue_type = ?")
		args = append(args, string(f.IssueType))
	}
	if !f.UpdatedSince.IsZero() {
		conds = append(conds, "updated_at >= ?")
		args = append(args, formatTime(f.UpdatedSince))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY priority ASC, updated_at DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, storage("listing issues", err)
	}
	defer rows.Close()
	return scanIssues(rows)
}

// AllIssues returns every cached issue ordered by identifier, for export.
func (s *Store) AllIssues() ([]*types.Issue, error) {
	rows, err := s.conn.Query(`SELECT ` + issueColumns + ` FROM issues ORDER BY identifier ASC`)
	if err != nil {
		return nil, storage("listing all issues", err)
	}
	defer rows.Close()
	return scanIssues(rows)
}

// SearchIssues matches the query case-insensitively against title and
// description.
func (s *Store) SearchIssues(query string, limit int) ([]*types.Issue, error) {
	pattern := "%" + strings.ReplaceAll(strings.ReplaceAll(query, "%", `\%`), "_", `\_`) + "%"
	q := `SELECT ` + issueColumns + ` FROM issues
		WHERE title LIKE ? ESCAPE '\' COLLATE NOCASE
		   OR description LIKE ? ESCAPE '\' COLLATE NOCASE
		ORDER BY priority ASC, updated_at DESC`
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.conn.Query(q, pattern, pattern)
	if err != nil {
		return nil, storage("searching issues", err)
	}
	defer rows.Close()
	return scanIssues(rows)
}

// DeleteIssue removes an issue row and every dependency edge touching it.
func (s *Store) DeleteIssue(id string) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return storage("beginning delete", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.Exec(`DELETE FROM issues WHERE identifier = ?`, id)
	if err != nil {
		return storage("deleting issue "+id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: issue %s", types.ErrNotFound, id)
	}
	if _, err := tx.Exec(`DELETE FROM dependencies WHERE issue_id = ? OR depends_on_id = ?`, id, id); err != nil {
		return storage("deleting issue edges", err)
	}
	if err := tx.Commit(); err != nil {
		return storage("committing delete", err)
	}
	s.notify()
	return nil
}

// CountIssues returns the number of cached issues.
func (s *Store) CountIssues() (int, error) {
	var n int
	if err := s.conn.QueryRow(`SELECT COUNT(*) FROM issues`).Scan(&n); err != nil {
		return 0, storage("counting issues", err)
	}
	return n, nil
}

// ReplaceAllIssues is the clear-and-refill step of a full sync: inside one
// transaction it deletes every issue and every parent-child edge, rewrites the
// given snapshot, and drops non-parent-child edges whose endpoints no longer
// exist. Edges of other types between surviving issues are preserved because
// the Remote does not round-trip them.
func (s *Store) ReplaceAllIssues(issues []*types.Issue) (pruned int, err error) {
	before, err := s.CountIssues()
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	tx, err := s.conn.Begin()
	if err != nil {
		return 0, storage("beginning full replace", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM issues`); err != nil {
		return 0, storage("clearing issues", err)
	}
	if _, err := tx.Exec(`DELETE FROM dependencies WHERE type = ?`, string(types.DepParentChild)); err != nil {
		return 0, storage("clearing parent edges", err)
	}

	for _, issue := range issues {
		if err := issue.Validate(); err != nil {
			return 0, err
		}
		if issue.CachedAt.IsZero() {
			issue.CachedAt = now
		}
		if err := s.upsertIssueExec(tx, issue); err != nil {
			return 0, err
		}
		for _, dep := range issue.Dependencies {
			if err := upsertDepExec(tx, dep); err != nil {
				return 0, err
			}
		}
	}

	// Orphaned non-parent edges reference issues the Remote no longer has.
	if _, err := tx.Exec(`
		DELETE FROM dependencies
		WHERE issue_id NOT IN (SELECT identifier FROM issues)
		   OR depends_on_id NOT IN (SELECT identifier FROM issues)`); err != nil {
		return 0, storage("pruning orphan edges", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, storage("committing full replace", err)
	}
	s.notify()

	if pruned = before - len(issues); pruned < 0 {
		pruned = 0
	}
	return pruned, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanIssue(row rowScanner) (*types.Issue, error) {
	var (
		issue            types.Issue
		remoteID, issTyp sql.NullString
		closedAt         sql.NullString
		created, updated string
		cached           string
	)
	err := row.Scan(
		&issue.ID,
		&remoteID,
		&issue.Title,
		&issue.Description,
		&issue.Status,
		&issue.Priority,
		&issTyp,
		&issue.Assignee,
		&created,
		&updated,
		&closedAt,
		&cached,
	)
	if err != nil {
		return nil, err
	}
	issue.RemoteID = remoteID.String
	issue.IssueType = types.IssueType(issTyp.String)
	issue.CreatedAt = parseTime(created)
	issue.UpdatedAt = parseTime(updated)
	issue.ClosedAt = nullStringToTime(closedAt)
	issue.CachedAt = parseTime(cached)
	return &issue, nil
}

func scanIssues(rows *sql.Rows) ([]*types.Issue, error) {
	var issues []*types.Issue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, storage("scanning issue row", err)
		}
		issues = append(issues, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, storage("iterating issue rows", err)
	}
	return issues, nil
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
