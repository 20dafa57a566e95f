package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/steveyegge/lb/internal/types"
)

// UpsertDep records a dependency edge. Re-adding an existing edge refreshes
// created_at/created_by rather than erroring.
func (s *Store) UpsertDep(dep *types.Dependency) error {
	if err := dep.Validate(); err != nil {
		return err
	}
	if dep.Type == types.DepParentChild {
		// One parent per issue. Replacing the edge re-parents.
		if _, err := s.conn.Exec(
			`DELETE FROM dependencies WHERE issue_id = ? AND type = ? AND depends_on_id != ?`,
			dep.IssueID, string(types.DepParentChild), dep.DependsOnID); err != nil {
			return storage("clearing previous parent", err)
		}
	}
	if err := upsertDepExec(s.conn, dep); err != nil {
		return err
	}
	s.notify()
	return nil
}

func upsertDepExec(db execer, dep *types.Dependency) error {
	created := dep.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := db.Exec(`
	INSERT INTO dependencies (issue_id, depends_on_id, type, created_at, created_by)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(issue_id, depends_on_id, type) DO UPDATE SET
		created_at = excluded.created_at,
		created_by = excluded.created_by`,
		dep.IssueID, dep.DependsOnID, string(dep.Type), formatTime(created), dep.CreatedBy)
	if err != nil {
		return storage(fmt.Sprintf("upserting edge %s -> %s", dep.IssueID, dep.DependsOnID), err)
	}
	return nil
}

// DeleteDep removes every edge of the given type between the two issues,
// checking both directions.
func (s *Store) DeleteDep(issueID, dependsOnID string, depType types.DependencyType) error {
	res, err := s.conn.Exec(`
	DELETE FROM dependencies
	WHERE type = ?
	  AND ((issue_id = ? AND depends_on_id = ?) OR (issue_id = ? AND depends_on_id = ?))`,
		string(depType), issueID, dependsOnID, dependsOnID, issueID)
	if err != nil {
		return storage("deleting edge", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: no %s edge between %s and %s", types.ErrNotFound, depType, issueID, dependsOnID)
	}
	s.notify()
	return nil
}

// DepsOf returns the outgoing edges of an issue.
func (s *Store) DepsOf(issueID string) ([]*types.Dependency, error) {
	return s.queryDeps(`SELECT issue_id, depends_on_id, type, created_at, created_by
		FROM dependencies WHERE issue_id = ? ORDER BY depends_on_id, type`, issueID)
}

// DepsOn returns the incoming edges of an issue (edges whose target it is).
func (s *Store) DepsOn(issueID string) ([]*types.Dependency, error) {
	return s.queryDeps(`SELECT issue_id, depends_on_id, type, created_at, created_by
		FROM dependencies WHERE depends_on_id = ? ORDER BY issue_id, type`, issueID)
}

// AllDeps returns every edge, ordered for stable export output.
func (s *Store) AllDeps() ([]*types.Dependency, error) {
	return s.queryDeps(`SELECT issue_id, depends_on_id, type, created_at, created_by
		FROM dependencies ORDER BY issue_id, depends_on_id, type`)
}

func (s *Store) queryDeps(query string, args ...interface{}) ([]*types.Dependency, error) {
	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, storage("listing dependencies", err)
	}
	defer rows.Close()

	var deps []*types.Dependency
	for rows.Next() {
		var (
			dep     types.Dependency
			created string
		)
		if err := rows.Scan(&dep.IssueID, &dep.DependsOnID, &dep.Type, &created, &dep.CreatedBy); err != nil {
			return nil, storage("scanning dependency row", err)
		}
		dep.CreatedAt = parseTime(created)
		deps = append(deps, &dep)
	}
	if err := rows.Err(); err != nil {
		return nil, storage("iterating dependency rows", err)
	}
	return deps, nil
}

// BlockedSet computes the identifiers of every blocked issue: issues that are
// the target of a blocks edge whose source is not closed, plus (transitively)
// every child of a blocked parent through parent-child edges.
func (s *Store) BlockedSet() (map[string]bool, error) {
	rows, err := s.conn.Query(`
	WITH RECURSIVE blocked(identifier) AS (
		SELECT d.depends_on_id
		FROM dependencies d
		JOIN issues b ON b.identifier = d.issue_id
		WHERE d.type = 'blocks' AND b.status != 'closed'
		UNION
		SELECT d.issue_id
		FROM dependencies d
		JOIN blocked bl ON bl.identifier = d.depends_on_id
		WHERE d.type = 'parent-child'
	)
	SELECT DISTINCT identifier FROM blocked`)
	if err != nil {
		return nil, storage("computing blocked set", err)
	}
	defer rows.Close()

	blocked := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storage("scanning blocked row", err)
		}
		blocked[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, storage("iterating blocked rows", err)
	}
	return blocked, nil
}

// Blockers returns the non-closed issues whose blocks edges target issueID.
func (s *Store) Blockers(issueID string) ([]*types.Issue, error) {
	rows, err := s.conn.Query(`
	SELECT `+issuesColumnsQualified+`
	FROM issues
	JOIN dependencies d ON d.issue_id = issues.identifier
	WHERE d.type = 'blocks' AND d.depends_on_id = ? AND issues.status != 'closed'
	ORDER BY issues.identifier`, issueID)
	if err != nil {
		return nil, storage("listing blockers", err)
	}
	defer rows.Close()
	return scanIssues(rows)
}

// Parent returns the parent issue of issueID, or nil when it has none.
func (s *Store) Parent(issueID string) (*types.Issue, error) {
	row := s.conn.QueryRow(`
	SELECT `+issuesColumnsQualified+`
	FROM issues
	JOIN dependencies d ON d.depends_on_id = issues.identifier
	WHERE d.type = 'parent-child' AND d.issue_id = ?`, issueID)
	issue, err := scanIssue(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storage("reading parent", err)
	}
	return issue, nil
}

// Children returns the direct children of issueID.
func (s *Store) Children(issueID string) ([]*types.Issue, error) {
	rows, err := s.conn.Query(`
	SELECT `+issuesColumnsQualified+`
	FROM issues
	JOIN dependencies d ON d.issue_id = issues.identifier
	WHERE d.type = 'parent-child' AND d.depends_on_id = ?
	ORDER BY issues.identifier`, issueID)
	if err != nil {
		return nil, storage("listing children", err)
	}
	defer rows.Close()
	return scanIssues(rows)
}
