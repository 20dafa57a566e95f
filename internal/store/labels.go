package store

import (
	"database/sql"

	"github.com/steveyegge/lb/internal/types"
)

// UpsertLabels replaces the cached copy of the Remote's labels for lookup by
// name.
func (s *Store) UpsertLabels(labels []*types.Label) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return storage("beginning label upsert", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, label := range labels {
		if _, err := tx.Exec(
			`INSERT INTO labels (id, name, team_id) VALUES (?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET name = excluded.name, team_id = excluded.team_id`,
			label.ID, label.Name, label.TeamID); err != nil {
			return storage("upserting label "+label.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return storage("committing label upsert", err)
	}
	return nil
}

// LabelByName looks up a cached label case-insensitively. Missing labels
// return nil without error.
func (s *Store) LabelByName(name string) (*types.Label, error) {
	var label types.Label
	err := s.conn.QueryRow(
		`SELECT id, name, team_id FROM labels WHERE name = ? COLLATE NOCASE`,
		name).Scan(&label.ID, &label.Name, &label.TeamID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storage("reading label "+name, err)
	}
	return &label, nil
}

// AllLabels returns every cached label ordered by name.
func (s *Store) AllLabels() ([]*types.Label, error) {
	rows, err := s.conn.Query(`SELECT id, name, team_id FROM labels ORDER BY name`)
	if err != nil {
		return nil, storage("listing labels", err)
	}
	defer rows.Close()

	var labels []*types.Label
	for rows.Next() {
		var label types.Label
		if err := rows.Scan(&label.ID, &label.Name, &label.TeamID); err != nil {
			return nil, storage("scanning label row", err)
		}
		labels = append(labels, &label)
	}
	if err := rows.Err(); err != nil {
		return nil, storage("iterating label rows", err)
	}
	return labels, nil
}
