// Package export maintains the canonical JSONL snapshot at
// <repo>/.lb/issues.jsonl and the debounce scheduler that keeps it trailing
// the cache.
package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/steveyegge/lb/internal/config"
	"github.com/steveyegge/lb/internal/store"
	"github.com/steveyegge/lb/internal/types"
)

// line is the snapshot shape of one issue. Field order is fixed so lines diff
// cleanly across snapshots.
type line struct {
	ID           string              `json:"id"`
	Title        string              `json:"title"`
	Description  string              `json:"description,omitempty"`
	Status       types.Status        `json:"status"`
	Priority     int                 `json:"priority"`
	IssueType    types.IssueType     `json:"issue_type,omitempty"`
	CreatedAt    string              `json:"created_at"`
	UpdatedAt    string              `json:"updated_at"`
	ClosedAt     string              `json:"closed_at,omitempty"`
	Dependencies []*types.Dependency `json:"dependencies,omitempty"`
}

// Run is the body of the `--export-worker` child: snapshot the cache to the
// JSONL file and exit.
func Run(cfg *config.Config) error {
	st, err := store.Open(cfg.DatabasePath())
	if err != nil {
		return err
	}
	defer st.Close()
	return Write(st, cfg.JSONLPath())
}

// Write renders every cached issue, one compact JSON object per line in
// ascending identifier order, writing through a temp file and renaming so
// readers never observe a partial snapshot.
func Write(st *store.Store, path string) error {
	issues, err := st.AllIssues()
	if err != nil {
		return err
	}
	deps, err := st.AllDeps()
	if err != nil {
		return err
	}
	depsBySource := map[string][]*types.Dependency{}
	for _, dep := range deps {
		depsBySource[dep.IssueID] = append(depsBySource[dep.IssueID], dep)
	}

	sort.Slice(issues, func(i, j int) bool { return issues[i].ID < issues[j].ID })

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", tmp, err)
	}

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, issue := range issues {
		if err := enc.Encode(toLine(issue, depsBySource[issue.ID])); err != nil {
			f.Close()
			os.Remove(tmp)
			return fmt.Errorf("encoding %s: %w", issue.ID, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("flushing %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming snapshot: %w", err)
	}
	return nil
}

func toLine(issue *types.Issue, deps []*types.Dependency) line {
	l := line{
		ID:           issue.ID,
		Title:        issue.Title,
		Description:  issue.Description,
		Status:       issue.Status,
		Priority:     issue.Priority,
		IssueType:    issue.IssueType,
		CreatedAt:    issue.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    issue.UpdatedAt.UTC().Format(time.RFC3339),
		Dependencies: deps,
	}
	if issue.ClosedAt != nil {
		l.ClosedAt = issue.ClosedAt.UTC().Format(time.RFC3339)
	}
	return l
}
