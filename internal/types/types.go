// Package types defines the core data model shared by the store, the sync
// engine, and the command surface: issues, dependencies, labels, and outbox
// items.
package types

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Status is the canonical issue status. The Remote's workflow states map onto
// these three values by state type, never by state name.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusClosed     Status = "closed"
)

// IsValid reports whether s is one of the canonical statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusClosed:
		return true
	}
	return false
}

// ParseStatus converts a user-supplied string to a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", fmt.Errorf("%w: unknown status %q (want open, in_progress, closed)", ErrValidation, raw)
	}
	return s, nil
}

// IssueType categorizes an issue. Types are optional and only applied when
// type labelling is enabled in the configuration.
type IssueType string

const (
	TypeBug     IssueType = "bug"
	TypeFeature IssueType = "feature"
	TypeTask    IssueType = "task"
	TypeEpic    IssueType = "epic"
	TypeChore   IssueType = "chore"
)

// IsValid reports whether t is a known issue type.
func (t IssueType) IsValid() bool {
	switch t {
	case TypeBug, TypeFeature, TypeTask, TypeEpic, TypeChore:
		return true
	}
	return false
}

// ParseIssueType converts a user-supplied string to an IssueType.
func ParseIssueType(raw string) (IssueType, error) {
	t := IssueType(strings.ToLower(strings.TrimSpace(raw)))
	if !t.IsValid() {
		return "", fmt.Errorf("%w: unknown issue type %q (want bug, feature, task, epic, chore)", ErrValidation, raw)
	}
	return t, nil
}

// DependencyType classifies a directed edge between two issues.
type DependencyType string

const (
	// DepBlocks means the edge source blocks the edge target while the
	// source is not closed.
	DepBlocks DependencyType = "blocks"
	// DepRelated is informational and does not affect reachability.
	DepRelated DependencyType = "related"
	// DepParentChild makes the edge target the parent of the source. An
	// issue has at most one outgoing parent-child edge.
	DepParentChild DependencyType = "parent-child"
	// DepDiscoveredFrom records provenance and does not affect reachability.
	DepDiscoveredFrom DependencyType = "discovered-from"
)

// IsValid reports whether d is a known dependency type.
func (d DependencyType) IsValid() bool {
	switch d {
	case DepBlocks, DepRelated, DepParentChild, DepDiscoveredFrom:
		return true
	}
	return false
}

// ParseDependencyType converts a user-supplied string to a DependencyType.
func ParseDependencyType(raw string) (DependencyType, error) {
	d := DependencyType(strings.ToLower(strings.TrimSpace(raw)))
	if !d.IsValid() {
		return "", fmt.Errorf("%w: unknown dependency type %q", ErrValidation, raw)
	}
	return d, nil
}

// PendingID is the placeholder identifier printed for a queued create until
// the background worker confirms the issue with the Remote.
const PendingID = "pending"

// LocalIDPrefix prefixes identifiers allocated in local-only mode.
const LocalIDPrefix = "LOCAL-"

var identifierRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*-[0-9]+$`)

// IsIdentifier reports whether s looks like a public issue identifier of the
// form TEAM-123 (or LOCAL-7).
func IsIdentifier(s string) bool {
	return identifierRe.MatchString(s)
}

// Issue is the cached representation of a Remote issue (or a local-only
// issue). The public Identifier is the stable key; RemoteID is the Remote's
// internal identifier and is empty in local-only mode.
type Issue struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status"`
	Priority    int        `json:"priority"`
	IssueType   IssueType  `json:"issue_type,omitempty"`
	Assignee    string     `json:"assignee,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`

	// RemoteID is the Remote's opaque issue identifier (a UUID for Linear).
	RemoteID string `json:"-"`
	// CachedAt records when this row was last written to the local store.
	CachedAt time.Time `json:"-"`

	// Dependencies holds outgoing edges when the caller asked for them
	// (show, export). It is not populated by plain list scans.
	Dependencies []*Dependency `json:"dependencies,omitempty"`
}

// Validate checks field values before any cache or queue mutation.
func (i *Issue) Validate() error {
	if i.Title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if i.Priority < 0 || i.Priority > 4 {
		return fmt.Errorf("%w: priority must be between 0 and 4 (got %d)", ErrValidation, i.Priority)
	}
	if !i.Status.IsValid() {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, i.Status)
	}
	if i.IssueType != "" && !i.IssueType.IsValid() {
		return fmt.Errorf("%w: invalid issue type %q", ErrValidation, i.IssueType)
	}
	return nil
}

// SetDefaults fills zero-valued optional fields.
func (i *Issue) SetDefaults() {
	if i.Status == "" {
		i.Status = StatusOpen
	}
	now := time.Now().UTC()
	if i.CreatedAt.IsZero() {
		i.CreatedAt = now
	}
	if i.UpdatedAt.IsZero() {
		i.UpdatedAt = now
	}
}

// Dependency is a directed edge (IssueID, DependsOnID, Type).
type Dependency struct {
	IssueID     string         `json:"issue_id"`
	DependsOnID string         `json:"depends_on_id"`
	Type        DependencyType `json:"type"`
	CreatedAt   time.Time      `json:"created_at"`
	CreatedBy   string         `json:"created_by,omitempty"`
}

// Validate checks field values of the edge.
func (d *Dependency) Validate() error {
	if d.IssueID == "" || d.DependsOnID == "" {
		return fmt.Errorf("%w: dependency endpoints are required", ErrValidation)
	}
	if d.IssueID == d.DependsOnID {
		return fmt.Errorf("%w: dependency cannot point at itself", ErrValidation)
	}
	if !d.Type.IsValid() {
		return fmt.Errorf("%w: invalid dependency type %q", ErrValidation, d.Type)
	}
	return nil
}

// Label is a Remote label cached locally, used for repo scoping
// (repo:<name>) and optional type tagging.
type Label struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	TeamID string `json:"team_id,omitempty"`
}

// Operation names an intended Remote mutation recorded in the outbox.
type Operation string

const (
	OpCreate         Operation = "create"
	OpUpdate         Operation = "update"
	OpClose          Operation = "close"
	OpDelete         Operation = "delete"
	OpCreateRelation Operation = "create_relation"
	OpDeleteRelation Operation = "delete_relation"
)

// IsValid reports whether op is a known outbox operation.
func (op Operation) IsValid() bool {
	switch op {
	case OpCreate, OpUpdate, OpClose, OpDelete, OpCreateRelation, OpDeleteRelation:
		return true
	}
	return false
}

// OutboxItem is one durable row of the write queue. Rows are immutable except
// for retry bookkeeping and are removed only on successful push.
type OutboxItem struct {
	ID         int64           `json:"id"`
	Operation  Operation       `json:"operation"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  time.Time       `json:"created_at"`
	RetryCount int             `json:"retry_count"`
	LastError  string          `json:"last_error,omitempty"`
}

// Metadata keys used by the sync engine and local-only ID allocation.
const (
	MetaLastSync     = "last_sync"
	MetaLastFullSync = "last_full_sync"
	MetaSyncRunCount = "sync_run_count"
	MetaNextLocalID  = "next_local_id"
)
