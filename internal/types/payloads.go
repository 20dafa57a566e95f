package types

// Outbox payloads. Each operation's payload carries everything the worker
// needs to replay the mutation against the Remote without re-reading command
// state.

// DepSpec is the textual form of a dependency recorded at create time, before
// the issue has a real identifier.
type DepSpec struct {
	Type    DependencyType `json:"type"`
	OtherID string         `json:"other_id"`
	// Inverse marks edges whose source is the other issue (--blocked-by).
	Inverse bool `json:"inverse,omitempty"`
}

// CreatePayload describes a queued issue creation. PendingID names the
// placeholder cache row the worker replaces once the Remote assigns an
// identifier.
type CreatePayload struct {
	PendingID   string    `json:"pending_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      Status    `json:"status"`
	Priority    int       `json:"priority"`
	IssueType   IssueType `json:"issue_type,omitempty"`
	Assignee    string    `json:"assignee,omitempty"`
	Parent      string    `json:"parent,omitempty"`
	Deps        []DepSpec `json:"deps,omitempty"`
}

// UpdatePayload describes a queued field update. Nil pointers mean "leave
// unchanged".
type UpdatePayload struct {
	ID          string     `json:"id"`
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Status      *Status    `json:"status,omitempty"`
	Priority    *int       `json:"priority,omitempty"`
	IssueType   *IssueType `json:"issue_type,omitempty"`
	Assignee    *string    `json:"assignee,omitempty"`
}

// ClosePayload describes a queued close, with an optional closing comment.
type ClosePayload struct {
	ID      string `json:"id"`
	Comment string `json:"comment,omitempty"`
}

// DeletePayload describes a queued deletion. The cache row is already gone.
type DeletePayload struct {
	ID string `json:"id"`
}

// RelationPayload describes a queued relation create or delete.
type RelationPayload struct {
	IssueID     string         `json:"issue_id"`
	DependsOnID string         `json:"depends_on_id"`
	Type        DependencyType `json:"type"`
}
