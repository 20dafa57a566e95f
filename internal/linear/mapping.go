package linear

import (
	"time"

	"github.com/steveyegge/lb/internal/types"
)

// PriorityToRemote converts a local priority (0 highest .. 4 lowest) to
// Linear's scale (1 urgent, 2 high, 3 medium, 4 low, 0 none).
func PriorityToRemote(p int) int {
	switch p {
	case 0:
		return 1
	case 1:
		return 2
	case 2:
		return 3
	case 3:
		return 4
	default:
		return 0
	}
}

// PriorityFromRemote is the inverse of PriorityToRemote. Unknown values map to
// the default priority 2.
func PriorityFromRemote(p int) int {
	switch p {
	case 1:
		return 0
	case 2:
		return 1
	case 3:
		return 2
	case 4:
		return 3
	case 0:
		return 4
	default:
		return 2
	}
}

// StateTypesFor returns the Linear workflow-state types acceptable for a
// canonical status. Statuses map to state *types*, never to named states.
func StateTypesFor(status types.Status) []string {
	switch status {
	case types.StatusInProgress:
		return []string{"started"}
	case types.StatusClosed:
		return []string{"completed", "canceled"}
	default:
		return []string{"unstarted"}
	}
}

// StatusFromStateType converts a workflow-state type to the canonical status.
// Backlog and triage states count as open.
func StatusFromStateType(stateType string) types.Status {
	switch stateType {
	case "started":
		return types.StatusInProgress
	case "completed", "canceled":
		return types.StatusClosed
	default:
		return types.StatusOpen
	}
}

// Issue is the wire shape of a Linear issue node.
type Issue struct {
	ID         string  `json:"id"`
	Identifier string  `json:"identifier"`
	Title      string  `json:"title"`
	Desc       string  `json:"description"`
	Priority   int     `json:"priority"`
	CreatedAt  string  `json:"createdAt"`
	UpdatedAt  string  `json:"updatedAt"`
	CanceledAt *string `json:"canceledAt"`
	DoneAt     *string `json:"completedAt"`
	State      struct {
		Type string `json:"type"`
	} `json:"state"`
	Assignee *struct {
		Email string `json:"email"`
	} `json:"assignee"`
	Parent *struct {
		Identifier string `json:"identifier"`
	} `json:"parent"`
	Labels struct {
		Nodes []struct {
			Name   string `json:"name"`
			Parent *struct {
				Name string `json:"name"`
			} `json:"parent"`
		} `json:"nodes"`
	} `json:"labels"`
}

// issueFields is the selection set shared by every issue-returning query.
const issueFields = `
	id
	identifier
	title
	description
	priority
	createdAt
	updatedAt
	canceledAt
	completedAt
	state { type }
	assignee { email }
	parent { identifier }
	labels { nodes { name parent { name } } }
`

// ToIssue converts a wire issue to the canonical form. The parent identifier,
// when present, is returned separately so the caller can record the
// parent-child edge.
func (w *Issue) ToIssue() (*types.Issue, string) {
	issue := &types.Issue{
		ID:          w.Identifier,
		RemoteID:    w.ID,
		Title:       w.Title,
		Description: w.Desc,
		Status:      StatusFromStateType(w.State.Type),
		Priority:    PriorityFromRemote(w.Priority),
		CreatedAt:   parseRemoteTime(w.CreatedAt),
		UpdatedAt:   parseRemoteTime(w.UpdatedAt),
	}
	if w.Assignee != nil {
		issue.Assignee = w.Assignee.Email
	}
	if closed := firstRemoteTime(w.DoneAt, w.CanceledAt); closed != nil {
		issue.ClosedAt = closed
	}
	for _, label := range w.Labels.Nodes {
		if label.Parent != nil && label.Parent.Name == TypeLabelGroup {
			if t := types.IssueType(label.Name); t.IsValid() {
				issue.IssueType = t
			}
		}
	}

	parent := ""
	if w.Parent != nil {
		parent = w.Parent.Identifier
	}
	return issue, parent
}

func parseRemoteTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func firstRemoteTime(candidates ...*string) *time.Time {
	for _, c := range candidates {
		if c == nil || *c == "" {
			continue
		}
		t := parseRemoteTime(*c)
		if !t.IsZero() {
			return &t
		}
	}
	return nil
}
