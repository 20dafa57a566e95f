package linear

import (
	"testing"

	"github.com/steveyegge/lb/internal/types"
)

func TestPriorityRoundTrip(t *testing.T) {
	tests := []struct {
		local  int
		remote int
	}{
		{0, 1},
		{1, 2},
		{2, 3},
		{3, 4},
		{4, 0},
	}
	for _, tt := range tests {
		if got := PriorityToRemote(tt.local); got != tt.remote {
			t.Errorf("PriorityToRemote(%d) = %d, want %d", tt.local, got, tt.remote)
		}
		if got := PriorityFromRemote(tt.remote); got != tt.local {
			t.Errorf("PriorityFromRemote(%d) = %d, want %d", tt.remote, got, tt.local)
		}
	}
	// Unknown remote values land on the default priority.
	if got := PriorityFromRemote(7); got != 2 {
		t.Errorf("PriorityFromRemote(7) = %d, want 2", got)
	}
}

func TestStatusFromStateType(t *testing.T) {
	tests := []struct {
		stateType string
		want      types.Status
	}{
		{"unstarted", types.StatusOpen},
		{"backlog", types.StatusOpen},
		{"triage", types.StatusOpen},
		{"started", types.StatusInProgress},
		{"completed", types.StatusClosed},
		{"canceled", types.StatusClosed},
		{"somethingnew", types.StatusOpen},
	}
	for _, tt := range tests {
		if got := StatusFromStateType(tt.stateType); got != tt.want {
			t.Errorf("StatusFromStateType(%q) = %q, want %q", tt.stateType, got, tt.want)
		}
	}
}

func TestStateTypesFor(t *testing.T) {
	tests := []struct {
		status types.Status
		want   []string
	}{
		{types.StatusOpen, []string{"unstarted"}},
		{types.StatusInProgress, []string{"started"}},
		{types.StatusClosed, []string{"completed", "canceled"}},
	}
	for _, tt := range tests {
		got := StateTypesFor(tt.status)
		if len(got) != len(tt.want) {
			t.Errorf("StateTypesFor(%q) = %v, want %v", tt.status, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("StateTypesFor(%q) = %v, want %v", tt.status, got, tt.want)
				break
			}
		}
	}
}

func TestToIssue(t *testing.T) {
	done := "2026-08-02T09:30:00Z"
	w := &Issue{
		ID:         "uuid-1",
		Identifier: "ENG-42",
		Title:      "Fix the flaky login test",
		Desc:       "fails one run in five",
		Priority:   1,
		CreatedAt:  "2026-08-01T10:00:00Z",
		UpdatedAt:  "2026-08-02T09:30:00Z",
		DoneAt:     &done,
	}
	w.State.Type = "completed"
	w.Assignee = &struct {
		Email string `json:"email"`
	}{Email: "dev@example.com"}
	w.Parent = &struct {
		Identifier string `json:"identifier"`
	}{Identifier: "ENG-1"}
	w.Labels.Nodes = []struct {
		Name   string `json:"name"`
		Parent *struct {
			Name string `json:"name"`
		} `json:"parent"`
	}{
		{Name: "repo:lb"},
		{Name: "bug", Parent: &struct {
			Name string `json:"name"`
		}{Name: TypeLabelGroup}},
	}

	issue, parent := w.ToIssue()
	if issue.ID != "ENG-42" {
		t.Errorf("ID = %q, want ENG-42", issue.ID)
	}
	if issue.RemoteID != "uuid-1" {
		t.Errorf("RemoteID = %q, want uuid-1", issue.RemoteID)
	}
	if issue.Status != types.StatusClosed {
		t.Errorf("Status = %q, want closed", issue.Status)
	}
	if issue.Priority != 0 {
		t.Errorf("Priority = %d, want 0", issue.Priority)
	}
	if issue.Assignee != "dev@example.com" {
		t.Errorf("Assignee = %q", issue.Assignee)
	}
	if issue.IssueType != types.TypeBug {
		t.Errorf("IssueType = %q, want bug", issue.IssueType)
	}
	if issue.ClosedAt == nil {
		t.Fatal("ClosedAt = nil, want completedAt")
	}
	if parent != "ENG-1" {
		t.Errorf("parent = %q, want ENG-1", parent)
	}
}

func TestToIssueIgnoresUngroupedTypeLabel(t *testing.T) {
	w := &Issue{
		Identifier: "ENG-1",
		Title:      "t",
		CreatedAt:  "2026-08-01T10:00:00Z",
		UpdatedAt:  "2026-08-01T10:00:00Z",
	}
	w.State.Type = "backlog"
	// A plain "bug" label outside the type group must not set the type.
	w.Labels.Nodes = []struct {
		Name   string `json:"name"`
		Parent *struct {
			Name string `json:"name"`
		} `json:"parent"`
	}{{Name: "bug"}}

	issue, parent := w.ToIssue()
	if issue.IssueType != "" {
		t.Errorf("IssueType = %q, want empty", issue.IssueType)
	}
	if issue.Status != types.StatusOpen {
		t.Errorf("Status = %q, want open", issue.Status)
	}
	if parent != "" {
		t.Errorf("parent = %q, want empty", parent)
	}
	if issue.ClosedAt != nil {
		t.Errorf("ClosedAt = %v, want nil", issue.ClosedAt)
	}
}
