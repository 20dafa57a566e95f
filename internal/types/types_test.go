package types

import (
	"strings"
	"testing"
	"time"
)

func TestIssueValidate(t *testing.T) {
	valid := func() Issue {
		return Issue{
			ID:       "ENG-1",
			Title:    "a title",
			Status:   StatusOpen,
			Priority: 2,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Issue)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid issue",
			mutate: func(i *Issue) {},
		},
		{
			name:    "missing title",
			mutate:  func(i *Issue) { i.Title = "" },
			wantErr: true,
			errMsg:  "title is required",
		},
		{
			name:    "priority too high",
			mutate:  func(i *Issue) { i.Priority = 5 },
			wantErr: true,
			errMsg:  "priority must be between 0 and 4",
		},
		{
			name:    "priority negative",
			mutate:  func(i *Issue) { i.Priority = -1 },
			wantErr: true,
			errMsg:  "priority must be between 0 and 4",
		},
		{
			name:    "bad status",
			mutate:  func(i *Issue) { i.Status = "done" },
			wantErr: true,
			errMsg:  "invalid status",
		},
		{
			name:    "bad issue type",
			mutate:  func(i *Issue) { i.IssueType = "story" },
			wantErr: true,
			errMsg:  "invalid issue type",
		},
		{
			name:   "empty issue type is fine",
			mutate: func(i *Issue) { i.IssueType = "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issue := valid()
			tt.mutate(&issue)
			err := issue.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("Validate() = nil, want error")
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("Validate() = %q, want substring %q", err, tt.errMsg)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestDependencyValidate(t *testing.T) {
	tests := []struct {
		name    string
		dep     Dependency
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid edge",
			dep:  Dependency{IssueID: "ENG-1", DependsOnID: "ENG-2", Type: DepBlocks},
		},
		{
			name:    "missing endpoint",
			dep:     Dependency{IssueID: "ENG-1", Type: DepBlocks},
			wantErr: true,
			errMsg:  "endpoints are required",
		},
		{
			name:    "self edge",
			dep:     Dependency{IssueID: "ENG-1", DependsOnID: "ENG-1", Type: DepBlocks},
			wantErr: true,
			errMsg:  "cannot point at itself",
		},
		{
			name:    "unknown type",
			dep:     Dependency{IssueID: "ENG-1", DependsOnID: "ENG-2", Type: "requires"},
			wantErr: true,
			errMsg:  "invalid dependency type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.dep.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("Validate() = nil, want error")
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("Validate() = %q, want substring %q", err, tt.errMsg)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		raw     string
		want    Status
		wantErr bool
	}{
		{"open", StatusOpen, false},
		{"IN_PROGRESS", StatusInProgress, false},
		{"  closed  ", StatusClosed, false},
		{"done", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseStatus(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseStatus(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseStatus(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestIsIdentifier(t *testing.T) {
	tests := []struct {
		s    string
		want bool
	}{
		{"ENG-123", true},
		{"eng-1", true},
		{"LOCAL-7", true},
		{"A1-9", true},
		{"ENG-", false},
		{"-123", false},
		{"ENG123", false},
		{"pending-ab12cd34", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsIdentifier(tt.s); got != tt.want {
			t.Errorf("IsIdentifier(%q) = %v, want %v", tt.s, got, tt.want)
		}
	}
}

func TestSetDefaults(t *testing.T) {
	issue := Issue{ID: "ENG-1", Title: "t"}
	issue.SetDefaults()
	if issue.Status != StatusOpen {
		t.Errorf("Status = %q, want open", issue.Status)
	}
	if issue.CreatedAt.IsZero() || issue.UpdatedAt.IsZero() {
		t.Error("SetDefaults left zero timestamps")
	}

	// Existing values are preserved.
	at := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	issue = Issue{ID: "ENG-1", Title: "t", Status: StatusClosed, CreatedAt: at, UpdatedAt: at}
	issue.SetDefaults()
	if issue.Status != StatusClosed || !issue.CreatedAt.Equal(at) {
		t.Error("SetDefaults overwrote populated fields")
	}
}
