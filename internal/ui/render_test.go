package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/steveyegge/lb/internal/types"
)

// Test output goes through a pipe, so Interactive() is false and every
// rendering below is plain text.

func sampleIssue() *types.Issue {
	return &types.Issue{
		ID:        "ENG-42",
		Title:     "Fix the flaky login test",
		Status:    types.StatusInProgress,
		Priority:  1,
		Assignee:  "dev@example.com",
		IssueType: types.TypeBug,
		CreatedAt: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC),
	}
}

func TestIssueLine(t *testing.T) {
	line := IssueLine(sampleIssue())
	for _, want := range []string{"ENG-42", "P1", "in_progress", "Fix the flaky login test", "@dev@example.com", "[bug]"} {
		if !strings.Contains(line, want) {
			t.Errorf("IssueLine missing %q in %q", want, line)
		}
	}

	bare := IssueLine(&types.Issue{ID: "ENG-1", Title: "t", Status: types.StatusOpen})
	if strings.Contains(bare, "@") || strings.Contains(bare, "[") {
		t.Errorf("IssueLine rendered empty assignee/type markers: %q", bare)
	}
}

func TestIssueTable(t *testing.T) {
	out := IssueTable([]*types.Issue{sampleIssue()})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("table has %d lines, want header + 1 row", len(lines))
	}
	if !strings.HasPrefix(lines[0], "ID") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "ENG-42") {
		t.Errorf("row = %q", lines[1])
	}
}

func TestIssueTableEmpty(t *testing.T) {
	if got := IssueTable(nil); got != "no issues\n" {
		t.Errorf("IssueTable(nil) = %q", got)
	}
}

func TestIssueDetail(t *testing.T) {
	issue := sampleIssue()
	issue.Description = "fails one run in five"
	issue.Dependencies = []*types.Dependency{
		{IssueID: "ENG-42", DependsOnID: "ENG-7", Type: types.DepBlocks},
	}

	out := IssueDetail(issue)
	for _, want := range []string{
		"ENG-42 Fix the flaky login test",
		"status:    in_progress",
		"priority:  P1",
		"type:      bug",
		"assignee:  dev@example.com",
		"fails one run in five",
		"dependencies:",
		"ENG-42 blocks ENG-7",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("IssueDetail missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "closed:") {
		t.Error("IssueDetail rendered a closed timestamp for an open issue")
	}
}
