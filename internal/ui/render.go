package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/steveyegge/lb/internal/types"
)

// StatusLabel renders a status with its semantic color when interactive.
func StatusLabel(status types.Status) string {
	label := string(status)
	if !Interactive() {
		return label
	}
	switch status {
	case types.StatusInProgress:
		return InProgressStyle.Render(label)
	case types.StatusClosed:
		return ClosedStyle.Render(label)
	default:
		return OpenStyle.Render(label)
	}
}

// ID renders an issue identifier.
func ID(id string) string {
	if !Interactive() {
		return id
	}
	return IDStyle.Render(id)
}

// Muted renders secondary text.
func Muted(s string) string {
	if !Interactive() {
		return s
	}
	return MutedStyle.Render(s)
}

// IssueLine is the one-line list rendering of an issue.
func IssueLine(issue *types.Issue) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-12s P%d %-12s %s", issue.ID, issue.Priority, issue.Status, issue.Title)
	if issue.Assignee != "" {
		fmt.Fprintf(&b, " %s", Muted("@"+issue.Assignee))
	}
	if issue.IssueType != "" {
		fmt.Fprintf(&b, " %s", Muted("["+string(issue.IssueType)+"]"))
	}
	return b.String()
}

// IssueTable renders a list of issues with an aligned header.
func IssueTable(issues []*types.Issue) string {
	if len(issues) == 0 {
		return "no issues\n"
	}
	var b strings.Builder
	header := fmt.Sprintf("%-12s %-2s %-12s %s", "ID", "P", "STATUS", "TITLE")
	if Interactive() {
		header = HeaderStyle.Render(header)
	}
	b.WriteString(header + "\n")
	for _, issue := range issues {
		id := issue.ID
		fmt.Fprintf(&b, "%-12s P%d %-12s %s", id, issue.Priority, StatusLabel(issue.Status), issue.Title)
		if issue.Assignee != "" {
			b.WriteString(" " + Muted("@"+issue.Assignee))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// IssueDetail renders the full view of one issue, with its dependency edges
// when loaded.
func IssueDetail(issue *types.Issue) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", ID(issue.ID), issue.Title)
	fmt.Fprintf(&b, "  status:    %s\n", StatusLabel(issue.Status))
	fmt.Fprintf(&b, "  priority:  P%d\n", issue.Priority)
	if issue.IssueType != "" {
		fmt.Fprintf(&b, "  type:      %s\n", issue.IssueType)
	}
	if issue.Assignee != "" {
		fmt.Fprintf(&b, "  assignee:  %s\n", issue.Assignee)
	}
	fmt.Fprintf(&b, "  created:   %s\n", issue.CreatedAt.Local().Format(time.RFC822))
	fmt.Fprintf(&b, "  updated:   %s\n", issue.UpdatedAt.Local().Format(time.RFC822))
	if issue.ClosedAt != nil {
		fmt.Fprintf(&b, "  closed:    %s\n", issue.ClosedAt.Local().Format(time.RFC822))
	}
	if issue.Description != "" {
		b.WriteString("\n" + issue.Description + "\n")
	}
	if len(issue.Dependencies) > 0 {
		b.WriteString("\ndependencies:\n")
		for _, dep := range issue.Dependencies {
			fmt.Fprintf(&b, "  %s %s %s\n", dep.IssueID, Muted(string(dep.Type)), dep.DependsOnID)
		}
	}
	return b.String()
}
