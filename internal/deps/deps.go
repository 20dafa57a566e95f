// Package deps computes reachability over the dependency graph: the blocked
// set, the ready list, and the textual dependency tree.
package deps

import (
	"fmt"
	"sort"
	"strings"

	"github.com/steveyegge/lb/internal/store"
	"github.com/steveyegge/lb/internal/types"
)

// Ready returns the open, unblocked issues. Unless showAll is set, issues
// assigned to someone other than viewerEmail are excluded; unassigned issues
// always qualify. Sorted by priority, then most recent update.
func Ready(st *store.Store, viewerEmail string, showAll bool) ([]*types.Issue, error) {
	blocked, err := st.BlockedSet()
	if err != nil {
		return nil, err
	}
	open, err := st.ListIssues(store.IssueFilter{Status: types.StatusOpen})
	if err != nil {
		return nil, err
	}

	var ready []*types.Issue
	for _, issue := range open {
		if blocked[issue.ID] {
			continue
		}
		if !showAll && issue.Assignee != "" && issue.Assignee != viewerEmail {
			continue
		}
		ready = append(ready, issue)
	}
	// ListIssues already orders by (priority, updated_at desc); keep it.
	return ready, nil
}

// BlockedIssue pairs a blocked issue with the open issues blocking it
// directly.
type BlockedIssue struct {
	Issue    *types.Issue
	Blockers []*types.Issue
}

// Blocked returns every non-closed issue in the blocked set together with its
// direct blockers. Issues blocked only by inheritance have no direct
// blockers.
func Blocked(st *store.Store) ([]*BlockedIssue, error) {
	blockedSet, err := st.BlockedSet()
	if err != nil {
		return nil, err
	}
	if len(blockedSet) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(blockedSet))
	for id := range blockedSet {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var result []*BlockedIssue
	for _, id := range ids {
		issue, err := st.GetIssue(id)
		if err != nil {
			// Edge to an issue the cache no longer holds.
			continue
		}
		if issue.Status == types.StatusClosed {
			continue
		}
		blockers, err := st.Blockers(id)
		if err != nil {
			return nil, err
		}
		result = append(result, &BlockedIssue{Issue: issue, Blockers: blockers})
	}
	return result, nil
}

// Tree renders the dependency tree rooted at id: a depth-first walk of
// outgoing blocks and parent-child edges. Cycles are cut with a visited set;
// open issues with no open incoming blockers are tagged [READY].
func Tree(st *store.Store, id string) (string, error) {
	root, err := st.GetIssue(id)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	visited := map[string]bool{}
	if err := writeTree(st, &b, root, "", visited); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeTree(st *store.Store, b *strings.Builder, issue *types.Issue, indent string,
	visited map[string]bool) error {

	tag := ""
	switch {
	case visited[issue.ID]:
		tag = " [cycle]"
	case issue.Status == types.StatusOpen:
		blockers, err := st.Blockers(issue.ID)
		if err != nil {
			return err
		}
		if len(blockers) == 0 {
			tag = " [READY]"
		}
	}
	fmt.Fprintf(b, "%s%s %s (%s, P%d)%s\n", indent, issue.ID, issue.Title, issue.Status, issue.Priority, tag)

	if visited[issue.ID] {
		return nil
	}
	visited[issue.ID] = true

	edges, err := st.DepsOf(issue.ID)
	if err != nil {
		return err
	}
	for _, edge := range edges {
		if edge.Type != types.DepBlocks && edge.Type != types.DepParentChild {
			continue
		}
		child, err := st.GetIssue(edge.DependsOnID)
		if err != nil {
			fmt.Fprintf(b, "%s  %s (missing)\n", indent, edge.DependsOnID)
			continue
		}
		if err := writeTree(st, b, child, indent+"  ", visited); err != nil {
			return err
		}
	}
	return nil
}
