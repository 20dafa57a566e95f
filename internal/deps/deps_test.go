package deps

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/steveyegge/lb/internal/store"
	"github.com/steveyegge/lb/internal/types"
)

func newGraph(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func addIssue(t *testing.T, st *store.Store, id string, mutate ...func(*types.Issue)) {
	t.Helper()
	issue := &types.Issue{
		ID:        id,
		Title:     "issue " + id,
		Status:    types.StatusOpen,
		Priority:  2,
		CreatedAt: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
	}
	for _, fn := range mutate {
		fn(issue)
	}
	require.NoError(t, st.UpsertIssue(issue))
}

func link(t *testing.T, st *store.Store, from, to string, depType types.DependencyType) {
	t.Helper()
	require.NoError(t, st.UpsertDep(&types.Dependency{
		IssueID: from, DependsOnID: to, Type: depType,
	}))
}

func TestReadyFiltersBlockedAndForeign(t *testing.T) {
	st := newGraph(t)
	addIssue(t, st, "ENG-1")
	addIssue(t, st, "ENG-2", func(i *types.Issue) { i.Assignee = "me@example.com" })
	addIssue(t, st, "ENG-3", func(i *types.Issue) { i.Assignee = "other@example.com" })
	addIssue(t, st, "ENG-4")
	addIssue(t, st, "ENG-5", func(i *types.Issue) { i.Status = types.StatusInProgress })
	link(t, st, "ENG-1", "ENG-4", types.DepBlocks)

	ready, err := Ready(st, "me@example.com", false)
	require.NoError(t, err)
	ids := idsOf(ready)
	require.Contains(t, ids, "ENG-1", "unassigned and unblocked")
	require.Contains(t, ids, "ENG-2", "assigned to the viewer")
	require.NotContains(t, ids, "ENG-3", "assigned to someone else")
	require.NotContains(t, ids, "ENG-4", "blocked by ENG-1")
	require.NotContains(t, ids, "ENG-5", "not open")

	all, err := Ready(st, "me@example.com", true)
	require.NoError(t, err)
	require.Contains(t, idsOf(all), "ENG-3", "showAll includes other assignees")
}

func TestReadyOrder(t *testing.T) {
	st := newGraph(t)
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	addIssue(t, st, "ENG-1", func(i *types.Issue) { i.Priority = 2; i.UpdatedAt = base })
	addIssue(t, st, "ENG-2", func(i *types.Issue) { i.Priority = 0; i.UpdatedAt = base })
	addIssue(t, st, "ENG-3", func(i *types.Issue) { i.Priority = 0; i.UpdatedAt = base.Add(time.Hour) })

	ready, err := Ready(st, "", true)
	require.NoError(t, err)
	require.Equal(t, []string{"ENG-3", "ENG-2", "ENG-1"}, idsOf(ready))
}

func TestBlockedListsDirectBlockers(t *testing.T) {
	st := newGraph(t)
	addIssue(t, st, "ENG-1")
	addIssue(t, st, "ENG-2")
	addIssue(t, st, "ENG-3")
	addIssue(t, st, "ENG-4")
	link(t, st, "ENG-1", "ENG-3", types.DepBlocks)
	link(t, st, "ENG-2", "ENG-3", types.DepBlocks)
	link(t, st, "ENG-4", "ENG-3", types.DepParentChild)

	blocked, err := Blocked(st)
	require.NoError(t, err)
	require.Len(t, blocked, 2)

	require.Equal(t, "ENG-3", blocked[0].Issue.ID)
	require.Equal(t, []string{"ENG-1", "ENG-2"}, idsOf(blocked[0].Blockers))

	// Inherited from the blocked parent, no direct blockers of its own.
	require.Equal(t, "ENG-4", blocked[1].Issue.ID)
	require.Empty(t, blocked[1].Blockers)
}

func TestBlockedSkipsClosed(t *testing.T) {
	st := newGraph(t)
	addIssue(t, st, "ENG-1")
	addIssue(t, st, "ENG-2", func(i *types.Issue) { i.Status = types.StatusClosed })
	link(t, st, "ENG-1", "ENG-2", types.DepBlocks)

	blocked, err := Blocked(st)
	require.NoError(t, err)
	require.Empty(t, blocked, "closed issues are never reported as blocked")
}

func TestBlockedEmptyGraph(t *testing.T) {
	st := newGraph(t)
	blocked, err := Blocked(st)
	require.NoError(t, err)
	require.Nil(t, blocked)
}

func TestTree(t *testing.T) {
	st := newGraph(t)
	addIssue(t, st, "ENG-1")
	addIssue(t, st, "ENG-2")
	addIssue(t, st, "ENG-3")
	link(t, st, "ENG-1", "ENG-2", types.DepBlocks)
	link(t, st, "ENG-3", "ENG-1", types.DepParentChild)

	out, err := Tree(st, "ENG-3")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	require.True(t, strings.HasPrefix(lines[0], "ENG-3"))
	require.True(t, strings.HasPrefix(lines[1], "  ENG-1"))
	require.True(t, strings.HasPrefix(lines[2], "    ENG-2"))

	require.Contains(t, lines[0], "[READY]")
	require.Contains(t, lines[1], "[READY]")
	// ENG-2 is blocked by the still-open ENG-1.
	require.NotContains(t, lines[2], "[READY]")
}

func TestTreeCutsCycles(t *testing.T) {
	st := newGraph(t)
	addIssue(t, st, "ENG-1")
	addIssue(t, st, "ENG-2")
	link(t, st, "ENG-1", "ENG-2", types.DepBlocks)
	link(t, st, "ENG-2", "ENG-1", types.DepBlocks)

	out, err := Tree(st, "ENG-1")
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(out, "[cycle]"))
	// Root, its target, and the one revisit line; the walk must terminate.
	require.Len(t, strings.Split(strings.TrimRight(out, "\n"), "\n"), 3)
}

func TestTreeMissingRoot(t *testing.T) {
	st := newGraph(t)
	_, err := Tree(st, "ENG-404")
	require.ErrorIs(t, err, types.ErrNotFound)
}

func idsOf(issues []*types.Issue) []string {
	ids := make([]string, len(issues))
	for i, issue := range issues {
		ids[i] = issue.ID
	}
	return ids
}
