package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/steveyegge/lb/internal/types"
)

func addEdge(t *testing.T, st *Store, from, to string, depType types.DependencyType) {
	t.Helper()
	require.NoError(t, st.UpsertDep(&types.Dependency{
		IssueID: from, DependsOnID: to, Type: depType,
	}))
}

func TestUpsertDepReparents(t *testing.T) {
	st := newTestStore(t)
	for _, id := range []string{"ENG-1", "ENG-2", "ENG-3"} {
		require.NoError(t, st.UpsertIssue(testIssue(id)))
	}
	addEdge(t, st, "ENG-1", "ENG-2", types.DepParentChild)
	addEdge(t, st, "ENG-1", "ENG-3", types.DepParentChild)

	out, err := st.DepsOf("ENG-1")
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "ENG-3", out[0].DependsOnID)
}

func TestUpsertDepRejectsSelfEdge(t *testing.T) {
	st := newTestStore(t)
	err := st.UpsertDep(&types.Dependency{
		IssueID: "ENG-1", DependsOnID: "ENG-1", Type: types.DepBlocks,
	})
	require.ErrorIs(t, err, types.ErrValidation)
}

func TestDeleteDepEitherDirection(t *testing.T) {
	st := newTestStore(t)
	addEdge(t, st, "ENG-1", "ENG-2", types.DepRelated)

	// The caller may name the endpoints in either order.
	require.NoError(t, st.DeleteDep("ENG-2", "ENG-1", types.DepRelated))

	edges, err := st.AllDeps()
	require.NoError(t, err)
	require.Empty(t, edges)

	err = st.DeleteDep("ENG-1", "ENG-2", types.DepRelated)
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestBlockedSetDirect(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.UpsertIssue(testIssue("ENG-1")))
	require.NoError(t, st.UpsertIssue(testIssue("ENG-2")))
	addEdge(t, st, "ENG-1", "ENG-2", types.DepBlocks)

	blocked, err := st.BlockedSet()
	require.NoError(t, err)
	require.True(t, blocked["ENG-2"])
	require.False(t, blocked["ENG-1"])
}

func TestBlockedSetClosedBlockerReleases(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.UpsertIssue(testIssue("ENG-1", func(i *types.Issue) {
		i.Status = types.StatusClosed
	})))
	require.NoError(t, st.UpsertIssue(testIssue("ENG-2")))
	addEdge(t, st, "ENG-1", "ENG-2", types.DepBlocks)

	blocked, err := st.BlockedSet()
	require.NoError(t, err)
	require.Empty(t, blocked)
}

func TestBlockedSetInheritedThroughParent(t *testing.T) {
	st := newTestStore(t)
	// ENG-1 blocks ENG-2; ENG-3 and ENG-4 descend from ENG-2.
	for _, id := range []string{"ENG-1", "ENG-2", "ENG-3", "ENG-4"} {
		require.NoError(t, st.UpsertIssue(testIssue(id)))
	}
	addEdge(t, st, "ENG-1", "ENG-2", types.DepBlocks)
	addEdge(t, st, "ENG-3", "ENG-2", types.DepParentChild)
	addEdge(t, st, "ENG-4", "ENG-3", types.DepParentChild)

	blocked, err := st.BlockedSet()
	require.NoError(t, err)
	require.True(t, blocked["ENG-2"])
	require.True(t, blocked["ENG-3"], "child of a blocked parent")
	require.True(t, blocked["ENG-4"], "grandchild of a blocked parent")
	require.False(t, blocked["ENG-1"])
}

func TestBlockedSetRelatedDoesNotBlock(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.UpsertIssue(testIssue("ENG-1")))
	require.NoError(t, st.UpsertIssue(testIssue("ENG-2")))
	addEdge(t, st, "ENG-1", "ENG-2", types.DepRelated)
	addEdge(t, st, "ENG-1", "ENG-2", types.DepDiscoveredFrom)

	blocked, err := st.BlockedSet()
	require.NoError(t, err)
	require.Empty(t, blocked)
}

func TestBlockers(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.UpsertIssue(testIssue("ENG-1")))
	require.NoError(t, st.UpsertIssue(testIssue("ENG-2", func(i *types.Issue) {
		i.Status = types.StatusClosed
	})))
	require.NoError(t, st.UpsertIssue(testIssue("ENG-3")))
	addEdge(t, st, "ENG-1", "ENG-3", types.DepBlocks)
	addEdge(t, st, "ENG-2", "ENG-3", types.DepBlocks)

	blockers, err := st.Blockers("ENG-3")
	require.NoError(t, err)
	require.Len(t, blockers, 1)
	require.Equal(t, "ENG-1", blockers[0].ID)
}

func TestParentAndChildren(t *testing.T) {
	st := newTestStore(t)
	for _, id := range []string{"ENG-1", "ENG-2", "ENG-3"} {
		require.NoError(t, st.UpsertIssue(testIssue(id)))
	}
	addEdge(t, st, "ENG-2", "ENG-1", types.DepParentChild)
	addEdge(t, st, "ENG-3", "ENG-1", types.DepParentChild)

	parent, err := st.Parent("ENG-2")
	require.NoError(t, err)
	require.NotNil(t, parent)
	require.Equal(t, "ENG-1", parent.ID)

	parent, err = st.Parent("ENG-1")
	require.NoError(t, err)
	require.Nil(t, parent)

	children, err := st.Children("ENG-1")
	require.NoError(t, err)
	require.Len(t, children, 2)
	require.Equal(t, "ENG-2", children[0].ID)
	require.Equal(t, "ENG-3", children[1].ID)
}
