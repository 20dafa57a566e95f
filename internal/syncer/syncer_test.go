package syncer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/steveyegge/lb/internal/config"
	"github.com/steveyegge/lb/internal/store"
	"github.com/steveyegge/lb/internal/types"
)

func newLocalSyncer(t *testing.T, localOnly bool) (*Syncer, *store.Store) {
	t.Helper()
	cfg := &config.Config{
		RepoRoot:  t.TempDir(),
		RepoName:  "myrepo",
		RepoScope: config.ScopeLabel,
		CacheTTL:  config.DefaultCacheTTLSeconds,
		LocalOnly: localOnly,
	}
	st, err := store.Open(cfg.DatabasePath())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return New(cfg, st, nil), st
}

func TestNewWithoutCredentialHasNoRemote(t *testing.T) {
	s, _ := newLocalSyncer(t, false)
	require.False(t, s.Remote())
	require.Nil(t, s.Client())
}

func TestEnsureFreshLocalOnly(t *testing.T) {
	s, _ := newLocalSyncer(t, true)
	result, err := s.EnsureFresh(context.Background(), true)
	require.NoError(t, err)
	require.Zero(t, *result)
}

func TestSmartSyncWithoutRemoteIsNoop(t *testing.T) {
	s, st := newLocalSyncer(t, false)
	result, err := s.SmartSync(context.Background())
	require.NoError(t, err)
	require.Zero(t, *result)

	// No sync mark is recorded for a no-op.
	last, err := st.LastSync()
	require.NoError(t, err)
	require.True(t, last.IsZero())
}

func TestResolveTeamOffline(t *testing.T) {
	s, _ := newLocalSyncer(t, true)
	_, err := s.ResolveTeam(context.Background())
	require.True(t, errors.Is(err, types.ErrOffline))
}

func TestRepoLabel(t *testing.T) {
	s, _ := newLocalSyncer(t, true)
	require.Equal(t, "repo:myrepo", s.RepoLabel())
}

func TestNeedsFullSync(t *testing.T) {
	s, st := newLocalSyncer(t, false)

	// Never fully synced.
	require.True(t, s.needsFullSync())

	now := time.Now().UTC()
	require.NoError(t, st.MarkSync(now, true))
	// run_count = 1, recent full snapshot.
	require.False(t, s.needsFullSync())

	require.NoError(t, st.MarkSync(now, false))
	require.False(t, s.needsFullSync())

	// Every third run pulls the full snapshot.
	require.NoError(t, st.MarkSync(now, false))
	require.True(t, s.needsFullSync())

	// A stale full snapshot forces a full pull regardless of the counter.
	require.NoError(t, st.MarkSync(now, true))
	require.NoError(t, st.SetMetaTime(types.MetaLastFullSync, now.Add(-25*time.Hour)))
	require.True(t, s.needsFullSync())
}
