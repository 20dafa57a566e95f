package importer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/steveyegge/lb/internal/config"
	"github.com/steveyegge/lb/internal/store"
	"github.com/steveyegge/lb/internal/syncer"
	"github.com/steveyegge/lb/internal/types"
)

func newImporter(t *testing.T) (*Importer, *store.Store, *config.Config) {
	t.Helper()
	cfg := &config.Config{
		RepoRoot:  t.TempDir(),
		RepoName:  "myrepo",
		RepoScope: config.ScopeLabel,
		CacheTTL:  config.DefaultCacheTTLSeconds,
		LocalOnly: true,
	}
	st, err := store.Open(cfg.DatabasePath())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	sync := syncer.New(cfg, st, nil)
	return New(cfg, st, sync, nil), st, cfg
}

func writeSource(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "beads.jsonl")
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const (
	srcOpen   = `{"id":"bd-1","title":"First","status":"open","priority":1,"updated_at":"2026-08-01T10:00:00Z","created_at":"2026-08-01T10:00:00Z"}`
	srcClosed = `{"id":"bd-2","title":"Done","status":"closed","priority":2,"updated_at":"2026-07-01T10:00:00Z","created_at":"2026-07-01T10:00:00Z"}`
	srcLinked = `{"id":"bd-3","title":"Third","status":"open","priority":2,"updated_at":"2026-08-02T10:00:00Z","created_at":"2026-08-02T10:00:00Z","dependencies":[{"issue_id":"bd-3","depends_on_id":"bd-1","type":"blocks"}]}`
)

func TestRunImportsAndRemapsEdges(t *testing.T) {
	im, st, cfg := newImporter(t)
	source := writeSource(t, srcOpen, srcClosed, srcLinked)

	result, err := im.Run(context.Background(), Options{Source: source})
	require.NoError(t, err)
	require.Equal(t, 2, result.Created)
	require.Equal(t, 1, result.Skipped, "closed issues are skipped by default")
	require.Equal(t, 1, result.Deps)

	first, err := st.GetIssue("LOCAL-1")
	require.NoError(t, err)
	require.Equal(t, "First", first.Title)
	require.Equal(t, 1, first.Priority)

	// The blocks edge points at the remapped identifiers, not bd-*.
	edges, err := st.DepsOf("LOCAL-2")
	require.NoError(t, err)
	require.Len(t, edges, 1)
	require.Equal(t, "LOCAL-1", edges[0].DependsOnID)
	require.Equal(t, types.DepBlocks, edges[0].Type)
	require.Equal(t, "import", edges[0].CreatedBy)

	// The identifier map was persisted.
	data, err := os.ReadFile(cfg.ImportMapPath())
	require.NoError(t, err)
	require.Contains(t, string(data), `"bd-1"`)
	require.Contains(t, string(data), `"LOCAL-1"`)
}

func TestRunIsIdempotent(t *testing.T) {
	im, st, _ := newImporter(t)
	source := writeSource(t, srcOpen)

	_, err := im.Run(context.Background(), Options{Source: source})
	require.NoError(t, err)

	second, err := im.Run(context.Background(), Options{Source: source})
	require.NoError(t, err)
	require.Zero(t, second.Created)
	require.Equal(t, 1, second.Skipped)

	n, err := st.CountIssues()
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestRunForceReimports(t *testing.T) {
	im, st, _ := newImporter(t)
	source := writeSource(t, srcOpen)

	_, err := im.Run(context.Background(), Options{Source: source})
	require.NoError(t, err)

	again, err := im.Run(context.Background(), Options{Source: source, Force: true})
	require.NoError(t, err)
	require.Equal(t, 1, again.Created)

	// Force allocates a fresh identifier rather than overwriting.
	n, err := st.CountIssues()
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestRunFilters(t *testing.T) {
	im, _, _ := newImporter(t)
	source := writeSource(t, srcOpen, srcClosed, srcLinked)

	// IncludeClosed picks up the closed issue too.
	all, err := im.Run(context.Background(), Options{Source: source, IncludeClosed: true, DryRun: true})
	require.NoError(t, err)
	require.Equal(t, 3, all.WouldCreate)

	// Since drops issues not updated after the cutoff.
	since, err := im.Run(context.Background(), Options{
		Source: source,
		Since:  time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC),
		DryRun: true,
	})
	require.NoError(t, err)
	require.Equal(t, 1, since.WouldCreate)
}

func TestRunDryRunWritesNothing(t *testing.T) {
	im, st, cfg := newImporter(t)
	source := writeSource(t, srcOpen)

	result, err := im.Run(context.Background(), Options{Source: source, DryRun: true})
	require.NoError(t, err)
	require.Equal(t, 1, result.WouldCreate)
	require.Zero(t, result.Created)

	n, err := st.CountIssues()
	require.NoError(t, err)
	require.Zero(t, n)
	_, err = os.Stat(cfg.ImportMapPath())
	require.True(t, os.IsNotExist(err))
}

func TestRunRejectsMalformedSource(t *testing.T) {
	im, _, _ := newImporter(t)
	source := writeSource(t, srcOpen, "{not json")

	_, err := im.Run(context.Background(), Options{Source: source})
	require.ErrorIs(t, err, types.ErrValidation)
}

func TestRunMissingSource(t *testing.T) {
	im, _, _ := newImporter(t)
	_, err := im.Run(context.Background(), Options{Source: filepath.Join(t.TempDir(), "absent.jsonl")})
	require.ErrorIs(t, err, types.ErrValidation)
}
