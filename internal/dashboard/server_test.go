package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/steveyegge/lb/internal/config"
	"github.com/steveyegge/lb/internal/store"
	"github.com/steveyegge/lb/internal/types"
)

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{RepoRoot: root}
	st, err := store.Open(cfg.DatabasePath())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })

	srv := New(cfg, st, "localhost:0", nil)
	t.Cleanup(func() { srv.cancel() })
	return srv, st
}

func put(t *testing.T, st *store.Store, id string, status types.Status) {
	t.Helper()
	err := st.UpsertIssue(&types.Issue{
		ID:        id,
		Title:     "issue " + id,
		Status:    status,
		Priority:  2,
		CreatedAt: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestHandleIssues(t *testing.T) {
	srv, st := newTestServer(t)
	put(t, st, "ENG-1", types.StatusOpen)
	put(t, st, "ENG-2", types.StatusClosed)

	rec := httptest.NewRecorder()
	srv.handleIssues(rec, httptest.NewRequest(http.MethodGet, "/issues", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var issues []*types.Issue
	if err := json.Unmarshal(rec.Body.Bytes(), &issues); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if len(issues) != 2 {
		t.Fatalf("len = %d, want 2", len(issues))
	}
}

func TestStats(t *testing.T) {
	srv, st := newTestServer(t)
	put(t, st, "ENG-1", types.StatusOpen)
	put(t, st, "ENG-2", types.StatusInProgress)
	put(t, st, "ENG-3", types.StatusClosed)
	put(t, st, "ENG-4", types.StatusOpen)
	if err := st.UpsertDep(&types.Dependency{
		IssueID: "ENG-1", DependsOnID: "ENG-4", Type: types.DepBlocks,
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := st.Enqueue(types.OpClose, map[string]string{"id": "ENG-3"}); err != nil {
		t.Fatal(err)
	}

	stats, err := srv.stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 4 || stats.Open != 2 || stats.InProgress != 1 || stats.Closed != 1 {
		t.Errorf("counts = %+v", stats)
	}
	if stats.Blocked != 1 {
		t.Errorf("Blocked = %d, want 1", stats.Blocked)
	}
	if stats.Outbox != 1 {
		t.Errorf("Outbox = %d, want 1", stats.Outbox)
	}
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Status  string `json:"status"`
		Clients int    `json:"clients"`
		Stats   Stats  `json:"stats"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q", body.Status)
	}
	if body.Clients != 0 {
		t.Errorf("clients = %d, want 0", body.Clients)
	}
}

func TestSnapshotMessage(t *testing.T) {
	srv, st := newTestServer(t)
	put(t, st, "ENG-1", types.StatusOpen)

	msg, err := srv.snapshotMessage()
	if err != nil {
		t.Fatal(err)
	}
	if msg.Type != MessageTypeSnapshot {
		t.Errorf("type = %q", msg.Type)
	}
	var issues []*types.Issue
	if err := json.Unmarshal(msg.Data, &issues); err != nil {
		t.Fatalf("decoding snapshot data: %v", err)
	}
	if len(issues) != 1 || issues[0].ID != "ENG-1" {
		t.Errorf("snapshot = %+v", issues)
	}
}
