// Package syncer implements the cache freshness protocol: push-before-pull,
// incremental and full paginated sync, and the outbox executor shared by the
// background worker and the --sync inline path.
package syncer

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/steveyegge/lb/internal/config"
	"github.com/steveyegge/lb/internal/linear"
	"github.com/steveyegge/lb/internal/lockfile"
	"github.com/steveyegge/lb/internal/store"
	"github.com/steveyegge/lb/internal/types"
)

// fullSyncMaxAge forces a periodic full pull so deletions on the Remote are
// eventually pruned locally.
const fullSyncMaxAge = 24 * time.Hour

// Syncer coordinates the local cache with the Remote for one repository.
type Syncer struct {
	cfg    *config.Config
	store  *store.Store
	client *linear.Client
	log    *log.Logger

	// InWorker is set inside the background worker. Foreground syncers
	// defer full pulls to a running worker; the worker never defers.
	InWorker bool

	// ForceFull makes the next SmartSync pull the full paginated snapshot
	// regardless of freshness heuristics. Set by `lb sync --full`.
	ForceFull bool

	team    *linear.Team
	scope   *linear.Scope
	labelID string
	viewer  *linear.User
}

// New builds a Syncer. The client is nil in local-only mode; every remote
// path checks for that first.
func New(cfg *config.Config, st *store.Store, logger *log.Logger) *Syncer {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	s := &Syncer{cfg: cfg, store: st, log: logger}
	if !cfg.LocalOnly && cfg.APIKey != "" {
		s.client = linear.NewClient(cfg.APIKey)
	}
	return s
}

// Client exposes the underlying remote client, nil when offline by
// configuration.
func (s *Syncer) Client() *linear.Client { return s.client }

// Remote reports whether this syncer can talk to the Remote at all.
func (s *Syncer) Remote() bool { return s.client != nil }

// ResolveTeam returns the configured team, resolving and caching it on first
// use. team_id wins over team_key.
func (s *Syncer) ResolveTeam(ctx context.Context) (*linear.Team, error) {
	if s.team != nil {
		return s.team, nil
	}
	if s.client == nil {
		return nil, fmt.Errorf("%w: no remote configured", types.ErrOffline)
	}

	if s.cfg.TeamID != "" {
		teams, err := s.client.Teams(ctx)
		if err != nil {
			return nil, err
		}
		for i := range teams {
			if teams[i].ID == s.cfg.TeamID {
				s.team = &teams[i]
				return s.team, nil
			}
		}
		return nil, fmt.Errorf("%w: team id %s", types.ErrNotFound, s.cfg.TeamID)
	}
	if s.cfg.TeamKey != "" {
		team, err := s.client.TeamByKey(ctx, s.cfg.TeamKey)
		if err != nil {
			return nil, err
		}
		s.team = team
		return team, nil
	}

	teams, err := s.client.Teams(ctx)
	if err != nil {
		return nil, err
	}
	if len(teams) != 1 {
		return nil, fmt.Errorf("%w: %d teams in workspace, set team_key to pick one", types.ErrValidation, len(teams))
	}
	s.team = &teams[0]
	return s.team, nil
}

// RepoLabel is the label scoping issues to this repository.
func (s *Syncer) RepoLabel() string { return "repo:" + s.cfg.RepoName }

// ResolveScope returns the repo-scope filter, creating the scoping label
// and/or project on first use.
func (s *Syncer) ResolveScope(ctx context.Context) (linear.Scope, error) {
	if s.scope != nil {
		return *s.scope, nil
	}
	team, err := s.ResolveTeam(ctx)
	if err != nil {
		return linear.Scope{}, err
	}

	scope := linear.Scope{}
	if s.cfg.RepoScope == config.ScopeLabel || s.cfg.RepoScope == config.ScopeBoth {
		labelID, err := s.client.EnsureLabel(ctx, team.ID, s.RepoLabel(), "")
		if err != nil {
			return linear.Scope{}, err
		}
		s.labelID = labelID
		scope.LabelName = s.RepoLabel()
	}
	if s.cfg.RepoScope == config.ScopeProject || s.cfg.RepoScope == config.ScopeBoth {
		projectID, err := s.client.EnsureProject(ctx, team.ID, s.cfg.RepoName)
		if err != nil {
			return linear.Scope{}, err
		}
		scope.ProjectID = projectID
	}
	s.scope = &scope
	return scope, nil
}

// ViewerEmail returns the authenticated user's email, cached after the first
// call. Empty in local-only mode.
func (s *Syncer) ViewerEmail(ctx context.Context) (string, error) {
	if s.client == nil {
		return "", nil
	}
	if s.viewer == nil {
		viewer, err := s.client.Viewer(ctx)
		if err != nil {
			return "", err
		}
		s.viewer = viewer
	}
	return s.viewer.Email, nil
}

// Result summarizes one sync run.
type Result struct {
	Pushed int
	Failed int
	Pulled int
	Pruned int
	Full   bool
}

// EnsureFresh syncs unless the cache is younger than the configured TTL.
// Local-only mode never syncs.
func (s *Syncer) EnsureFresh(ctx context.Context, force bool) (*Result, error) {
	if s.cfg.LocalOnly || s.client == nil {
		return &Result{}, nil
	}
	if !force {
		last, err := s.store.LastSync()
		if err != nil {
			return nil, err
		}
		if !last.IsZero() && time.Since(last) < time.Duration(s.cfg.CacheTTL)*time.Second {
			return &Result{}, nil
		}
	}
	return s.SmartSync(ctx)
}

// SmartSync pushes queued writes, then pulls: incrementally when the cache
// has a recent full snapshot, by full cursor pagination otherwise.
func (s *Syncer) SmartSync(ctx context.Context) (*Result, error) {
	if s.cfg.LocalOnly || s.client == nil {
		return &Result{}, nil
	}

	result := &Result{}
	result.Pushed, result.Failed = s.PushOutbox(ctx)

	last, err := s.store.LastSync()
	if err != nil {
		return nil, err
	}

	full := last.IsZero() || s.ForceFull || s.needsFullSync()
	if full && !s.InWorker && !s.ForceFull {
		// A running worker will do the expensive pull; keep the
		// foreground read fresh with an incremental pass.
		if _, running := lockfile.RunningWorker(s.cfg.PIDPath()); running && !last.IsZero() {
			full = false
		}
	}

	started := time.Now().UTC()
	if full {
		pulled, pruned, err := s.fullSync(ctx)
		if err != nil {
			return nil, err
		}
		result.Pulled, result.Pruned, result.Full = pulled, pruned, true
	} else {
		pulled, err := s.incrementalSync(ctx, last)
		if err != nil {
			return nil, err
		}
		result.Pulled = pulled
	}

	if err := s.store.MarkSync(started, full); err != nil {
		return nil, err
	}
	return result, nil
}

// needsFullSync is true when the last full pull is stale or every third run.
func (s *Syncer) needsFullSync() bool {
	lastFull, err := s.store.GetMetaTime(types.MetaLastFullSync)
	if err != nil || lastFull.IsZero() || time.Since(lastFull) > fullSyncMaxAge {
		return true
	}
	runs, err := s.store.GetMeta(types.MetaSyncRunCount)
	if err != nil {
		return true
	}
	var n int
	fmt.Sscanf(runs, "%d", &n) //nolint:errcheck
	return n%3 == 0
}

func (s *Syncer) incrementalSync(ctx context.Context, since time.Time) (int, error) {
	scope, err := s.ResolveScope(ctx)
	if err != nil {
		return 0, err
	}
	wire, err := s.client.FetchIssues(ctx, scope, &since)
	if err != nil {
		return 0, err
	}
	issues := make([]*types.Issue, 0, len(wire))
	var edges []*types.Dependency
	for i := range wire {
		issue, parent := wire[i].ToIssue()
		issues = append(issues, issue)
		if parent != "" {
			edges = append(edges, &types.Dependency{
				IssueID:     issue.ID,
				DependsOnID: parent,
				Type:        types.DepParentChild,
			})
		}
	}
	if err := s.store.UpsertIssues(issues); err != nil {
		return 0, err
	}
	for _, edge := range edges {
		if err := s.store.UpsertDep(edge); err != nil {
			return 0, err
		}
	}
	return len(issues), nil
}

func (s *Syncer) fullSync(ctx context.Context) (pulled, pruned int, err error) {
	scope, err := s.ResolveScope(ctx)
	if err != nil {
		return 0, 0, err
	}
	wire, err := s.client.FetchIssues(ctx, scope, nil)
	if err != nil {
		return 0, 0, err
	}
	issues := make([]*types.Issue, 0, len(wire))
	for i := range wire {
		issue, parent := wire[i].ToIssue()
		if parent != "" {
			issue.Dependencies = append(issue.Dependencies, &types.Dependency{
				IssueID:     issue.ID,
				DependsOnID: parent,
				Type:        types.DepParentChild,
			})
		}
		issues = append(issues, issue)
	}
	pruned, err = s.store.ReplaceAllIssues(issues)
	if err != nil {
		return 0, 0, err
	}
	return len(issues), pruned, nil
}
