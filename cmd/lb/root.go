package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/steveyegge/lb/internal/config"
	"github.com/steveyegge/lb/internal/export"
	"github.com/steveyegge/lb/internal/store"
	"github.com/steveyegge/lb/internal/syncer"
	"github.com/steveyegge/lb/internal/types"
	"github.com/steveyegge/lb/internal/ui"
	"github.com/steveyegge/lb/internal/worker"
)

var (
	flagTeam      string
	flagLocalOnly bool
	jsonOut       bool
)

var rootCmd = &cobra.Command{
	Use:   "lb",
	Short: "Offline-first issue tracking backed by Linear",
	Long: `lb mirrors a Linear team into a local SQLite cache under .lb/.

Reads are served from the cache and refreshed in the background when stale.
Writes land in the cache immediately, queue in a durable outbox, and are
pushed to Linear by a detached worker, so every command returns instantly
even with no network. Run 'lb init' once per repository and 'lb auth' once
per machine.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagTeam, "team", "", "Linear team key (overrides configuration)")
	rootCmd.PersistentFlags().BoolVar(&flagLocalOnly, "local-only", false, "never contact Linear; new issues get LOCAL-<n> identifiers")
	rootCmd.PersistentFlags().BoolVarP(&jsonOut, "json", "j", false, "emit JSON instead of formatted text")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Execute runs the root command and maps the error class to an exit code:
// 0 success, 2 validation, 1 everything else.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		msg := err.Error()
		if errors.Is(err, types.ErrAuth) {
			msg += "; run 'lb auth' to set a credential"
		}
		fmt.Fprintln(os.Stderr, "error: "+msg)
		if errors.Is(err, types.ErrValidation) {
			return 2
		}
		return 1
	}
	return 0
}

// app bundles the per-invocation singletons: configuration, cache store, sync
// engine, and the debounced export scheduler.
type app struct {
	cfg   *config.Config
	store *store.Store
	sync  *syncer.Syncer
	sched *export.Scheduler
}

func openApp() (*app, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(cwd, rootCmd.PersistentFlags())
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.DatabasePath())
	if err != nil {
		return nil, err
	}
	a := &app{
		cfg:   cfg,
		store: st,
		sync:  syncer.New(cfg, st, nil),
		sched: export.NewScheduler(cfg),
	}
	st.SetMutationHook(a.sched.Request)
	return a, nil
}

// Close flushes any pending export request and closes the cache.
func (a *app) Close() {
	a.sched.Flush()
	_ = a.store.Close()
}

// ensureFresh refreshes the cache when stale. Network failures on implicit
// refreshes degrade to cache-only reads with a stderr notice; an explicit
// --sync propagates the error.
func (a *app) ensureFresh(ctx context.Context, force bool) error {
	_, err := a.sync.EnsureFresh(ctx, force)
	if err == nil {
		return nil
	}
	if force || errors.Is(err, types.ErrAuth) {
		return err
	}
	fmt.Fprintln(os.Stderr, ui.Muted("warning: cache may be stale ("+err.Error()+")"))
	return nil
}

func (a *app) getIssue(id string) (*types.Issue, error) {
	return a.store.GetIssue(strings.TrimSpace(id))
}

// enqueue records the operation in the outbox and signals the worker. The
// signal is best-effort; a failure to spawn leaves the row queued for the
// next command.
func (a *app) enqueue(op types.Operation, payload interface{}) error {
	if _, err := a.store.Enqueue(op, payload); err != nil {
		return err
	}
	if err := worker.Signal(a.cfg); err != nil {
		fmt.Fprintln(os.Stderr, ui.Muted("warning: could not start sync worker: "+err.Error()))
	}
	return nil
}

// resolveAssignee expands the "me" shorthand to the authenticated user's
// email.
func (a *app) resolveAssignee(ctx context.Context, val string) (string, error) {
	if val != "me" {
		return val, nil
	}
	email, err := a.sync.ViewerEmail(ctx)
	if err != nil {
		return "", err
	}
	if email == "" {
		return "", fmt.Errorf("%w: --assign me requires a configured remote", types.ErrValidation)
	}
	return email, nil
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func printIssue(issue *types.Issue) error {
	if jsonOut {
		return printJSON(issue)
	}
	fmt.Print(ui.IssueDetail(issue))
	return nil
}
