// Package worker runs the background outbox drain loop and the launcher that
// spawns it as a detached process.
package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/steveyegge/lb/internal/config"
	"github.com/steveyegge/lb/internal/lockfile"
	"github.com/steveyegge/lb/internal/store"
	"github.com/steveyegge/lb/internal/syncer"
)

const (
	pollInterval   = 500 * time.Millisecond
	idleTimeout    = 5 * time.Second
	failureBackoff = time.Second
)

// Run is the body of the `--worker` child process. It acquires the PID file,
// drains the outbox until the queue stays empty past the idle window with no
// touches, pulls if it pushed anything, and exits.
func Run(cfg *config.Config) error {
	logger := newLogger(cfg)

	pidFile, err := lockfile.Acquire(cfg.PIDPath())
	if err != nil {
		// Another worker won the race; it owns the queue now.
		logger.Printf("not starting: %v", err)
		return nil
	}
	defer pidFile.Release()

	st, err := store.Open(cfg.DatabasePath())
	if err != nil {
		return err
	}
	defer st.Close()

	sync := syncer.New(cfg, st, logger)
	sync.InWorker = true

	ctx := context.Background()
	logger.Printf("worker started (repo %s)", cfg.RepoName)

	didWork := false
	idleSince := time.Time{}
	lastTouch, _ := pidFile.ModTime()
	attempted := map[int64]bool{}

	for {
		items, err := st.ListOutbox()
		if err != nil {
			return err
		}

		// Rows that already failed this run wait for a future worker;
		// retrying them every poll would hammer the Remote.
		pending := items[:0]
		for _, item := range items {
			if !attempted[item.ID] {
				pending = append(pending, item)
			}
		}

		if len(pending) == 0 {
			if idleSince.IsZero() {
				idleSince = time.Now()
			}
			// A touch from an enqueuer restarts the idle window.
			if mtime, err := pidFile.ModTime(); err == nil && mtime.After(lastTouch) {
				lastTouch = mtime
				idleSince = time.Now()
			}
			if time.Since(idleSince) >= idleTimeout {
				break
			}
			time.Sleep(pollInterval)
			continue
		}
		idleSince = time.Time{}

		for _, item := range pending {
			if err := sync.Execute(ctx, item); err != nil {
				attempted[item.ID] = true
				_ = st.FailOutbox(item.ID, err)
				logger.Printf("outbox %d (%s) failed: %v", item.ID, item.Operation, err)
				time.Sleep(failureBackoff)
				continue
			}
			_ = st.AckOutbox(item.ID)
			didWork = true
		}
	}

	if didWork {
		if _, err := sync.SmartSync(ctx); err != nil {
			logger.Printf("post-drain pull: %v", err)
		}
		if err := SpawnExport(cfg); err != nil {
			logger.Printf("requesting export: %v", err)
		}
	}

	logger.Printf("worker exiting (did work: %v)", didWork)
	return nil
}

// newLogger writes to the repo's rolling sync log so worker runs are
// inspectable after the fact.
func newLogger(cfg *config.Config) *log.Logger {
	return log.New(&lumberjack.Logger{
		Filename:   cfg.LogPath(),
		MaxSize:    5, // megabytes
		MaxBackups: 2,
		MaxAge:     14, // days
	}, fmt.Sprintf("[worker %s] ", time.Now().UTC().Format("15:04:05")), log.LstdFlags)
}
