package worker

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/steveyegge/lb/internal/config"
	"github.com/steveyegge/lb/internal/lockfile"
)

// Internal re-entry flags. main intercepts them before command dispatch so
// user commands can never run a worker synchronously.
const (
	WorkerFlag       = "--worker"
	ExportWorkerFlag = "--export-worker"
)

// Signal wakes the worker: if one is already running its PID file is touched,
// otherwise a detached child is spawned. Called by every enqueuing command.
func Signal(cfg *config.Config) error {
	if _, running := lockfile.RunningWorker(cfg.PIDPath()); running {
		return lockfile.Touch(cfg.PIDPath())
	}
	return spawn(cfg, WorkerFlag)
}

// SpawnExport starts a detached export child.
func SpawnExport(cfg *config.Config) error {
	return spawn(cfg, ExportWorkerFlag)
}

// spawn starts the binary again with an internal re-entry flag, detached from
// the controlling terminal, with both output streams appended to the sync
// log. The child outlives the caller.
func spawn(cfg *config.Config, flag string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolving executable: %w", err)
	}

	logFile, err := os.OpenFile(cfg.LogPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", cfg.LogPath(), err)
	}
	defer logFile.Close()

	cmd := exec.Command(exe, flag) // #nosec G204 - re-invoking our own binary
	cmd.Dir = cfg.RepoRoot
	cmd.Stdin = nil
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	detach(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawning %s child: %w", flag, err)
	}
	// Reparent to init; the caller must not wait on the child.
	return cmd.Process.Release()
}
