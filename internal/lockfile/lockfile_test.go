package lockfile

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"
)

func pidPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "sync.pid")
}

func TestAcquireFresh(t *testing.T) {
	path := pidPath(t)

	lock, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer lock.Release()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading pid file: %v", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		t.Fatalf("pid file contents %q: %v", data, err)
	}
	if pid != os.Getpid() {
		t.Errorf("pid file holds %d, want %d", pid, os.Getpid())
	}
}

func TestAcquireOwnPIDReturnsLock(t *testing.T) {
	path := pidPath(t)
	first, err := Acquire(path)
	if err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	defer first.Release()

	// The same process re-acquiring its own claim is not a conflict.
	second, err := Acquire(path)
	if err != nil {
		t.Fatalf("second Acquire: %v", err)
	}
	second.Release()
}

func TestAcquireHeldByLiveProcess(t *testing.T) {
	path := pidPath(t)
	// PID 1 is always alive and never us.
	if err := os.WriteFile(path, []byte("1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Acquire(path)
	if !errors.Is(err, ErrHeld) {
		t.Fatalf("Acquire = %v, want ErrHeld", err)
	}
}

func TestAcquireReclaimsStalePID(t *testing.T) {
	path := pidPath(t)
	// Far beyond any real pid_max, so the probe reports dead.
	if err := os.WriteFile(path, []byte("99999999\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	lock, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire over stale pid: %v", err)
	}
	defer lock.Release()

	pid, running := RunningWorker(path)
	if !running || pid != os.Getpid() {
		t.Errorf("RunningWorker = (%d, %v), want (%d, true)", pid, running, os.Getpid())
	}
}

func TestReleaseRemovesOwnClaimOnly(t *testing.T) {
	path := pidPath(t)
	lock, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	// A successor replaced the file; Release must leave it alone.
	if err := os.WriteFile(path, []byte("1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	lock.Release()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Release removed a successor's file: %v", err)
	}

	_ = os.Remove(path)
	lock2, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	lock2.Release()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Release left own pid file behind: %v", err)
	}

	// Double release is safe.
	lock2.Release()
}

func TestTouchAdvancesModTime(t *testing.T) {
	path := pidPath(t)
	lock, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer lock.Release()

	before, err := lock.ModTime()
	if err != nil {
		t.Fatalf("ModTime: %v", err)
	}
	old := before.Add(-time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}

	if err := Touch(path); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	after, err := lock.ModTime()
	if err != nil {
		t.Fatalf("ModTime: %v", err)
	}
	if !after.After(old) {
		t.Errorf("Touch did not advance mtime: %v -> %v", old, after)
	}
}

func TestTouchMissingFile(t *testing.T) {
	if err := Touch(filepath.Join(t.TempDir(), "absent.pid")); err != nil {
		t.Errorf("Touch on missing file = %v, want nil", err)
	}
}

func TestRunningWorkerMissingFile(t *testing.T) {
	if pid, running := RunningWorker(filepath.Join(t.TempDir(), "absent.pid")); running {
		t.Errorf("RunningWorker = (%d, true) on missing file", pid)
	}
}
