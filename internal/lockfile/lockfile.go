// Package lockfile implements single-worker election through a PID file.
//
// The background worker holds <repo>/.lb/sync.pid while it runs. Enqueuers
// that find a live worker touch the file's mtime instead of spawning; the
// worker watches the mtime to stay alive while writes keep arriving.
package lockfile

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// PIDFile is a held worker lock. Acquire returns one; Release removes it.
type PIDFile struct {
	path string
	pid  int
}

// ErrHeld is returned by Acquire when a live worker already owns the lock.
var ErrHeld = fmt.Errorf("worker already running")

// Acquire claims the lock for the current process. A file naming a live PID
// yields ErrHeld; a stale file (dead or unparseable PID) is removed and the
// claim retried.
func Acquire(path string) (*PIDFile, error) {
	for attempt := 0; attempt < 3; attempt++ {
		pid, err := readPID(path)
		switch {
		case err == nil && pid == os.Getpid():
			return &PIDFile{path: path, pid: pid}, nil
		case err == nil && Alive(pid):
			return nil, fmt.Errorf("%w (pid %d)", ErrHeld, pid)
		case err == nil || os.IsNotExist(err):
			if err == nil {
				// Stale entry from a worker that died without
				// releasing.
				_ = os.Remove(path)
			}
			if claimed, err := claim(path); err != nil {
				return nil, err
			} else if claimed {
				return &PIDFile{path: path, pid: os.Getpid()}, nil
			}
			// Lost the race; loop and re-read.
		default:
			return nil, fmt.Errorf("reading pid file %s: %w", path, err)
		}
		time.Sleep(50 * time.Millisecond)
	}
	return nil, fmt.Errorf("%w: could not claim %s", ErrHeld, path)
}

// claim writes the current PID with O_EXCL so two racing candidates cannot
// both win.
func claim(path string) (bool, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if os.IsExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("creating pid file %s: %w", path, err)
	}
	_, werr := fmt.Fprintf(f, "%d\n", os.Getpid())
	cerr := f.Close()
	if werr != nil || cerr != nil {
		_ = os.Remove(path)
		if werr != nil {
			return false, fmt.Errorf("writing pid file %s: %w", path, werr)
		}
		return false, fmt.Errorf("closing pid file %s: %w", path, cerr)
	}
	return true, nil
}

// Release removes the PID file. Safe to call more than once.
func (p *PIDFile) Release() {
	if p == nil || p.path == "" {
		return
	}
	// Only unlink our own claim; a crashed-then-replaced worker must not
	// remove its successor's file.
	if pid, err := readPID(p.path); err == nil && pid == p.pid {
		_ = os.Remove(p.path)
	}
	p.path = ""
}

// ModTime returns the PID file's current mtime. The worker compares
// successive values to detect touches from enqueuers.
func (p *PIDFile) ModTime() (time.Time, error) {
	info, err := os.Stat(p.path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// RunningWorker reports the live worker owning path, if any.
func RunningWorker(path string) (pid int, running bool) {
	pid, err := readPID(path)
	if err != nil {
		return 0, false
	}
	return pid, Alive(pid)
}

// Touch advances the PID file's mtime, resetting a live worker's idle timer.
// Touching a missing file is not an error; the caller will spawn instead.
func Touch(path string) error {
	now := time.Now()
	err := os.Chtimes(path, now, now)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func readPID(path string) (int, error) {
	data, err := os.ReadFile(path) // #nosec G304 - repo-local state file
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, nil
	}
	return pid, nil
}
