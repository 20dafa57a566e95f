//go:build unix

package lockfile

import "golang.org/x/sys/unix"

// Alive probes a PID with signal 0. EPERM means the process exists but is
// owned by someone else (sandboxes do this), which still counts as alive.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || err == unix.EPERM
}
