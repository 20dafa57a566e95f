//go:build windows

package lockfile

import "os"

// Alive reports whether a process with the given PID exists. Windows has no
// signal 0; FindProcess opens a handle and fails for dead PIDs.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	_, err := os.FindProcess(pid)
	return err == nil
}
