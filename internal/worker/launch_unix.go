//go:build unix

package worker

import (
	"os/exec"
	"syscall"
)

// detach puts the child in its own session so it survives the caller's
// terminal going away.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
