//go:build unix

package util

import (
	"errors"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// configureProcess starts the child in a new process group. Cancel sends
// SIGTERM to the whole group, then SIGKILL after grace.
func configureProcess(cmd *exec.Cmd, grace time.Duration) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		pgid := cmd.Process.Pid
		if err := unix.Kill(-pgid, unix.SIGTERM); err != nil {
			if errors.Is(err, unix.ESRCH) {
				return nil
			}
			return cmd.Process.Kill()
		}
		time.AfterFunc(grace, func() {
			_ = unix.Kill(-pgid, unix.SIGKILL)
		})
		return nil
	}
	cmd.WaitDelay = grace + time.Second
}
