//go:build unix

package internal

import (
	"os/exec"
	"syscall"
)

// configureProcessGroup starts the agent in its own process group so that a timeout
// kills the whole tree, not just the direct child
func configureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
