//go:build !windows

package vp

import (
	"os/exec"
	"syscall"
)

// setProcessGroup launches the command in its own process group and makes
// context cancellation kill the whole group. The synthesizer may fork
// helpers that inherit its output pipes; killing only the direct child
// would leave them holding the pipes open and stall the line drains.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
