//go:build windows

package vp

import "os/exec"

// setProcessGroup is a no-op on Windows; the default cancellation kill is
// kept as-is.
func setProcessGroup(cmd *exec.Cmd) {}
