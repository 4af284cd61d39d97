//go:build !windows

package player

import (
	"os/exec"
	"syscall"
)

// setProcessGroup detaches mpv from our process group so a Ctrl-C in the
// terminal reaches ceddoskip first and mpv is shut down through IPC.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}

// findMPVPath searches for mpv executable on Unix systems.
func findMPVPath() (string, error) {
	return exec.LookPath("mpv")
}
