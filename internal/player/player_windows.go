//go:build windows

package player

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/alvarorichard/ceddoskip/internal/util"
)

func setProcessGroup(cmd *exec.Cmd) {
	util.Debug("Setting process group for command", "cmd", cmd.String())
}

// findMPVPath looks in PATH first, then in the usual install locations.
func findMPVPath() (string, error) {
	if p, err := exec.LookPath("mpv"); err == nil {
		return p, nil
	}
	candidates := []string{
		filepath.Join(os.Getenv("ProgramFiles"), "mpv", "mpv.exe"),
		filepath.Join(os.Getenv("LOCALAPPDATA"), "Programs", "mpv", "mpv.exe"),
		filepath.Join(os.Getenv("USERPROFILE"), "scoop", "apps", "mpv", "current", "mpv.exe"),
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return exec.LookPath("mpv.exe")
}
