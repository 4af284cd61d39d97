//go:build windows

package player

import (
	"context"
	"net"
	"path/filepath"
	"strings"

	"github.com/Microsoft/go-winio"
)

// dialMPVSocket connects to mpv's IPC server. On Windows mpv listens on a
// named pipe of the form \\.\pipe\NAME.
func dialMPVSocket(ctx context.Context, socketPath string) (net.Conn, error) {
	if !strings.HasPrefix(socketPath, `\\.\pipe\`) {
		socketPath = `\\.\pipe\` + filepath.Base(socketPath)
	}
	return winio.DialPipeContext(ctx, socketPath)
}
