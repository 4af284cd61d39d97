//go:build !windows

package player

import (
	"context"
	"net"
)

// dialMPVSocket connects to mpv's IPC server, a unix socket on Linux and
// macOS.
func dialMPVSocket(ctx context.Context, socketPath string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", socketPath)
}
