// Package player drives an mpv instance over its JSON IPC socket and
// exposes it as the visible playback surface.
package player

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/alvarorichard/ceddoskip/internal/media"
	"github.com/alvarorichard/ceddoskip/internal/util"
	"github.com/pkg/errors"
)

// ErrPropertyUnavailable is returned while mpv has no value for a property,
// e.g. time-pos before the file has loaded.
var ErrPropertyUnavailable = errors.New("mpv property unavailable")

const defaultCommandTimeout = 2 * time.Second

// Client talks to one mpv instance. Each command uses its own connection.
type Client struct {
	socketPath string
	timeout    time.Duration
	nextID     int64

	cmd     *exec.Cmd
	exited  chan struct{}
	tempDir string
}

type request struct {
	Command   []interface{} `json:"command"`
	RequestID int64         `json:"request_id"`
}

type response struct {
	Data      interface{} `json:"data"`
	Error     string      `json:"error"`
	RequestID int64       `json:"request_id"`
	Event     string      `json:"event"`
}

// Attach returns a client for an mpv that is already listening on
// socketPath.
func Attach(socketPath string) *Client {
	return &Client{socketPath: socketPath, timeout: defaultCommandTimeout}
}

// Start opens mpv on link with an IPC socket and waits for the socket to
// appear. The file is kept open at the end so eof-reached can be observed.
func Start(ctx context.Context, mpvPath, link string, args []string) (*Client, error) {
	if mpvPath == "" {
		p, err := findMPVPath()
		if err != nil {
			return nil, fmt.Errorf("mpv not found in PATH. Please install mpv: https://mpv.io/installation/")
		}
		mpvPath = p
	}

	randomNumber := fmt.Sprintf("%x", time.Now().UnixNano())
	var socketPath string
	if runtime.GOOS == "windows" {
		socketPath = fmt.Sprintf(`\\.\pipe\ceddoskip_mpvsocket_%s`, randomNumber)
	} else {
		socketPath = filepath.Join(os.TempDir(), "ceddoskip_mpvsocket_"+randomNumber)
	}

	tempDir, err := os.MkdirTemp("", "ceddoskip-frames-")
	if err != nil {
		return nil, fmt.Errorf("failed to create frame directory: %w", err)
	}

	mpvArgs := []string{
		"--no-terminal",
		"--quiet",
		"--keep-open=yes",
		"--force-window=yes",
		fmt.Sprintf("--input-ipc-server=%s", socketPath),
	}
	mpvArgs = append(mpvArgs, args...)
	mpvArgs = append(mpvArgs, link)

	util.Debug("starting mpv", "args", mpvArgs)

	// #nosec G204 -- mpv path comes from configuration or PATH lookup
	cmd := exec.Command(mpvPath, mpvArgs...)
	setProcessGroup(cmd)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		_ = os.RemoveAll(tempDir)
		return nil, fmt.Errorf("failed to start mpv: %w (stderr: %s)", err, stderr.String())
	}

	c := &Client{
		socketPath: socketPath,
		timeout:    defaultCommandTimeout,
		cmd:        cmd,
		exited:     make(chan struct{}),
		tempDir:    tempDir,
	}
	go func() {
		_ = cmd.Wait()
		close(c.exited)
	}()

	startTime := time.Now()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	timeout := time.After(10 * time.Second)
	for {
		if _, err := c.Command(ctx, "get_property", "pid"); err == nil {
			util.Debug("mpv socket ready", "after", time.Since(startTime).Round(time.Millisecond))
			return c, nil
		}
		select {
		case <-ctx.Done():
			_ = c.Close()
			return nil, ctx.Err()
		case <-c.exited:
			_ = os.RemoveAll(tempDir)
			return nil, fmt.Errorf("mpv process exited prematurely: %s", strings.TrimSpace(stderr.String()))
		case <-timeout:
			_ = c.Close()
			return nil, fmt.Errorf("timeout waiting for mpv socket %s; check debug logs with -debug", socketPath)
		case <-ticker.C:
		}
	}
}

// SocketPath returns the IPC endpoint.
func (c *Client) SocketPath() string {
	return c.socketPath
}

// Done is closed when an mpv started by Start exits. It is nil for
// attached clients.
func (c *Client) Done() <-chan struct{} {
	return c.exited
}

// Command sends one IPC command and returns its data field. Events that
// mpv broadcasts on the same connection are skipped. A connection failure
// is reported as media.ErrClosed.
func (c *Client) Command(ctx context.Context, args ...interface{}) (interface{}, error) {
	if util.PerfEnabled {
		defer util.Perf("mpv.command", time.Now())
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := dialMPVSocket(ctx, c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", media.ErrClosed, err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			util.Debug("error closing mpv socket", "error", cerr)
		}
	}()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	id := atomic.AddInt64(&c.nextID, 1)
	payload, err := json.Marshal(request{Command: args, RequestID: id})
	if err != nil {
		return nil, errors.Wrap(err, "encode mpv command")
	}
	if _, err := conn.Write(append(payload, '\n')); err != nil {
		return nil, errors.Wrap(err, "write mpv command")
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		util.Debug("mpv response", "raw", string(line))

		var resp response
		if err := json.Unmarshal(line, &resp); err != nil {
			util.Debug("error unmarshaling mpv response", "error", err)
			continue
		}
		if resp.Event != "" || resp.RequestID != id {
			continue
		}
		switch resp.Error {
		case "success":
			return resp.Data, nil
		case "property unavailable":
			return nil, ErrPropertyUnavailable
		default:
			return nil, errors.Errorf("mpv %v: %s", args[0], resp.Error)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read mpv response")
	}
	return nil, fmt.Errorf("%w: mpv closed the connection", media.ErrClosed)
}

// GetProperty reads one property.
func (c *Client) GetProperty(ctx context.Context, name string) (interface{}, error) {
	return c.Command(ctx, "get_property", name)
}

// SetProperty writes one property.
func (c *Client) SetProperty(ctx context.Context, name string, value interface{}) error {
	_, err := c.Command(ctx, "set_property", name, value)
	return err
}

func (c *Client) getFloat(ctx context.Context, name string) (float64, error) {
	v, err := c.GetProperty(ctx, name)
	if err != nil {
		return 0, err
	}
	f, ok := v.(float64)
	if !ok {
		return 0, errors.Errorf("mpv property %s: unexpected %T", name, v)
	}
	return f, nil
}

func (c *Client) getBool(ctx context.Context, name string) (bool, error) {
	v, err := c.GetProperty(ctx, name)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, errors.Errorf("mpv property %s: unexpected %T", name, v)
	}
	return b, nil
}

func (c *Client) getString(ctx context.Context, name string) (string, error) {
	v, err := c.GetProperty(ctx, name)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", errors.Errorf("mpv property %s: unexpected %T", name, v)
	}
	return s, nil
}

// SetPlaybackSpeed sets the video playback speed
func (c *Client) SetPlaybackSpeed(ctx context.Context, speed float64) error {
	return c.SetProperty(ctx, "speed", speed)
}

// Close asks mpv to quit, waits briefly for it to exit and removes the
// frame directory.
func (c *Client) Close() error {
	if c.cmd == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, _ = c.Command(ctx, "quit")

	select {
	case <-c.exited:
	case <-time.After(2 * time.Second):
		if c.cmd.Process != nil {
			_ = c.cmd.Process.Kill()
		}
	}
	if c.tempDir != "" {
		_ = os.RemoveAll(c.tempDir)
	}
	if runtime.GOOS != "windows" {
		_ = os.Remove(c.socketPath)
	}
	return nil
}
