package player

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/alvarorichard/ceddoskip/internal/media"
)

// unavailable maps a missing property to its zero value.
func unavailable(err error) bool {
	return errors.Is(err, ErrPropertyUnavailable)
}

func (c *Client) Dimensions(ctx context.Context) (int, int, error) {
	w, err := c.getFloat(ctx, "width")
	if err != nil {
		if unavailable(err) {
			return 0, 0, nil
		}
		return 0, 0, err
	}
	h, err := c.getFloat(ctx, "height")
	if err != nil {
		if unavailable(err) {
			return 0, 0, nil
		}
		return 0, 0, err
	}
	return int(w), int(h), nil
}

// Snapshot asks mpv for a screenshot of the video layer only and decodes
// it. Subtitles and the OSD are not included.
func (c *Client) Snapshot(ctx context.Context) (image.Image, error) {
	dir := c.tempDir
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, fmt.Sprintf("frame-%d.png", os.Getpid()))
	defer func() { _ = os.Remove(path) }()

	if _, err := c.Command(ctx, "screenshot-to-file", path, "video"); err != nil {
		if unavailable(err) {
			return nil, media.ErrNoFrame
		}
		return nil, err
	}

	// #nosec G304 -- path is generated above inside our own temp directory
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open screenshot: %w", err)
	}
	defer func() { _ = f.Close() }()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	return img, nil
}

func (c *Client) CurrentTime(ctx context.Context) (float64, error) {
	t, err := c.getFloat(ctx, "time-pos")
	if unavailable(err) {
		return 0, nil
	}
	return t, err
}

func (c *Client) Duration(ctx context.Context) (float64, error) {
	d, err := c.getFloat(ctx, "duration")
	if unavailable(err) {
		return 0, nil
	}
	return d, err
}

// ReadyState derives a readiness level from time-pos and the cache state.
func (c *Client) ReadyState(ctx context.Context) (media.ReadyState, error) {
	if _, err := c.getFloat(ctx, "time-pos"); err != nil {
		if unavailable(err) {
			return media.HaveNothing, nil
		}
		return media.HaveNothing, err
	}
	buffering, err := c.getBool(ctx, "paused-for-cache")
	if err != nil && !unavailable(err) {
		return media.HaveNothing, err
	}
	if buffering {
		return media.HaveCurrentData, nil
	}
	return media.HaveEnoughData, nil
}

func (c *Client) Paused(ctx context.Context) (bool, error) {
	p, err := c.getBool(ctx, "pause")
	if unavailable(err) {
		return true, nil
	}
	return p, err
}

// Ended reports eof-reached, which mpv only sets with --keep-open.
func (c *Client) Ended(ctx context.Context) (bool, error) {
	e, err := c.getBool(ctx, "eof-reached")
	if unavailable(err) {
		return false, nil
	}
	return e, err
}

// Seek jumps to an absolute position, decoding up to the exact frame.
func (c *Client) Seek(ctx context.Context, seconds float64) error {
	_, err := c.Command(ctx, "seek", seconds, "absolute+exact")
	return err
}

// Location is the path of the loaded file. Loading another playlist entry
// changes it, which ends the current session.
func (c *Client) Location(ctx context.Context) (string, error) {
	p, err := c.getString(ctx, "path")
	if unavailable(err) {
		return "", nil
	}
	return p, err
}

var (
	_ media.VisibleSurface = (*Client)(nil)
	_ media.Locator        = (*Client)(nil)
)
