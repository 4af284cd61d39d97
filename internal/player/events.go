package player

import (
	"context"
	"errors"
	"time"

	"github.com/alvarorichard/ceddoskip/internal/media"
	"github.com/alvarorichard/ceddoskip/internal/models"
	"github.com/alvarorichard/ceddoskip/internal/util"
)

// ChannelResolver names the channel that published the video at url.
type ChannelResolver func(ctx context.Context, url string) (string, error)

// Events polls the loaded path and emits a PageEvent every time a new file
// starts playing. The channel is closed when mpv goes away or ctx ends.
func (c *Client) Events(ctx context.Context, interval time.Duration, resolve ChannelResolver) <-chan models.PageEvent {
	out := make(chan models.PageEvent)
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var last string
		for {
			path, err := c.Location(ctx)
			switch {
			case errors.Is(err, media.ErrClosed):
				return
			case err != nil:
				util.Debug("mpv path lookup failed", "error", err)
			case path != "" && path != last:
				last = path
				ev := models.PageEvent{URL: path}
				if resolve != nil {
					ch, err := resolve(ctx, path)
					if err != nil {
						util.Warn("could not determine channel", "url", path, "error", err)
					}
					ev.ChannelID = ch
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-c.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return out
}
