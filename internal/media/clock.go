package media

import (
	"context"
	"time"
)

// TickerClock paces a loop at a fixed interval, standing in for a
// per-rendered-frame callback on players that do not expose one.
type TickerClock struct {
	ticker *time.Ticker
}

// NewTickerClock returns a clock firing every interval. Call Stop when done.
func NewTickerClock(interval time.Duration) *TickerClock {
	if interval <= 0 {
		interval = time.Second / 30
	}
	return &TickerClock{ticker: time.NewTicker(interval)}
}

func (c *TickerClock) NextFrame(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ticker.C:
		return nil
	}
}

// Stop releases the underlying ticker.
func (c *TickerClock) Stop() {
	c.ticker.Stop()
}
