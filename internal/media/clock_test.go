package media

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickerClockFires(t *testing.T) {
	clock := NewTickerClock(5 * time.Millisecond)
	defer clock.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i := 0; i < 3; i++ {
		require.NoError(t, clock.NextFrame(ctx))
	}
}

func TestTickerClockHonoursCancellation(t *testing.T) {
	clock := NewTickerClock(time.Hour)
	defer clock.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := clock.NextFrame(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTickerClockDefaultsInterval(t *testing.T) {
	clock := NewTickerClock(0)
	defer clock.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, clock.NextFrame(ctx))
}

func TestReadyStateString(t *testing.T) {
	assert.Equal(t, "nothing", HaveNothing.String())
	assert.Equal(t, "current-data", HaveCurrentData.String())
	assert.Equal(t, "enough-data", HaveEnoughData.String())
	assert.Equal(t, "unknown", ReadyState(42).String())
}

func TestStaticLocator(t *testing.T) {
	loc := StaticLocator("file:///tmp/a.mp4")
	got, err := loc.Location(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "file:///tmp/a.mp4", got)
}

type failingLocator struct{ err error }

func (f failingLocator) Location(context.Context) (string, error) { return "", f.err }

func TestStillCurrent(t *testing.T) {
	ctx := context.Background()

	ok, err := StillCurrent(ctx, nil, "anything")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = StillCurrent(ctx, StaticLocator("a"), "a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = StillCurrent(ctx, StaticLocator("b"), "a")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = StillCurrent(ctx, failingLocator{err: ErrClosed}, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = StillCurrent(ctx, failingLocator{err: assert.AnError}, "a")
	assert.ErrorIs(t, err, assert.AnError)
}
