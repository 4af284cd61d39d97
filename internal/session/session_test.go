package session

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/alvarorichard/ceddoskip/internal/analyzer"
	"github.com/alvarorichard/ceddoskip/internal/media"
	"github.com/alvarorichard/ceddoskip/internal/media/mediatest"
	"github.com/alvarorichard/ceddoskip/internal/metrics"
	"github.com/alvarorichard/ceddoskip/internal/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pageURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

func reactionAt(t float64) image.Image {
	if (t >= 10 && t < 20) || (t >= 50 && t < 55) {
		return mediatest.SolidFrame(90, 60, color.Black)
	}
	return mediatest.MarkedFrame(90, 60)
}

func plain(float64) image.Image  { return mediatest.SolidFrame(90, 60, color.Black) }
func marked(float64) image.Image { return mediatest.MarkedFrame(90, 60) }

type memRecorder struct {
	mu   sync.Mutex
	recs map[string][]models.SkipInterval
}

func (m *memRecorder) RecordInterval(videoID string, iv models.SkipInterval) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recs == nil {
		m.recs = map[string][]models.SkipInterval{}
	}
	m.recs[videoID] = append(m.recs[videoID], iv)
	return nil
}

func (m *memRecorder) get(videoID string) []models.SkipInterval {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.SkipInterval(nil), m.recs[videoID]...)
}

func shadowOf(s *mediatest.Surface) ShadowOpener {
	return func(context.Context, string) (media.ShadowSurface, error) { return s, nil }
}

type result struct {
	sum Summary
	err error
}

func handleAsync(ctx context.Context, r *Runner, ev models.PageEvent) <-chan result {
	out := make(chan result, 1)
	go func() {
		sum, err := r.Handle(ctx, ev)
		out <- result{sum, err}
	}()
	return out
}

func wait(t *testing.T, ch <-chan result) result {
	t.Helper()
	select {
	case res := <-ch:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("session did not stop")
		return result{}
	}
}

func TestHandleRejectsOtherChannels(t *testing.T) {
	r := NewRunner(mediatest.NewSurface(10, 1, marked), mediatest.NewLocation(pageURL), nil, Config{})

	assert.False(t, r.Accepts(models.PageEvent{ChannelID: "@someoneelse", URL: pageURL}))
	assert.True(t, r.Accepts(models.PageEvent{ChannelID: "DailyCeddo", URL: pageURL}))

	_, err := r.Handle(context.Background(), models.PageEvent{ChannelID: "@someoneelse", URL: pageURL})
	assert.ErrorIs(t, err, ErrOtherChannel)
}

func TestSessionSkipsDiscoveredIntervals(t *testing.T) {
	video := mediatest.NewSurface(120, 1, reactionAt)
	shadow := mediatest.NewSurface(120, 1, reactionAt)
	clock := mediatest.NewClock()
	rec := &memRecorder{}

	var progressMu sync.Mutex
	var last analyzer.Progress
	r := NewRunner(video, mediatest.NewLocation(pageURL), shadowOf(shadow), Config{
		Recorder: rec,
		NewClock: func() media.FrameClock { return clock },
		Progress: func(p analyzer.Progress) {
			progressMu.Lock()
			last = p
			progressMu.Unlock()
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := handleAsync(ctx, r, models.PageEvent{ChannelID: "@dailyceddo", URL: pageURL})

	require.Eventually(t, shadow.IsClosed, 5*time.Second, time.Millisecond, "analyzer finished the shadow pass")
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ActiveSessions))
	assert.Equal(t, []models.SkipInterval{{Start: 9, End: 20}, {Start: 49, End: 55}}, rec.get("dQw4w9WgXcQ"))

	for i := 0; i < 130; i++ {
		clock.Tick()
		video.Advance(1)
	}
	clock.Tick()
	cancel()

	res := wait(t, done)
	require.NoError(t, res.err)
	assert.Equal(t, []float64{20, 55}, video.SeekLog())
	assert.Equal(t, pageURL, res.sum.Epoch)
	assert.Equal(t, "dQw4w9WgXcQ", res.sum.VideoID)
	assert.Len(t, res.sum.ID, 36)
	assert.Equal(t, analyzer.StopEnded, res.sum.Analyzer.Reason)
	assert.NoError(t, res.sum.ShadowErr)
	assert.Equal(t, []models.SkipInterval{{Start: 9, End: 20}, {Start: 49, End: 55}}, res.sum.Intervals)
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.ActiveSessions))

	progressMu.Lock()
	assert.Equal(t, 120.0, last.Duration)
	progressMu.Unlock()
}

func TestShadowFailureLeavesSkipperRunning(t *testing.T) {
	video := mediatest.NewSurface(60, 1, plain)
	clock := mediatest.NewClock()
	open := func(context.Context, string) (media.ShadowSurface, error) {
		return nil, errors.New("yt-dlp failed")
	}
	r := NewRunner(video, mediatest.NewLocation(pageURL), open, Config{
		NewClock: func() media.FrameClock { return clock },
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := handleAsync(ctx, r, models.PageEvent{ChannelID: "@dailyceddo", URL: pageURL})

	clock.Tick()
	clock.Tick()
	cancel()

	res := wait(t, done)
	require.NoError(t, res.err)
	require.Error(t, res.sum.ShadowErr)
	assert.Contains(t, res.sum.ShadowErr.Error(), "yt-dlp failed")
	seeks := video.SeekLog()
	require.NotEmpty(t, seeks)
	assert.Equal(t, 1.0, seeks[0], "skip frame with no known interval nudges forward")
	assert.Empty(t, res.sum.Intervals)
}

func TestNavigationEndsSession(t *testing.T) {
	video := mediatest.NewSurface(60, 1, marked)
	loc := mediatest.NewLocation(pageURL)
	r := NewRunner(video, loc, nil, Config{TickInterval: time.Millisecond})

	done := handleAsync(context.Background(), r, models.PageEvent{ChannelID: "@dailyceddo", URL: pageURL})
	loc.Navigate("https://www.youtube.com/watch?v=aaaaaaaaaaa")

	res := wait(t, done)
	require.NoError(t, res.err)
	assert.Empty(t, video.SeekLog())
	assert.Error(t, res.sum.ShadowErr, "no shadow opener configured")
}

func TestWatchReplacesSessions(t *testing.T) {
	video := mediatest.NewSurface(60, 1, marked)
	r := NewRunner(video, mediatest.NewLocation(pageURL), nil, Config{TickInterval: time.Millisecond})

	events := make(chan models.PageEvent)
	var mu sync.Mutex
	var epochs []string
	finished := make(chan struct{})
	go func() {
		r.Watch(context.Background(), events, func(sum Summary, err error) {
			assert.NoError(t, err)
			mu.Lock()
			epochs = append(epochs, sum.Epoch)
			mu.Unlock()
		})
		close(finished)
	}()

	events <- models.PageEvent{ChannelID: "@other", URL: "https://www.youtube.com/watch?v=bbbbbbbbbbb"}
	events <- models.PageEvent{ChannelID: "@dailyceddo", URL: pageURL}
	events <- models.PageEvent{ChannelID: "@dailyceddo", URL: pageURL + "&t=5"}
	close(events)

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{pageURL, pageURL + "&t=5"}, epochs)
}
