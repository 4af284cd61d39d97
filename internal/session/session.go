// Package session turns page triggers into skipper/analyzer pairs. Each
// trigger for the configured channel gets a fresh store bound to the page
// location at that moment; both loops stop once the page moves on.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/alvarorichard/ceddoskip/internal/analyzer"
	"github.com/alvarorichard/ceddoskip/internal/classifier"
	"github.com/alvarorichard/ceddoskip/internal/media"
	"github.com/alvarorichard/ceddoskip/internal/metrics"
	"github.com/alvarorichard/ceddoskip/internal/models"
	"github.com/alvarorichard/ceddoskip/internal/skipper"
	"github.com/alvarorichard/ceddoskip/internal/skipstore"
	"github.com/alvarorichard/ceddoskip/internal/util"
	"github.com/alvarorichard/ceddoskip/internal/youtube"
	"github.com/google/uuid"
)

// ErrOtherChannel is returned by Handle for triggers from other channels.
var ErrOtherChannel = errors.New("video is not from the configured channel")

// ShadowOpener starts a hidden copy of the video at pageURL.
type ShadowOpener func(ctx context.Context, pageURL string) (media.ShadowSurface, error)

// Recorder receives every closed interval. tracking.LocalTracker satisfies it.
type Recorder interface {
	RecordInterval(videoID string, iv models.SkipInterval) error
}

type Config struct {
	Channel      string
	Classifier   classifier.Classifier
	Rate         float64
	NearEnd      float64
	Nudge        float64
	TickInterval time.Duration

	// Recorder is optional.
	Recorder Recorder
	// NewClock overrides the display-frame clock. Defaults to a ticker at
	// TickInterval.
	NewClock func() media.FrameClock
	Progress func(analyzer.Progress)
	OnAction func(a skipper.Action, from, to float64)

	// Perf enables loop timing in the perf tracker.
	Perf bool
}

// Summary describes a finished session.
type Summary struct {
	ID        string
	Epoch     string
	VideoID   string
	Intervals []models.SkipInterval
	Analyzer  analyzer.Stats
	// ShadowErr is set when the hidden copy could not be opened or failed.
	// The skipper still ran on its own.
	ShadowErr error
}

// Runner owns the visible surface and starts a session per trigger.
type Runner struct {
	video   media.VisibleSurface
	locator media.Locator
	open    ShadowOpener
	cfg     Config
}

func NewRunner(video media.VisibleSurface, locator media.Locator, open ShadowOpener, cfg Config) *Runner {
	if cfg.Classifier == nil {
		cfg.Classifier = classifier.New(classifier.DefaultConfig())
	}
	if cfg.Channel == "" {
		cfg.Channel = youtube.DefaultChannel
	}
	if cfg.NewClock == nil {
		interval := cfg.TickInterval
		cfg.NewClock = func() media.FrameClock { return media.NewTickerClock(interval) }
	}
	return &Runner{video: video, locator: locator, open: open, cfg: cfg}
}

// Accepts reports whether ev belongs to the configured channel.
func (r *Runner) Accepts(ev models.PageEvent) bool {
	return youtube.MatchesChannel(ev.ChannelID, r.cfg.Channel)
}

// Handle runs one session for ev and blocks until the skipper stops. The
// analyzer is canceled when the skipper returns.
func (r *Runner) Handle(ctx context.Context, ev models.PageEvent) (Summary, error) {
	if !r.Accepts(ev) {
		return Summary{}, ErrOtherChannel
	}

	sum := Summary{ID: uuid.New().String(), Epoch: ev.URL}
	if id, err := youtube.VideoID(ev.URL); err == nil {
		sum.VideoID = id
	}
	sid := sum.ID[:8]
	util.Info("session started", "session", sid, "url", ev.URL)

	metrics.ActiveSessions.Inc()
	defer metrics.ActiveSessions.Dec()

	store := skipstore.New()
	store.OnClose(func(iv models.SkipInterval) {
		metrics.IntervalsDiscoveredTotal.Inc()
		util.Info("interval found", "session", sid, "interval", iv.String())
		if r.cfg.Recorder == nil || sum.VideoID == "" {
			return
		}
		if err := r.cfg.Recorder.RecordInterval(sum.VideoID, iv); err != nil {
			util.Warn("could not record interval", "session", sid, "error", err)
		}
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg        sync.WaitGroup
		shadowErr error
		stats     analyzer.Stats
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		stats, shadowErr = r.analyze(ctx, ev.URL, store)
		if shadowErr != nil && ctx.Err() == nil {
			util.Warn("shadow analysis unavailable, skipping on live frames only", "session", sid, "error", shadowErr)
		}
	}()

	clock := r.cfg.NewClock()
	sk := skipper.New(r.video, store, r.cfg.Classifier, clock, skipper.Config{
		Nudge:    r.cfg.Nudge,
		Epoch:    ev.URL,
		Locator:  r.locator,
		OnAction: r.cfg.OnAction,
		Perf:     r.cfg.Perf,
	})
	runErr := sk.Run(ctx)
	if s, ok := clock.(interface{ Stop() }); ok {
		s.Stop()
	}

	cancel()
	wg.Wait()

	sum.Analyzer = stats
	sum.ShadowErr = shadowErr
	sum.Intervals = store.Intervals()
	util.Info("session ended", "session", sid, "intervals", len(sum.Intervals), "analyzer", stats.Reason.String())
	return sum, runErr
}

func (r *Runner) analyze(ctx context.Context, pageURL string, store *skipstore.Store) (analyzer.Stats, error) {
	if r.open == nil {
		return analyzer.Stats{}, errors.New("no shadow source configured")
	}
	shadow, err := r.open(ctx, pageURL)
	if err != nil {
		return analyzer.Stats{}, err
	}
	a := analyzer.New(shadow, store, r.cfg.Classifier, analyzer.Config{
		Rate:     r.cfg.Rate,
		NearEnd:  r.cfg.NearEnd,
		Epoch:    pageURL,
		Locator:  r.locator,
		Primary:  r.video,
		Progress: r.cfg.Progress,
		Perf:     r.cfg.Perf,
	})
	return a.Run(ctx)
}

// Watch starts a session for every accepted event. A new accepted event
// cancels the session in progress, as does closing events or canceling
// ctx. Watch returns once the last session has stopped. done, if set, is
// called with every session result.
func (r *Runner) Watch(ctx context.Context, events <-chan models.PageEvent, done func(Summary, error)) {
	var (
		wg     sync.WaitGroup
		cancel context.CancelFunc = func() {}
	)
	defer func() {
		cancel()
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if !r.Accepts(ev) {
				util.Debug("ignoring video from another channel", "channel", ev.ChannelID, "url", ev.URL)
				continue
			}
			cancel()
			wg.Wait()

			var sctx context.Context
			sctx, cancel = context.WithCancel(ctx)
			wg.Add(1)
			go func(ev models.PageEvent) {
				defer wg.Done()
				sum, err := r.Handle(sctx, ev)
				if done != nil {
					done(sum, err)
				}
			}(ev)
		}
	}
}
