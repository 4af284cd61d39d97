// Package analyzer runs the hidden, accelerated copy of a video and records
// skip intervals ahead of the visible playback position.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alvarorichard/ceddoskip/internal/classifier"
	"github.com/alvarorichard/ceddoskip/internal/media"
	"github.com/alvarorichard/ceddoskip/internal/metrics"
	"github.com/alvarorichard/ceddoskip/internal/skipstore"
	"github.com/alvarorichard/ceddoskip/internal/util"
)

const (
	DefaultRate    = 16.0
	DefaultNearEnd = 1.0
)

// StopReason says why Run returned.
type StopReason int

const (
	StopEnded StopReason = iota
	StopStale
	StopPrimaryEnded
	StopCanceled
)

func (r StopReason) String() string {
	switch r {
	case StopEnded:
		return "ended"
	case StopStale:
		return "stale"
	case StopPrimaryEnded:
		return "primary-ended"
	case StopCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Progress is reported after every sample.
type Progress struct {
	Time      float64
	Duration  float64
	Intervals int
}

// Config controls a single analyzer run.
type Config struct {
	// Rate is the shadow playback rate.
	Rate float64
	// NearEnd stops the run once the shadow is this close to the end.
	NearEnd float64
	// Epoch is the page location captured when the run started.
	Epoch   string
	Locator media.Locator
	// Primary is the visible video. The run stops when it ends. May be nil.
	Primary  media.Surface
	Progress func(Progress)

	// Perf records per-tick timing in the perf tracker.
	Perf bool
}

// Stats summarises a finished run.
type Stats struct {
	Samples  int
	NotReady int
	Reason   StopReason
}

// Analyzer feeds classified shadow frames into a store.
type Analyzer struct {
	shadow     media.ShadowSurface
	store      *skipstore.Store
	classifier classifier.Classifier
	cfg        Config
}

// New wires an analyzer. Zero Rate and NearEnd take their defaults.
func New(shadow media.ShadowSurface, store *skipstore.Store, cls classifier.Classifier, cfg Config) *Analyzer {
	if cfg.Rate <= 0 {
		cfg.Rate = DefaultRate
	}
	if cfg.NearEnd <= 0 {
		cfg.NearEnd = DefaultNearEnd
	}
	return &Analyzer{shadow: shadow, store: store, classifier: cls, cfg: cfg}
}

// Run drives the shadow surface until it ends, the epoch goes stale, the
// primary video ends or ctx is canceled. The shadow surface is closed on
// return. All of those are normal terminations and return a nil error.
func (a *Analyzer) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	defer func() {
		if err := a.shadow.Close(); err != nil {
			util.Debug("analyzer: closing shadow surface", "error", err)
		}
	}()

	a.shadow.SetPlaybackRate(a.cfg.Rate)

	for {
		if err := a.shadow.NextFrame(ctx); err != nil {
			switch {
			case errors.Is(err, media.ErrClosed):
				a.flush(ctx)
				stats.Reason = StopEnded
				return stats, nil
			case ctx.Err() != nil:
				stats.Reason = StopCanceled
				return stats, nil
			default:
				return stats, fmt.Errorf("shadow frame: %w", err)
			}
		}

		done, err := a.tick(ctx, &stats)
		if err != nil || done {
			return stats, err
		}
	}
}

// tick handles one shadow frame and reports whether the run is over.
func (a *Analyzer) tick(ctx context.Context, stats *Stats) (bool, error) {
	if a.cfg.Perf {
		defer util.GetPerfTracker().Since("analyzer.tick", time.Now())
	}

	current, err := media.StillCurrent(ctx, a.cfg.Locator, a.cfg.Epoch)
	if err != nil {
		return true, fmt.Errorf("epoch check: %w", err)
	}
	if !current {
		metrics.ShadowSamplesTotal.WithLabelValues("stale").Inc()
		util.Debug("analyzer: page changed, stopping", "epoch", a.cfg.Epoch)
		stats.Reason = StopStale
		return true, nil
	}
	if a.cfg.Primary != nil {
		ended, err := a.cfg.Primary.Ended(ctx)
		switch {
		case errors.Is(err, media.ErrClosed) || (err == nil && ended):
			util.Debug("analyzer: primary video ended, stopping", "epoch", a.cfg.Epoch)
			stats.Reason = StopPrimaryEnded
			return true, nil
		case err != nil:
			util.Warn("analyzer: could not read primary state, retrying", "error", err)
			return false, nil
		}
	}

	state, err := a.shadow.ReadyState(ctx)
	if err != nil {
		return a.surfaceError(ctx, err, stats)
	}
	if state < media.HaveCurrentData {
		stats.NotReady++
		metrics.ShadowSamplesTotal.WithLabelValues("not_ready").Inc()
		return false, nil
	}

	t, err := a.shadow.CurrentTime(ctx)
	if err != nil {
		return a.surfaceError(ctx, err, stats)
	}

	skip := a.classifier.Classify(ctx, a.shadow)
	a.store.RecordSample(t, skip)
	stats.Samples++
	metrics.ShadowSamplesTotal.WithLabelValues("sampled").Inc()

	dur, _ := a.shadow.Duration(ctx)
	if a.cfg.Progress != nil {
		a.cfg.Progress(Progress{Time: t, Duration: dur, Intervals: len(a.store.Closed())})
	}

	ended, _ := a.shadow.Ended(ctx)
	if ended || (dur > 0 && dur-t <= a.cfg.NearEnd) {
		a.flush(ctx)
		stats.Reason = StopEnded
		return true, nil
	}
	return false, nil
}

func (a *Analyzer) surfaceError(ctx context.Context, err error, stats *Stats) (bool, error) {
	if errors.Is(err, media.ErrClosed) {
		a.flush(ctx)
		stats.Reason = StopEnded
		return true, nil
	}
	if ctx.Err() != nil {
		stats.Reason = StopCanceled
		return true, nil
	}
	return true, fmt.Errorf("shadow surface: %w", err)
}

// flush closes any open interval at the media duration, or at the last
// sample when the duration is unknown.
func (a *Analyzer) flush(ctx context.Context) {
	end, err := a.shadow.Duration(ctx)
	if err != nil || end <= 0 {
		last, ok := a.store.LastSample()
		if !ok {
			return
		}
		end = last
	}
	if a.store.Flush(end) {
		util.Debug("analyzer: flushed open interval", "end", end)
	}
}
