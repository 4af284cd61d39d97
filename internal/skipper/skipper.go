// Package skipper applies discovered intervals to the visible video.
package skipper

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

// DefaultNudge is how far an on-demand skip moves playback.
const DefaultNudge = 1.0

// seekEpsilon keeps a position that already sits on an interval end from
// being sent back to the same end.
const seekEpsilon = 0.05

// ErrStale is returned by Tick once the page location no longer matches
// the epoch.
var ErrStale = errors.New("page location changed")

// Action is what a tick did to the video.
type Action int

const (
	ActionNone Action = iota
	ActionSeekInterval
	ActionNudge
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionSeekInterval:
		return "seek-interval"
	case ActionNudge:
		return "nudge"
	default:
		return "unknown"
	}
}

// Config controls the skipper.
type Config struct {
	Nudge   float64
	Epoch   string
	Locator media.Locator
	// OnAction, if set, is called after every seek with the positions
	// before and after.
	OnAction func(a Action, from, to float64)

	// Perf records per-tick timing in the perf tracker.
	Perf bool
}

// Skipper drives the visible video once per display frame.
type Skipper struct {
	video      media.VisibleSurface
	store      *skipstore.Store
	classifier classifier.Classifier
	clock      media.FrameClock
	cfg        Config
}

// New wires a skipper. A zero Nudge takes DefaultNudge.
func New(video media.VisibleSurface, store *skipstore.Store, cls classifier.Classifier, clock media.FrameClock, cfg Config) *Skipper {
	if cfg.Nudge <= 0 {
		cfg.Nudge = DefaultNudge
	}
	return &Skipper{video: video, store: store, classifier: cls, clock: clock, cfg: cfg}
}

// Run ticks once per frame until the epoch goes stale, the surface closes
// or ctx is canceled. Those are normal terminations and return nil.
func (s *Skipper) Run(ctx context.Context) error {
	for {
		if err := s.clock.NextFrame(ctx); err != nil {
			if errors.Is(err, media.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("frame clock: %w", err)
		}

		if _, err := s.Tick(ctx); err != nil {
			if errors.Is(err, ErrStale) || errors.Is(err, media.ErrClosed) || ctx.Err() != nil {
				util.Debug("skipper: stopping", "reason", err)
				return nil
			}
			return err
		}
	}
}

// Tick performs one display-frame step.
func (s *Skipper) Tick(ctx context.Context) (Action, error) {
	if s.cfg.Perf {
		defer util.GetPerfTracker().Since("skipper.tick", time.Now())
	}

	current, err := media.StillCurrent(ctx, s.cfg.Locator, s.cfg.Epoch)
	if err != nil {
		return ActionNone, fmt.Errorf("epoch check: %w", err)
	}
	if !current {
		return ActionNone, ErrStale
	}

	playing, err := s.playing(ctx)
	if err != nil || !playing {
		return ActionNone, err
	}

	t, err := s.video.CurrentTime(ctx)
	if err != nil {
		return ActionNone, err
	}

	if iv, ok := s.store.FindCovering(t); ok {
		if iv.End-t <= seekEpsilon {
			return ActionNone, nil
		}
		if err := s.seek(ctx, iv.End); err != nil {
			return ActionNone, err
		}
		metrics.SeeksTotal.WithLabelValues("interval").Inc()
		metrics.SkippedSeconds.Add(iv.End - t)
		util.Info("skipped known interval", "from", fmt.Sprintf("%.2f", t), "to", fmt.Sprintf("%.2f", iv.End))
		s.report(ActionSeekInterval, t, iv.End)
		return ActionSeekInterval, nil
	}

	if !s.classifier.Classify(ctx, s.video) {
		return ActionNone, nil
	}
	target := t + s.cfg.Nudge
	if err := s.seek(ctx, target); err != nil {
		return ActionNone, err
	}
	metrics.SeeksTotal.WithLabelValues("nudge").Inc()
	metrics.SkippedSeconds.Add(s.cfg.Nudge)
	util.Debug("skipper: nudged", "from", t, "to", target)
	s.report(ActionNudge, t, target)
	return ActionNudge, nil
}

// playing reports whether the video is playing with enough data buffered
// to read pixels.
func (s *Skipper) playing(ctx context.Context) (bool, error) {
	paused, err := s.video.Paused(ctx)
	if err != nil || paused {
		return false, err
	}
	ended, err := s.video.Ended(ctx)
	if err != nil || ended {
		return false, err
	}
	state, err := s.video.ReadyState(ctx)
	if err != nil {
		return false, err
	}
	return state > media.HaveCurrentData, nil
}

func (s *Skipper) seek(ctx context.Context, to float64) error {
	if err := s.video.Seek(ctx, to); err != nil {
		return fmt.Errorf("seek to %.2f: %w", to, err)
	}
	return nil
}

func (s *Skipper) report(a Action, from, to float64) {
	if s.cfg.OnAction != nil {
		s.cfg.OnAction(a, from, to)
	}
}
