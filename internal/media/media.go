// Package media defines the capabilities every playback surface exposes to
// the analyzer and the skipper: pixel access, timing, readiness, seeking and
// a frame clock. Real surfaces (mpv, a browser tab, an ffmpeg decode) and
// test fakes all satisfy the same small interfaces.
package media

import (
	"context"
	"errors"
	"image"
)

// ErrClosed is returned by a surface once its underlying player or decoder
// has gone away. Loops treat it as normal termination.
var ErrClosed = errors.New("media surface closed")

// ErrNoFrame is returned by Snapshot when no decoded frame is available yet.
var ErrNoFrame = errors.New("no frame available")

// ReadyState mirrors the HTMLMediaElement readiness levels.
type ReadyState int

const (
	HaveNothing ReadyState = iota
	HaveMetadata
	HaveCurrentData
	HaveFutureData
	HaveEnoughData
)

func (r ReadyState) String() string {
	switch r {
	case HaveNothing:
		return "nothing"
	case HaveMetadata:
		return "metadata"
	case HaveCurrentData:
		return "current-data"
	case HaveFutureData:
		return "future-data"
	case HaveEnoughData:
		return "enough-data"
	default:
		return "unknown"
	}
}

// FrameSource is anything that can hand out the frame currently on screen.
type FrameSource interface {
	// Dimensions reports the native pixel size of the current frame.
	Dimensions(ctx context.Context) (width, height int, err error)
	// Snapshot renders the current frame into a new image.
	Snapshot(ctx context.Context) (image.Image, error)
}

// Surface is a playing video: a frame source with timing and state.
type Surface interface {
	FrameSource
	CurrentTime(ctx context.Context) (float64, error)
	Duration(ctx context.Context) (float64, error)
	ReadyState(ctx context.Context) (ReadyState, error)
	Paused(ctx context.Context) (bool, error)
	Ended(ctx context.Context) (bool, error)
}

// Seeker moves the playback position.
type Seeker interface {
	Seek(ctx context.Context, seconds float64) error
}

// VisibleSurface is what the skipper drives.
type VisibleSurface interface {
	Surface
	Seeker
}

// FrameClock blocks until the next frame should be processed.
type FrameClock interface {
	NextFrame(ctx context.Context) error
}

// ShadowSurface is the hidden, accelerated copy the analyzer consumes.
// It is its own frame clock: NextFrame advances to the next decoded frame.
type ShadowSurface interface {
	Surface
	FrameClock
	SetPlaybackRate(rate float64)
	Close() error
}

// Downscaled is implemented by sources that hand out frames smaller than
// the video's native size. AreaRatio is scaled area over native area.
type Downscaled interface {
	AreaRatio() float64
}

// Locator reports the live page location used to detect navigation.
type Locator interface {
	Location(ctx context.Context) (string, error)
}

// StaticLocator always reports the same location. Used when there is no
// page that could navigate away, e.g. offline analysis of a file.
type StaticLocator string

func (s StaticLocator) Location(context.Context) (string, error) {
	return string(s), nil
}
