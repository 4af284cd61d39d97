// Package mediatest provides scripted in-memory surfaces and clocks for
// exercising the playback loops without a real player.
package mediatest

import (
	"context"
	"image"
	"image/color"
	"sync"

	"github.com/alvarorichard/ceddoskip/internal/media"
)

// Marker is the border colour the classifier looks for.
var Marker = color.RGBA{R: 0, G: 157, B: 239, A: 255}

// SolidFrame returns a w x h frame filled with c.
func SolidFrame(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	r, g, b, a := c.RGBA()
	px := [4]uint8{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)}
	for i := 0; i < len(img.Pix); i += 4 {
		copy(img.Pix[i:i+4], px[:])
	}
	return img
}

// MarkedFrame returns a dark frame whose bottom-right cell is filled with
// the marker colour.
func MarkedFrame(w, h int) *image.RGBA {
	img := SolidFrame(w, h, color.RGBA{R: 20, G: 20, B: 20, A: 255})
	for y := h / 2; y < h; y++ {
		for x := (2 * w) / 3; x < w; x++ {
			img.SetRGBA(x, y, Marker)
		}
	}
	return img
}

// Surface is a scripted video. Frames are produced by FrameAt for the
// current time; NextFrame advances time by Step.
type Surface struct {
	mu sync.Mutex

	Width, Height int
	Time          float64
	Dur           float64
	Step          float64
	State         media.ReadyState
	IsPaused      bool
	IsEnded       bool
	Rate          float64
	FrameAt       func(t float64) image.Image
	SnapshotErr   error
	// NotReadyTicks makes the first N NextFrame calls leave the surface
	// at HaveNothing.
	NotReadyTicks int

	Seeks  []float64
	Closed bool

	started bool
}

// NewSurface returns a ready surface of the given length.
func NewSurface(duration, step float64, frameAt func(t float64) image.Image) *Surface {
	return &Surface{
		Width:   64,
		Height:  36,
		Dur:     duration,
		Step:    step,
		State:   media.HaveEnoughData,
		FrameAt: frameAt,
	}
}

func (s *Surface) Dimensions(context.Context) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Width, s.Height, nil
}

func (s *Surface) Snapshot(context.Context) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SnapshotErr != nil {
		return nil, s.SnapshotErr
	}
	if s.FrameAt == nil {
		return nil, media.ErrNoFrame
	}
	return s.FrameAt(s.Time), nil
}

func (s *Surface) CurrentTime(context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Time, nil
}

func (s *Surface) Duration(context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Dur, nil
}

func (s *Surface) ReadyState(context.Context) (media.ReadyState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.State, nil
}

func (s *Surface) Paused(context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.IsPaused, nil
}

func (s *Surface) Ended(context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.IsEnded, nil
}

// Seek records the target and jumps there.
func (s *Surface) Seek(_ context.Context, seconds float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Closed {
		return media.ErrClosed
	}
	s.Seeks = append(s.Seeks, seconds)
	s.Time = seconds
	return nil
}

// NextFrame advances the shadow timeline. The first call presents t=0.
// Past the end it marks the surface ended; once ended it reports ErrClosed.
func (s *Surface) NextFrame(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Closed || s.IsEnded {
		return media.ErrClosed
	}
	if s.NotReadyTicks > 0 {
		s.NotReadyTicks--
		s.State = media.HaveNothing
		return nil
	}
	s.State = media.HaveEnoughData
	if !s.started {
		s.started = true
		return nil
	}
	s.Time += s.Step
	if s.Time >= s.Dur {
		s.Time = s.Dur
		s.IsEnded = true
	}
	return nil
}

func (s *Surface) SetPlaybackRate(rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Rate = rate
}

func (s *Surface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	return nil
}

// Advance moves the playback position forward by d, as real playback would
// between two display frames. It marks the surface ended at the duration.
func (s *Surface) Advance(d float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Time += d
	if s.Dur > 0 && s.Time >= s.Dur {
		s.Time = s.Dur
		s.IsEnded = true
	}
}

// SeekLog returns a copy of every seek target so far.
func (s *Surface) SeekLog() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]float64(nil), s.Seeks...)
}

// IsClosed reports whether Close was called.
func (s *Surface) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Closed
}

// Location is a mutable page location.
type Location struct {
	mu  sync.Mutex
	url string
}

// NewLocation returns a location currently at url.
func NewLocation(url string) *Location {
	return &Location{url: url}
}

func (l *Location) Location(context.Context) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.url, nil
}

// Navigate changes the location, as a user clicking away would.
func (l *Location) Navigate(url string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.url = url
}

// Clock is a frame clock driven by the test. Each Tick releases exactly one
// NextFrame call; Stop makes NextFrame return ErrClosed.
type Clock struct {
	ticks chan struct{}
	done  chan struct{}
	once  sync.Once
}

func NewClock() *Clock {
	return &Clock{ticks: make(chan struct{}), done: make(chan struct{})}
}

func (c *Clock) NextFrame(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return media.ErrClosed
	case <-c.ticks:
		return nil
	}
}

// Tick releases one frame and blocks until a loop has consumed it.
func (c *Clock) Tick() {
	c.ticks <- struct{}{}
}

func (c *Clock) Stop() {
	c.once.Do(func() { close(c.done) })
}
