// Package shadow decodes a second copy of the video with ffmpeg and exposes
// it as an accelerated, silent playback surface for the analyzer.
package shadow

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/alvarorichard/ceddoskip/internal/media"
	"github.com/alvarorichard/ceddoskip/internal/util"
)

// Config controls the decode.
type Config struct {
	FFmpegPath  string
	FFprobePath string
	// SampleFPS is how many frames per second of media time are decoded.
	SampleFPS float64
	// MaxHeight scales frames down before they reach the classifier.
	// 0 keeps the native size.
	MaxHeight int
	Rate      float64
}

// DefaultConfig finds ffmpeg the way a Homebrew install lays it out on
// macOS and falls back to PATH elsewhere.
func DefaultConfig() Config {
	ffmpegPath := "ffmpeg"
	ffprobePath := "ffprobe"

	if runtime.GOOS == "darwin" {
		if _, err := os.Stat("/opt/homebrew/bin/ffmpeg"); err == nil {
			ffmpegPath = "/opt/homebrew/bin/ffmpeg"
			ffprobePath = "/opt/homebrew/bin/ffprobe"
		} else if _, err := os.Stat("/usr/local/bin/ffmpeg"); err == nil {
			ffmpegPath = "/usr/local/bin/ffmpeg"
			ffprobePath = "/usr/local/bin/ffprobe"
		}
	}

	return Config{
		FFmpegPath:  ffmpegPath,
		FFprobePath: ffprobePath,
		SampleFPS:   4,
		Rate:        16,
	}
}

// Surface is a media.ShadowSurface backed by an ffmpeg rawvideo pipe.
// Each NextFrame reads one RGBA frame and waits until that frame is due at
// the current playback rate.
type Surface struct {
	mu sync.Mutex

	r      io.Reader
	closer func() error
	// abort unblocks a pending read. It must be safe to call concurrently
	// with the read.
	abort  func()

	width, height int
	// areaRatio is decoded area over native area.
	areaRatio     float64
	fps           float64
	duration      float64

	buf    []byte
	frame  *image.RGBA
	index  int
	state  media.ReadyState
	ended  bool
	close  bool
	// broken is set once a read was cut short by cancellation.
	broken bool

	rate   float64
	anchor time.Time
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

// Open probes input and starts decoding it. The returned surface owns the
// ffmpeg process until Close.
func Open(ctx context.Context, input string, cfg Config) (*Surface, error) {
	def := DefaultConfig()
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = def.FFmpegPath
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = def.FFprobePath
	}
	if cfg.SampleFPS <= 0 {
		cfg.SampleFPS = def.SampleFPS
	}

	info, err := Probe(ctx, cfg.FFprobePath, input)
	if err != nil {
		return nil, err
	}
	w, h := scaledSize(info.Width, info.Height, cfg.MaxHeight)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("unusable frame size %dx%d", info.Width, info.Height)
	}

	args := []string{
		"-nostdin", "-v", "error",
		"-i", input,
		"-an", "-sn",
		"-vf", fmt.Sprintf("fps=%s,scale=%d:%d", strconv.FormatFloat(cfg.SampleFPS, 'f', -1, 64), w, h),
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"pipe:1",
	}

	procCtx, cancel := context.WithCancel(context.Background())
	// #nosec G204 -- ffmpeg path comes from configuration
	cmd := exec.CommandContext(procCtx, cfg.FFmpegPath, args...)
	if util.IsDebug {
		cmd.Stderr = os.Stderr
		util.Debugf("FFmpeg command: %s %v", cfg.FFmpegPath, args)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	s := newSurface(stdout, w, h, cfg.SampleFPS, info.Duration)
	if native := info.Width * info.Height; native > 0 {
		s.areaRatio = float64(w*h) / float64(native)
	}
	s.SetPlaybackRate(cfg.Rate)
	s.abort = func() {
		cancel()
		_ = stdout.Close()
	}
	s.closer = func() error {
		cancel()
		// A killed decoder exits non-zero; that is the expected outcome here.
		_ = cmd.Wait()
		return nil
	}

	util.Debug("shadow surface open", "width", w, "height", h, "duration", info.Duration, "fps", cfg.SampleFPS)
	return s, nil
}

func newSurface(r io.Reader, w, h int, fps, duration float64) *Surface {
	abort := func() {}
	if c, ok := r.(io.Closer); ok {
		abort = func() { _ = c.Close() }
	}
	return &Surface{
		abort:     abort,
		r:         r,
		width:     w,
		height:    h,
		areaRatio: 1,
		fps:       fps,
		duration:  duration,
		buf:       make([]byte, w*h*4),
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// NextFrame decodes the next frame. At end of stream it marks the surface
// ended and returns nil once; after that it returns media.ErrClosed.
// Cancelling ctx during the read aborts the decoder and returns ctx.Err();
// the surface is unusable afterwards.
func (s *Surface) NextFrame(ctx context.Context) error {
	s.mu.Lock()
	if s.close || s.ended || s.broken {
		s.mu.Unlock()
		return media.ErrClosed
	}
	s.mu.Unlock()

	// The read blocks on ffmpeg and must not hold the lock.
	stop := context.AfterFunc(ctx, s.abort)
	_, err := io.ReadFull(s.r, s.buf)
	aborted := !stop()

	s.mu.Lock()
	if s.close {
		s.mu.Unlock()
		return media.ErrClosed
	}
	if aborted {
		s.broken = true
		s.mu.Unlock()
		return ctx.Err()
	}
	if err != nil {
		s.ended = true
		s.mu.Unlock()
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil
		}
		return fmt.Errorf("read frame: %w", err)
	}

	if s.frame == nil {
		s.frame = image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	}
	copy(s.frame.Pix, s.buf)
	s.index++
	s.state = media.HaveEnoughData
	if s.anchor.IsZero() {
		s.anchor = s.now()
	}
	var wait time.Duration
	if s.rate > 0 {
		due := s.anchor.Add(time.Duration(s.timeLocked() / s.rate * float64(time.Second)))
		wait = due.Sub(s.now())
	}
	s.mu.Unlock()

	if wait > 0 {
		return s.sleep(ctx, wait)
	}
	return ctx.Err()
}

// timeLocked is the media time of the current frame.
func (s *Surface) timeLocked() float64 {
	if s.index == 0 {
		return 0
	}
	return float64(s.index-1) / s.fps
}

func (s *Surface) Dimensions(context.Context) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.close {
		return 0, 0, media.ErrClosed
	}
	return s.width, s.height, nil
}

// Snapshot returns a copy of the current frame.
func (s *Surface) Snapshot(context.Context) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.close {
		return nil, media.ErrClosed
	}
	if s.frame == nil {
		return nil, media.ErrNoFrame
	}
	out := image.NewRGBA(s.frame.Rect)
	copy(out.Pix, s.frame.Pix)
	return out, nil
}

func (s *Surface) CurrentTime(context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeLocked(), nil
}

func (s *Surface) Duration(context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration, nil
}

func (s *Surface) ReadyState(context.Context) (media.ReadyState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, nil
}

// AreaRatio is the decoded frame area over the native frame area. It is 1
// unless MaxHeight scaled the decode down.
func (s *Surface) AreaRatio() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.areaRatio
}

// Paused is always false: the decode only stops at end of stream.
func (s *Surface) Paused(context.Context) (bool, error) {
	return false, nil
}

func (s *Surface) Ended(context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended, nil
}

// SetPlaybackRate changes pacing from the current frame on. A rate <= 0
// decodes as fast as ffmpeg allows.
func (s *Surface) SetPlaybackRate(rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rate = rate
	if rate > 0 && s.index > 0 {
		s.anchor = s.now().Add(-time.Duration(s.timeLocked() / rate * float64(time.Second)))
	}
}

// Close stops the decoder. It is safe to call more than once.
func (s *Surface) Close() error {
	s.mu.Lock()
	if s.close {
		s.mu.Unlock()
		return nil
	}
	s.close = true
	closer := s.closer
	s.mu.Unlock()

	if closer != nil {
		return closer()
	}
	return nil
}
