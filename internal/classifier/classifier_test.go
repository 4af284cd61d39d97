package classifier

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/alvarorichard/ceddoskip/internal/media/mediatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, color.RGBA{R: 0, G: 157, B: 239, A: 255}, cfg.Reference)
	assert.Equal(t, 20, cfg.Tolerance)
	assert.Equal(t, 200, cfg.Threshold)
}

func TestNewFallsBackToDefaults(t *testing.T) {
	c := New(Config{Tolerance: -1, Threshold: 0})
	assert.Equal(t, 20, c.Config().Tolerance)
	assert.Equal(t, 200, c.Config().Threshold)
}

func TestRegion(t *testing.T) {
	tests := []struct {
		name   string
		bounds image.Rectangle
		want   image.Rectangle
	}{
		{"1080p", image.Rect(0, 0, 1920, 1080), image.Rect(1280, 540, 1920, 1080)},
		{"odd size floors", image.Rect(0, 0, 100, 51), image.Rect(66, 25, 100, 51)},
		{"offset bounds", image.Rect(10, 10, 40, 30), image.Rect(30, 20, 40, 30)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Region(tt.bounds))
		})
	}
}

func TestEvaluateUniformNonMatchIsSkip(t *testing.T) {
	c := New(DefaultConfig())
	for _, col := range []color.RGBA{
		{R: 0, G: 0, B: 0, A: 255},
		{R: 255, G: 255, B: 255, A: 255},
		{R: 21, G: 157, B: 239, A: 255}, // red just outside tolerance
		{R: 0, G: 136, B: 239, A: 255},  // green just outside tolerance
		{R: 0, G: 157, B: 218, A: 255},  // blue just outside tolerance
	} {
		res := c.Evaluate(mediatest.SolidFrame(90, 60, col))
		assert.True(t, res.Skip, "colour %v", col)
		assert.Zero(t, res.Matches, "colour %v", col)
		assert.Equal(t, 30*30, res.Scanned)
	}
}

func TestEvaluateMarkerIsNotSkip(t *testing.T) {
	c := New(DefaultConfig())
	res := c.Evaluate(mediatest.MarkedFrame(90, 60))
	assert.False(t, res.Skip)
	assert.Equal(t, 200, res.Matches)
}

func TestEvaluateToleranceBoundaryMatches(t *testing.T) {
	c := New(DefaultConfig())
	res := c.Evaluate(mediatest.SolidFrame(90, 60, color.RGBA{R: 20, G: 177, B: 219, A: 255}))
	assert.False(t, res.Skip)
}

func TestEvaluateEarlyTermination(t *testing.T) {
	c := New(Config{Reference: mediatest.Marker, Tolerance: 20, Threshold: 10})
	res := c.Evaluate(mediatest.MarkedFrame(300, 200))
	assert.False(t, res.Skip)
	assert.Equal(t, 10, res.Matches)
	assert.Equal(t, 10, res.Scanned, "scan must stop at the threshold")
}

func TestEvaluateBelowThresholdIsSkip(t *testing.T) {
	img := mediatest.SolidFrame(90, 60, color.Black)
	// 199 marker pixels inside the sampled cell.
	n := 0
	for y := 30; y < 60 && n < 199; y++ {
		for x := 60; x < 90 && n < 199; x++ {
			img.SetRGBA(x, y, mediatest.Marker)
			n++
		}
	}
	res := New(DefaultConfig()).Evaluate(img)
	assert.True(t, res.Skip)
	assert.Equal(t, 199, res.Matches)
}

func TestEvaluateIgnoresMarkerOutsideRegion(t *testing.T) {
	img := mediatest.SolidFrame(90, 60, color.Black)
	// Fill the top-left of the frame with marker colour.
	for y := 0; y < 30; y++ {
		for x := 0; x < 60; x++ {
			img.SetRGBA(x, y, mediatest.Marker)
		}
	}
	res := New(DefaultConfig()).Evaluate(img)
	assert.True(t, res.Skip)
	assert.Zero(t, res.Matches)
}

func TestEvaluateEmptyImage(t *testing.T) {
	res := New(DefaultConfig()).Evaluate(image.NewRGBA(image.Rect(0, 0, 0, 0)))
	assert.False(t, res.Skip)
}

func TestClassifyFailsSafe(t *testing.T) {
	c := New(DefaultConfig())
	ctx := context.Background()

	assert.False(t, c.Classify(ctx, nil))

	zero := mediatest.NewSurface(10, 1, func(float64) image.Image {
		return mediatest.SolidFrame(90, 60, color.Black)
	})
	zero.Width, zero.Height = 0, 0
	assert.False(t, c.Classify(ctx, zero))

	broken := mediatest.NewSurface(10, 1, nil)
	broken.SnapshotErr = errors.New("tainted canvas")
	assert.False(t, c.Classify(ctx, broken))
}

func TestClassifySurface(t *testing.T) {
	c := New(DefaultConfig())
	ctx := context.Background()

	plain := mediatest.NewSurface(10, 1, func(float64) image.Image {
		return mediatest.SolidFrame(90, 60, color.Black)
	})
	assert.True(t, c.Classify(ctx, plain))

	marked := mediatest.NewSurface(10, 1, func(float64) image.Image {
		return mediatest.MarkedFrame(90, 60)
	})
	assert.False(t, c.Classify(ctx, marked))
}

func TestScaledThreshold(t *testing.T) {
	tests := []struct {
		name      string
		threshold int
		ratio     float64
		want      int
	}{
		{"native", 200, 1, 200},
		{"unknown ratio", 200, 0, 200},
		{"quarter area", 200, 0.25, 50},
		{"rounds up", 200, 1.0 / 9, 23},
		{"never zero", 200, 0.001, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScaledThreshold(tt.threshold, tt.ratio))
		})
	}
}

// halfSizeSource hands out frames at half the native width and height.
type halfSizeSource struct {
	*mediatest.Surface
}

func (halfSizeSource) AreaRatio() float64 { return 0.25 }

func TestClassifyScalesThresholdForDownscaledFrames(t *testing.T) {
	// 60 marker pixels: a native frame would need 200, a quarter-area
	// frame needs 50.
	frame := func(float64) image.Image {
		img := mediatest.SolidFrame(90, 60, color.Black)
		for x := 60; x < 90; x++ {
			img.SetRGBA(x, 30, mediatest.Marker)
			img.SetRGBA(x, 59, mediatest.Marker)
		}
		return img
	}
	c := New(DefaultConfig())
	ctx := context.Background()

	assert.True(t, c.Classify(ctx, mediatest.NewSurface(10, 1, frame)))
	assert.False(t, c.Classify(ctx, halfSizeSource{mediatest.NewSurface(10, 1, frame)}))
}

type fixedScorer struct {
	score float64
	err   error
}

func (f fixedScorer) Score(image.Image) (float64, error) { return f.score, f.err }

func TestScoreClassifier(t *testing.T) {
	ctx := context.Background()
	src := mediatest.NewSurface(10, 1, func(float64) image.Image {
		return mediatest.SolidFrame(8, 8, color.Black)
	})

	require.True(t, ScoreClassifier{Scorer: fixedScorer{score: 0.1}, Cutoff: 0.5}.Classify(ctx, src))
	assert.False(t, ScoreClassifier{Scorer: fixedScorer{score: 0.9}, Cutoff: 0.5}.Classify(ctx, src))
	assert.False(t, ScoreClassifier{Scorer: fixedScorer{err: errors.New("model")}, Cutoff: 0.5}.Classify(ctx, src))
	assert.False(t, ScoreClassifier{Cutoff: 0.5}.Classify(ctx, src))
}
