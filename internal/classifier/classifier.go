// Package classifier decides, frame by frame, whether playback is in the
// reaction layout. The layout is recognised by the absence of the coloured
// border the channel draws around the reacted-to content in the bottom-right
// corner of the frame.
package classifier

import (
	"context"
	"image"
	"image/color"
	"math"
	"time"

	"github.com/alvarorichard/ceddoskip/internal/media"
	"github.com/alvarorichard/ceddoskip/internal/metrics"
	"github.com/alvarorichard/ceddoskip/internal/util"
	"github.com/disintegration/gift"
)

// Classifier turns the current frame of a source into a skip verdict.
// true means the frame is skip-worthy. Implementations never return an
// error: anything that prevents a decision yields false.
type Classifier interface {
	Classify(ctx context.Context, src media.FrameSource) bool
}

// Config holds the marker colour and the counting bounds.
type Config struct {
	Reference color.RGBA
	Tolerance int
	Threshold int

	// Perf records per-frame timing in the perf tracker.
	Perf bool
}

// DefaultConfig returns the production marker settings.
func DefaultConfig() Config {
	return Config{
		Reference: color.RGBA{R: 0, G: 157, B: 239, A: 255},
		Tolerance: 20,
		Threshold: 200,
	}
}

// Result is the outcome of scanning one frame.
type Result struct {
	Skip    bool
	Matches int
	Scanned int
}

// PixelClassifier counts close matches against the reference colour inside
// the bottom-right cell of a 3x2 grid.
type PixelClassifier struct {
	cfg Config
}

// New returns a PixelClassifier. Non-positive bounds fall back to defaults.
func New(cfg Config) *PixelClassifier {
	def := DefaultConfig()
	if cfg.Tolerance < 0 {
		cfg.Tolerance = def.Tolerance
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	return &PixelClassifier{cfg: cfg}
}

// Config returns the settings in use.
func (c *PixelClassifier) Config() Config {
	return c.cfg
}

// Classify snapshots src and evaluates it. A nil source, a zero-sized
// frame or a failed pixel read all yield false.
func (c *PixelClassifier) Classify(ctx context.Context, src media.FrameSource) bool {
	if c.cfg.Perf {
		defer util.GetPerfTracker().Since("classify", time.Now())
	}
	if src == nil {
		metrics.FramesClassifiedTotal.WithLabelValues("error").Inc()
		return false
	}

	w, h, err := src.Dimensions(ctx)
	if err != nil || w <= 0 || h <= 0 {
		util.Debug("classifier: no frame dimensions", "width", w, "height", h, "error", err)
		metrics.FramesClassifiedTotal.WithLabelValues("error").Inc()
		return false
	}

	img, err := src.Snapshot(ctx)
	if err != nil || img == nil {
		util.Debug("classifier: snapshot failed", "error", err)
		metrics.FramesClassifiedTotal.WithLabelValues("error").Inc()
		return false
	}

	threshold := c.cfg.Threshold
	if d, ok := src.(media.Downscaled); ok {
		threshold = ScaledThreshold(threshold, d.AreaRatio())
	}
	res := c.evaluate(img, threshold)
	if res.Skip {
		metrics.FramesClassifiedTotal.WithLabelValues("skip").Inc()
	} else {
		metrics.FramesClassifiedTotal.WithLabelValues("keep").Inc()
	}
	return res.Skip
}

// Region returns the bottom-right cell of a 3x2 grid over bounds:
// x in [min+floor(2w/3), max), y in [min+floor(h/2), max).
func Region(bounds image.Rectangle) image.Rectangle {
	w, h := bounds.Dx(), bounds.Dy()
	return image.Rect(
		bounds.Min.X+(2*w)/3, bounds.Min.Y+h/2,
		bounds.Max.X, bounds.Max.Y,
	)
}

// ScaledThreshold converts a match count taken at native resolution to a
// frame whose area is ratio times the native area. It never drops below 1.
func ScaledThreshold(threshold int, ratio float64) int {
	if ratio <= 0 || ratio >= 1 {
		return threshold
	}
	n := int(math.Ceil(float64(threshold) * ratio))
	if n < 1 {
		n = 1
	}
	return n
}

// Evaluate scans img. Counting stops as soon as Threshold close matches
// have been seen, in which case the frame is not skip-worthy.
func (c *PixelClassifier) Evaluate(img image.Image) Result {
	return c.evaluate(img, c.cfg.Threshold)
}

func (c *PixelClassifier) evaluate(img image.Image, threshold int) Result {
	region := Region(img.Bounds())
	if region.Empty() {
		return Result{}
	}

	g := gift.New(gift.Crop(region))
	buf := image.NewNRGBA(g.Bounds(img.Bounds()))
	g.Draw(buf, img)

	ref := c.cfg.Reference
	tol := c.cfg.Tolerance
	res := Result{}
	b := buf.Bounds()
	for y := 0; y < b.Dy(); y++ {
		row := buf.Pix[y*buf.Stride : y*buf.Stride+b.Dx()*4]
		for x := 0; x < len(row); x += 4 {
			res.Scanned++
			if absDiff(row[x], ref.R) <= tol &&
				absDiff(row[x+1], ref.G) <= tol &&
				absDiff(row[x+2], ref.B) <= tol {
				res.Matches++
				if res.Matches >= threshold {
					return res
				}
			}
		}
	}

	res.Skip = true
	return res
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
