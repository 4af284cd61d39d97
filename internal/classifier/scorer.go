package classifier

import (
	"context"
	"image"

	"github.com/alvarorichard/ceddoskip/internal/media"
	"github.com/alvarorichard/ceddoskip/internal/metrics"
	"github.com/alvarorichard/ceddoskip/internal/util"
)

// Scorer is a pluggable model that rates a frame. Higher scores mean the
// reacted-to content is on screen.
type Scorer interface {
	Score(img image.Image) (float64, error)
}

// ScoreClassifier adapts a Scorer to the Classifier contract: a score
// below Cutoff is skip-worthy.
type ScoreClassifier struct {
	Scorer Scorer
	Cutoff float64
}

func (s ScoreClassifier) Classify(ctx context.Context, src media.FrameSource) bool {
	if s.Scorer == nil || src == nil {
		return false
	}
	img, err := src.Snapshot(ctx)
	if err != nil || img == nil {
		util.Debug("score classifier: snapshot failed", "error", err)
		metrics.FramesClassifiedTotal.WithLabelValues("error").Inc()
		return false
	}
	score, err := s.Scorer.Score(img)
	if err != nil {
		util.Debug("score classifier: scorer failed", "error", err)
		metrics.FramesClassifiedTotal.WithLabelValues("error").Inc()
		return false
	}
	skip := score < s.Cutoff
	if skip {
		metrics.FramesClassifiedTotal.WithLabelValues("skip").Inc()
	} else {
		metrics.FramesClassifiedTotal.WithLabelValues("keep").Inc()
	}
	return skip
}
