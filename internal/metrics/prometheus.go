// Package metrics exposes prometheus counters for the classifier and the
// two playback loops.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesClassifiedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ceddoskip_frames_classified_total",
		Help: "Frames classified, by verdict (skip, keep, error)",
	}, []string{"verdict"})

	ShadowSamplesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ceddoskip_shadow_samples_total",
		Help: "Shadow analyzer ticks, by outcome (sampled, not_ready, stale)",
	}, []string{"outcome"})

	IntervalsDiscoveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ceddoskip_intervals_discovered_total",
		Help: "Skip intervals closed by the shadow analyzer",
	})

	SeeksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ceddoskip_seeks_total",
		Help: "Seeks issued by the live skipper, by kind (interval, nudge)",
	}, []string{"kind"})

	SkippedSeconds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ceddoskip_skipped_seconds_total",
		Help: "Playback seconds jumped over by the live skipper",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ceddoskip_active_sessions",
		Help: "Sessions whose loops are currently running",
	})
)
