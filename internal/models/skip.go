package models

import "fmt"

// SkipInterval is a span of video time, in seconds, the viewer should not see.
// Open intervals have been started but not yet closed by the analyzer.
type SkipInterval struct {
	Start float64 `json:"start_time"`
	End   float64 `json:"end_time"`
	Open  bool    `json:"open,omitempty"`
}

// Covers reports whether t lies inside a closed interval, bounds included.
func (s SkipInterval) Covers(t float64) bool {
	return !s.Open && s.Start <= t && t <= s.End
}

// Length returns the interval length, or 0 while it is still open.
func (s SkipInterval) Length() float64 {
	if s.Open {
		return 0
	}
	return s.End - s.Start
}

func (s SkipInterval) String() string {
	if s.Open {
		return fmt.Sprintf("[%.2f, ...)", s.Start)
	}
	return fmt.Sprintf("[%.2f, %.2f]", s.Start, s.End)
}

// PageEvent is emitted when the page finishes navigating to a video.
type PageEvent struct {
	ChannelID string `json:"channel_id"`
	URL       string `json:"url"`
}
