// Package skipstore holds the skip intervals discovered for one video.
package skipstore

import (
	"sync"

	"github.com/alvarorichard/ceddoskip/internal/models"
)

// Store is an ordered list of skip intervals fed by a forward-only sample
// stream. At most the last interval is open. It is safe for one writer and
// any number of readers.
type Store struct {
	mu        sync.RWMutex
	intervals []models.SkipInterval
	lastTime  float64
	sampled   bool
	onClose   func(models.SkipInterval)
}

// New returns an empty store.
func New() *Store {
	return &Store{}
}

// OnClose registers fn to be called, outside the lock, every time an
// interval is closed by RecordSample or Flush.
func (s *Store) OnClose(fn func(models.SkipInterval)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onClose = fn
}

// RecordSample feeds one classified sample. A skip-worthy sample opens an
// interval starting at the previous sample's time; the next non-skip sample
// closes it at t. Samples not strictly after the last one are ignored.
func (s *Store) RecordSample(t float64, skip bool) {
	closed, ok := s.record(t, skip)
	if ok {
		s.notify(closed)
	}
}

func (s *Store) record(t float64, skip bool) (models.SkipInterval, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sampled && t <= s.lastTime {
		return models.SkipInterval{}, false
	}
	prev := t
	if s.sampled {
		prev = s.lastTime
	}
	s.lastTime = t
	s.sampled = true

	open := s.openIndex()
	switch {
	case open < 0 && skip:
		s.intervals = append(s.intervals, models.SkipInterval{Start: prev, Open: true})
	case open >= 0 && !skip:
		s.intervals[open].End = t
		s.intervals[open].Open = false
		return s.intervals[open], true
	}
	return models.SkipInterval{}, false
}

// Flush closes a still-open interval at end. When end is not after the
// interval start the interval is dropped instead. It reports whether an
// interval was closed.
func (s *Store) Flush(end float64) bool {
	closed, ok := s.flush(end)
	if ok {
		s.notify(closed)
	}
	return ok
}

func (s *Store) flush(end float64) (models.SkipInterval, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	open := s.openIndex()
	if open < 0 {
		return models.SkipInterval{}, false
	}
	if end <= s.intervals[open].Start {
		s.intervals = s.intervals[:open]
		return models.SkipInterval{}, false
	}
	s.intervals[open].End = end
	s.intervals[open].Open = false
	return s.intervals[open], true
}

// FindCovering returns the first closed interval with Start <= t <= End.
func (s *Store) FindCovering(t float64) (models.SkipInterval, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, iv := range s.intervals {
		if iv.Covers(t) {
			return iv, true
		}
	}
	return models.SkipInterval{}, false
}

// Intervals returns a copy of every interval, the open one included.
func (s *Store) Intervals() []models.SkipInterval {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.SkipInterval(nil), s.intervals...)
}

// Closed returns a copy of the closed intervals only.
func (s *Store) Closed() []models.SkipInterval {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.SkipInterval, 0, len(s.intervals))
	for _, iv := range s.intervals {
		if !iv.Open {
			out = append(out, iv)
		}
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.intervals)
}

func (s *Store) HasOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.openIndex() >= 0
}

// LastSample returns the time of the most recent accepted sample.
func (s *Store) LastSample() (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastTime, s.sampled
}

// openIndex must be called with the lock held.
func (s *Store) openIndex() int {
	if n := len(s.intervals); n > 0 && s.intervals[n-1].Open {
		return n - 1
	}
	return -1
}

func (s *Store) notify(iv models.SkipInterval) {
	s.mu.RLock()
	fn := s.onClose
	s.mu.RUnlock()
	if fn != nil {
		fn(iv)
	}
}
