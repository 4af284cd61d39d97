//go:build cgo

package tracking

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alvarorichard/ceddoskip/internal/models"
)

func newTestTracker(t *testing.T) *LocalTracker {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	tracker, err := NewLocalTracker(dbPath)
	if err != nil {
		t.Fatalf("NewLocalTracker failed: %v", err)
	}
	t.Cleanup(func() {
		if err := tracker.Close(); err != nil {
			t.Logf("Error closing tracker: %v", err)
		}
	})
	return tracker
}

func TestNewLocalTracker(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "nested", "intervals.db")

	tracker, err := NewLocalTracker(dbPath)
	if err != nil {
		t.Fatalf("NewLocalTracker failed: %v", err)
	}

	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("DB file was not created: %v", err)
	}

	if err := tracker.Close(); err != nil {
		t.Errorf("tracker.Close() returned error: %v", err)
	}
}

func TestRecordAndReadBack(t *testing.T) {
	tracker := newTestTracker(t)

	for _, iv := range []models.SkipInterval{{Start: 49, End: 55}, {Start: 9, End: 20}} {
		if err := tracker.RecordInterval("dQw4w9WgXcQ", iv); err != nil {
			t.Fatalf("RecordInterval failed: %v", err)
		}
	}
	if err := tracker.RecordInterval("aaaaaaaaaaa", models.SkipInterval{Start: 1, End: 2}); err != nil {
		t.Fatalf("RecordInterval failed: %v", err)
	}

	got, err := tracker.IntervalsFor("dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("IntervalsFor failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 intervals, got %d", len(got))
	}
	if got[0].Interval() != (models.SkipInterval{Start: 9, End: 20}) {
		t.Errorf("first interval mismatch: got %s", got[0].Interval())
	}
	if got[1].Interval() != (models.SkipInterval{Start: 49, End: 55}) {
		t.Errorf("second interval mismatch: got %s", got[1].Interval())
	}
	if got[0].RecordedAt.IsZero() {
		t.Error("RecordedAt was not set")
	}

	all, err := tracker.AllIntervals()
	if err != nil {
		t.Fatalf("AllIntervals failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 intervals overall, got %d", len(all))
	}
}

func TestRecordSameStartReplacesEnd(t *testing.T) {
	tracker := newTestTracker(t)

	if err := tracker.RecordInterval("v", models.SkipInterval{Start: 10, End: 12}); err != nil {
		t.Fatalf("RecordInterval failed: %v", err)
	}
	if err := tracker.RecordInterval("v", models.SkipInterval{Start: 10, End: 20}); err != nil {
		t.Fatalf("RecordInterval failed: %v", err)
	}

	got, err := tracker.IntervalsFor("v")
	if err != nil {
		t.Fatalf("IntervalsFor failed: %v", err)
	}
	if len(got) != 1 || got[0].End != 20 {
		t.Errorf("expected a single interval ending at 20, got %+v", got)
	}
}

func TestRecordRejectsBadIntervals(t *testing.T) {
	tracker := newTestTracker(t)

	if err := tracker.RecordInterval("v", models.SkipInterval{Start: 10, Open: true}); err == nil {
		t.Error("expected error for open interval")
	}
	if err := tracker.RecordInterval("v", models.SkipInterval{Start: 10, End: 10}); err == nil {
		t.Error("expected error for empty interval")
	}
}

func TestDeleteVideo(t *testing.T) {
	tracker := newTestTracker(t)

	if err := tracker.RecordInterval("v", models.SkipInterval{Start: 1, End: 2}); err != nil {
		t.Fatalf("RecordInterval failed: %v", err)
	}
	if err := tracker.DeleteVideo("v"); err != nil {
		t.Fatalf("DeleteVideo failed: %v", err)
	}
	got, err := tracker.IntervalsFor("v")
	if err != nil {
		t.Fatalf("IntervalsFor failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no intervals after delete, got %d", len(got))
	}
}

func TestNilTracker(t *testing.T) {
	var tracker *LocalTracker

	if err := tracker.RecordInterval("v", models.SkipInterval{Start: 1, End: 2}); err != ErrTrackerNotInited {
		t.Errorf("expected ErrTrackerNotInited, got %v", err)
	}
	if _, err := tracker.IntervalsFor("v"); err != ErrTrackerNotInited {
		t.Errorf("expected ErrTrackerNotInited, got %v", err)
	}
	if err := tracker.Close(); err != nil {
		t.Errorf("Close on nil tracker returned %v", err)
	}
}
