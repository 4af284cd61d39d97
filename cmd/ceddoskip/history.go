package main

import (
	"fmt"
	"io"

	"github.com/alvarorichard/ceddoskip/internal/config"
	"github.com/alvarorichard/ceddoskip/internal/tracking"
)

func historyCmd(cfg *config.Config, args []string, stdout io.Writer) error {
	fs := newFlagSet("history")
	cfg.BindCommon(fs)
	video := fs.String("video", "", "only show this video id")
	forget := fs.Bool("forget", false, "delete the history of -video")
	asJSON := fs.Bool("json", false, "print records as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	finish, err := setup(cfg)
	if err != nil {
		return err
	}
	defer finish()

	if !tracking.IsCgoEnabled {
		return tracking.ErrCgoDisabled
	}
	path := cfg.TrackingDB
	if path == "" {
		path = tracking.DefaultDBPath()
	}
	tracker, err := tracking.NewLocalTracker(path)
	if err != nil {
		return err
	}
	defer func() { _ = tracker.Close() }()

	if *forget {
		if *video == "" {
			return fmt.Errorf("-forget needs -video")
		}
		if err := tracker.DeleteVideo(*video); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "forgot %s\n", *video)
		return nil
	}

	var records []tracking.IntervalRecord
	if *video != "" {
		records, err = tracker.IntervalsFor(*video)
	} else {
		records, err = tracker.AllIntervals()
	}
	if err != nil {
		return err
	}

	if *asJSON {
		return writeJSON(stdout, records)
	}
	printHistory(stdout, records)
	return nil
}

func printHistory(w io.Writer, records []tracking.IntervalRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "no intervals recorded yet")
		return
	}
	last := ""
	for _, r := range records {
		if r.VideoID != last {
			fmt.Fprintln(w, summaryTitle.Render(r.VideoID))
			last = r.VideoID
		}
		fmt.Fprintf(w, "  %s  %s\n", r.Interval().String(),
			summaryDim.Render(r.RecordedAt.Format("2006-01-02 15:04")))
	}
}
