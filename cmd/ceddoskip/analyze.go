package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/alvarorichard/ceddoskip/internal/analyzer"
	"github.com/alvarorichard/ceddoskip/internal/classifier"
	"github.com/alvarorichard/ceddoskip/internal/config"
	"github.com/alvarorichard/ceddoskip/internal/media"
	"github.com/alvarorichard/ceddoskip/internal/metrics"
	"github.com/alvarorichard/ceddoskip/internal/models"
	"github.com/alvarorichard/ceddoskip/internal/shadow"
	"github.com/alvarorichard/ceddoskip/internal/skipstore"
	"github.com/alvarorichard/ceddoskip/internal/ui"
	"github.com/alvarorichard/ceddoskip/internal/util"
)

// analysisReport is the -json output of analyze.
type analysisReport struct {
	Input     string           `json:"input"`
	VideoID   string           `json:"video_id,omitempty"`
	Duration  float64          `json:"duration"`
	Samples   int              `json:"samples"`
	Stopped   string           `json:"stopped"`
	Intervals []reportInterval `json:"intervals"`
}

type reportInterval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func newClassifier(cfg *config.Config) classifier.Classifier {
	return classifier.New(cfg.Classifier())
}

func analyzeCmd(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) error {
	fs := newFlagSet("analyze")
	cfg.BindCommon(fs)
	cfg.BindAnalysis(fs)
	asJSON := fs.Bool("json", false, "print the intervals as JSON")
	quiet := fs.Bool("no-progress", false, "do not show the progress bar")
	if err := fs.Parse(args); err != nil {
		return err
	}
	finish, err := setup(cfg)
	if err != nil {
		return err
	}
	defer finish()

	input := fs.Arg(0)
	if input == "" {
		if input, err = util.PromptVideoURL(); err != nil {
			return err
		}
	}

	tracker := openTracker(cfg)
	defer func() { _ = tracker.Close() }()
	key := videoKey(input)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	showProgress := !*quiet && !*asJSON
	var src string
	if showProgress && !isLocalFile(input) {
		src, err = resolveWithSpinner(ctx, cfg, input)
	} else {
		src, err = shadowInput(ctx, cfg, input)
	}
	if err != nil {
		return err
	}
	surface, err := shadow.Open(ctx, src, cfg.Shadow())
	if err != nil {
		return err
	}
	duration, _ := surface.Duration(ctx)

	store := skipstore.New()
	store.OnClose(func(iv models.SkipInterval) {
		metrics.IntervalsDiscoveredTotal.Inc()
		util.Debug("interval found", "interval", iv.String())
		if tracker == nil || key == "" {
			return
		}
		if err := tracker.RecordInterval(key, iv); err != nil {
			util.Warn("could not record interval", "error", err)
		}
	})

	var view *ui.AnalyzeView
	acfg := analyzer.Config{
		Rate:    cfg.Rate,
		NearEnd: cfg.NearEnd,
		Epoch:   input,
		Locator: media.StaticLocator(input),
		Perf:    cfg.Perf,
	}
	if showProgress {
		title := key
		if title == "" {
			title = filepath.Base(input)
		}
		view = ui.NewAnalyzeView(title, cancel)
		acfg.Progress = view.Report
	}

	a := analyzer.New(surface, store, newClassifier(cfg), acfg)

	var (
		stats  analyzer.Stats
		runErr error
	)
	if view == nil {
		stats, runErr = a.Run(ctx)
	} else {
		done := make(chan struct{})
		go func() {
			defer close(done)
			stats, runErr = a.Run(ctx)
			view.Finish(fmt.Sprintf("done: %d interval(s)", len(store.Closed())))
		}()
		if err := view.Run(); err != nil {
			cancel()
			<-done
			return err
		}
		cancel()
		<-done
	}
	if runErr != nil {
		return runErr
	}

	report := analysisReport{
		Input:     input,
		VideoID:   key,
		Duration:  duration,
		Samples:   stats.Samples,
		Stopped:   stats.Reason.String(),
		Intervals: []reportInterval{},
	}
	for _, iv := range store.Closed() {
		report.Intervals = append(report.Intervals, reportInterval{Start: iv.Start, End: iv.End})
	}
	if *asJSON {
		return writeJSON(stdout, report)
	}
	printReport(stdout, report)
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printReport(w io.Writer, r analysisReport) {
	name := r.VideoID
	if name == "" {
		name = r.Input
	}
	fmt.Fprintln(w, summaryTitle.Render(name)+" "+
		summaryDim.Render(fmt.Sprintf("%d samples, %s", r.Samples, r.Stopped)))
	if len(r.Intervals) == 0 {
		fmt.Fprintln(w, "  no reaction intervals found")
		return
	}
	var total float64
	for _, iv := range r.Intervals {
		iv := models.SkipInterval{Start: iv.Start, End: iv.End}
		total += iv.Length()
		fmt.Fprintf(w, "  %s  %s\n", iv.String(), summaryDim.Render(fmt.Sprintf("%.1fs", iv.Length())))
	}
	fmt.Fprintf(w, "  %s\n", summaryDim.Render(fmt.Sprintf("%.1fs skippable", total)))
}
