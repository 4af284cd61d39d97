package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alvarorichard/ceddoskip/internal/config"
	"github.com/alvarorichard/ceddoskip/internal/metrics"
	"github.com/alvarorichard/ceddoskip/internal/session"
	"github.com/alvarorichard/ceddoskip/internal/tracking"
	"github.com/alvarorichard/ceddoskip/internal/util"
	"github.com/alvarorichard/ceddoskip/internal/version"
)

func main() {
	os.Exit(run(os.Args, os.Stdout))
}

// run dispatches a subcommand and returns the process exit code.
func run(args []string, stdout io.Writer) int {
	if version.HasVersionArg(args) {
		version.ShowVersion(stdout)
		return 0
	}
	if len(args) < 2 {
		util.Helper()
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, util.ErrorHandler(err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[1] {
	case "watch":
		err = watchCmd(ctx, cfg, args[2:], stdout)
	case "analyze":
		err = analyzeCmd(ctx, cfg, args[2:], stdout)
	case "history":
		err = historyCmd(cfg, args[2:], stdout)
	case "help", "-h", "-help", "--help":
		util.Helper()
		return 0
	default:
		err = fmt.Errorf("unknown command %q, run 'ceddoskip help'", args[1])
	}

	if err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		fmt.Fprintln(os.Stderr, util.ErrorHandler(err))
		return 1
	}
	return 0
}

// setup applies the ambient settings once flags are parsed. The returned
// func flushes the perf report and stops the metrics server.
func setup(cfg *config.Config) (func(), error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	util.InitLogger(util.LogOptions{Debug: cfg.Debug, Perf: cfg.Perf})
	util.PerfEnabled = cfg.Perf
	util.Debug("starting", "version", version.Version)

	var stopMetrics func()
	if cfg.MetricsAddr != "" {
		srv := metrics.StartServer(cfg.MetricsAddr)
		stopMetrics = func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}
	}

	return func() {
		if cfg.Perf {
			util.GetPerfTracker().PrintReport()
		}
		if stopMetrics != nil {
			stopMetrics()
		}
	}, nil
}

// openTracker returns the interval ledger, or nil when history is off or
// unavailable in this build.
func openTracker(cfg *config.Config) *tracking.LocalTracker {
	if cfg.NoTrack {
		return nil
	}
	if !tracking.IsCgoEnabled {
		tracking.HandleTrackingNotice()
		return nil
	}
	path := cfg.TrackingDB
	if path == "" {
		path = tracking.DefaultDBPath()
	}
	t, err := tracking.NewLocalTracker(path)
	if err != nil {
		util.Warn("interval history unavailable", "path", path, "error", err)
		return nil
	}
	return t
}

// recorder adapts a possibly nil tracker to session.Recorder.
func recorder(t *tracking.LocalTracker) session.Recorder {
	if t == nil {
		return nil
	}
	return t
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: ceddoskip %s [options]\n", name)
		fs.PrintDefaults()
	}
	return fs
}
