package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/alvarorichard/ceddoskip/internal/browser"
	"github.com/alvarorichard/ceddoskip/internal/config"
	"github.com/alvarorichard/ceddoskip/internal/media"
	"github.com/alvarorichard/ceddoskip/internal/models"
	"github.com/alvarorichard/ceddoskip/internal/player"
	"github.com/alvarorichard/ceddoskip/internal/session"
	"github.com/alvarorichard/ceddoskip/internal/skipper"
	"github.com/alvarorichard/ceddoskip/internal/util"
	"github.com/alvarorichard/ceddoskip/internal/youtube"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

const eventPollInterval = 500 * time.Millisecond

// page is the visible player: a surface, a location and a trigger source.
type page struct {
	video   media.VisibleSurface
	locator media.Locator
	events  <-chan models.PageEvent
	close   func() error
}

func watchCmd(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) error {
	fs := newFlagSet("watch")
	cfg.BindCommon(fs)
	cfg.BindAnalysis(fs)
	cfg.BindPlayback(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	finish, err := setup(cfg)
	if err != nil {
		return err
	}
	defer finish()

	url := fs.Arg(0)
	if url == "" {
		if url, err = util.PromptVideoURL(); err != nil {
			return err
		}
	}
	if cfg.Player == "" {
		if cfg.Player, err = choosePlayer(); err != nil {
			return err
		}
	}

	tracker := openTracker(cfg)
	defer func() { _ = tracker.Close() }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p, err := openPage(ctx, cfg, url)
	if err != nil {
		return err
	}
	defer func() {
		if err := p.close(); err != nil {
			util.Debug("closing player", "error", err)
		}
	}()

	runner := session.NewRunner(p.video, p.locator, shadowOpener(cfg), session.Config{
		Channel:      cfg.Channel,
		Classifier:   newClassifier(cfg),
		Rate:         cfg.Rate,
		NearEnd:      cfg.NearEnd,
		Nudge:        cfg.Nudge,
		TickInterval: cfg.TickInterval,
		Recorder:     recorder(tracker),
		Perf:         cfg.Perf,
		OnAction: func(a skipper.Action, from, to float64) {
			util.Debug("seek", "action", a.String(), "from", from, "to", to)
		},
	})

	util.Info("watching", "player", cfg.Player, "channel", cfg.Channel)
	runner.Watch(ctx, p.events, func(sum session.Summary, err error) {
		if err != nil {
			util.Warn("session failed", "error", err)
		}
		printSummary(stdout, sum)
	})
	return nil
}

func openPage(ctx context.Context, cfg *config.Config, url string) (*page, error) {
	switch cfg.Player {
	case config.PlayerBrowser:
		if id, err := youtube.VideoID(url); err == nil && cfg.Headless {
			url = youtube.EmbedURL(id)
		}
		tab, err := browser.Launch(url, browser.Options{Headless: cfg.Headless})
		if err != nil {
			return nil, err
		}
		return &page{
			video:   tab.Video(),
			locator: tab,
			events:  tab.Events(ctx, eventPollInterval),
			close:   tab.Close,
		}, nil

	default:
		client, err := player.Start(ctx, cfg.MPVPath, url, nil)
		if err != nil {
			return nil, err
		}
		resolve := func(ctx context.Context, url string) (string, error) {
			return youtube.FetchChannel(ctx, nil, url)
		}
		return &page{
			video:   client,
			locator: client,
			events:  client.Events(ctx, eventPollInterval, resolve),
			close:   client.Close,
		}, nil
	}
}

func choosePlayer() (string, error) {
	choice := config.PlayerMPV
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Play with").
				Options(
					huh.NewOption("mpv", config.PlayerMPV),
					huh.NewOption("Chromium (playwright)", config.PlayerBrowser),
				).
				Value(&choice),
		),
	)
	if err := form.Run(); err != nil {
		return "", fmt.Errorf("failed to show player prompt: %w", err)
	}
	return choice, nil
}

var (
	summaryTitle = lipgloss.NewStyle().Foreground(lipgloss.Color("#009DEF")).Bold(true)
	summaryDim   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

func printSummary(w io.Writer, sum session.Summary) {
	if sum.ID == "" {
		return
	}
	name := sum.VideoID
	if name == "" {
		name = sum.Epoch
	}
	fmt.Fprintln(w, summaryTitle.Render(name)+" "+summaryDim.Render(sum.ID[:8]))
	if sum.ShadowErr != nil {
		fmt.Fprintln(w, summaryDim.Render("  shadow analysis unavailable: "+sum.ShadowErr.Error()))
	}
	if len(sum.Intervals) == 0 {
		fmt.Fprintln(w, "  no reaction intervals found")
		return
	}
	for _, iv := range sum.Intervals {
		fmt.Fprintf(w, "  %s  %s\n", iv.String(), summaryDim.Render(fmt.Sprintf("%.1fs", iv.Length())))
	}
}
