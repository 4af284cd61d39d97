package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/alvarorichard/ceddoskip/internal/config"
	"github.com/alvarorichard/ceddoskip/internal/media"
	"github.com/alvarorichard/ceddoskip/internal/session"
	"github.com/alvarorichard/ceddoskip/internal/shadow"
	"github.com/alvarorichard/ceddoskip/internal/util"
	"github.com/alvarorichard/ceddoskip/internal/youtube"
	"github.com/charmbracelet/huh/spinner"
)

// isLocalFile reports whether input names a file on disk.
func isLocalFile(input string) bool {
	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		return false
	}
	st, err := os.Stat(input)
	return err == nil && !st.IsDir()
}

// videoKey names input in the history: the YouTube id, or the file name.
func videoKey(input string) string {
	if id, err := youtube.VideoID(input); err == nil {
		return id
	}
	if isLocalFile(input) {
		return filepath.Base(input)
	}
	return ""
}

// shadowInput turns a page URL or file into something ffmpeg can read.
func shadowInput(ctx context.Context, cfg *config.Config, input string) (string, error) {
	if isLocalFile(input) {
		return input, nil
	}
	if _, err := youtube.VideoID(input); err != nil {
		return "", err
	}
	return youtube.ResolveStream(ctx, input, cfg.MaxHeight)
}

// resolveWithSpinner runs shadowInput behind a spinner. Resolution may
// install yt-dlp first, which takes a while.
func resolveWithSpinner(ctx context.Context, cfg *config.Config, input string) (string, error) {
	var (
		src string
		err error
		ran bool
	)
	serr := spinner.New().
		Title("Resolving video stream...").
		Type(spinner.Dots).
		Context(ctx).
		Action(func() {
			src, err = shadowInput(ctx, cfg, input)
			ran = true
		}).
		Run()
	if !ran {
		util.Debug("spinner unavailable", "error", serr)
		return shadowInput(ctx, cfg, input)
	}
	return src, err
}

// shadowOpener resolves and opens the hidden copy for each session.
func shadowOpener(cfg *config.Config) session.ShadowOpener {
	return func(ctx context.Context, pageURL string) (media.ShadowSurface, error) {
		in, err := shadowInput(ctx, cfg, pageURL)
		if err != nil {
			return nil, err
		}
		return shadow.Open(ctx, in, cfg.Shadow())
	}
}
