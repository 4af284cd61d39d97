// Package config loads runtime settings: built-in defaults, then
// CEDDOSKIP_* environment variables, then command-line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"image/color"
	"strconv"
	"strings"
	"time"

	"github.com/alvarorichard/ceddoskip/internal/classifier"
	"github.com/alvarorichard/ceddoskip/internal/shadow"
	"github.com/caarlos0/env/v11"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "CEDDOSKIP_"

const (
	PlayerMPV     = "mpv"
	PlayerBrowser = "browser"
)

type Config struct {
	Channel string `env:"CHANNEL" envDefault:"@dailyceddo"`
	Player  string `env:"PLAYER"`

	Rate         float64       `env:"RATE"          envDefault:"16"`
	Nudge        float64       `env:"NUDGE"         envDefault:"1"`
	NearEnd      float64       `env:"NEAR_END"      envDefault:"1"`
	TickInterval time.Duration `env:"TICK_INTERVAL" envDefault:"33ms"`

	MarkerColor string `env:"MARKER_COLOR" envDefault:"#009DEF"`
	Tolerance   int    `env:"TOLERANCE"    envDefault:"20"`
	Threshold   int    `env:"THRESHOLD"    envDefault:"200"`

	FFmpegPath  string  `env:"FFMPEG_PATH"`
	FFprobePath string  `env:"FFPROBE_PATH"`
	MPVPath     string  `env:"MPV_PATH"`
	SampleFPS   float64 `env:"SAMPLE_FPS" envDefault:"4"`
	MaxHeight   int     `env:"MAX_HEIGHT" envDefault:"0"`
	Headless    bool    `env:"HEADLESS"   envDefault:"false"`

	TrackingDB  string `env:"TRACKING_DB"`
	NoTrack     bool   `env:"NO_TRACK"     envDefault:"false"`
	MetricsAddr string `env:"METRICS_ADDR"`

	Debug bool `env:"DEBUG" envDefault:"false"`
	Perf  bool `env:"PERF"  envDefault:"false"`
}

// Load returns the defaults overlaid with the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	return cfg, nil
}

// BindCommon registers the flags shared by every subcommand.
func (c *Config) BindCommon(fs *flag.FlagSet) {
	fs.BoolVar(&c.Debug, "debug", c.Debug, "enable debug logging")
	fs.BoolVar(&c.Perf, "perf", c.Perf, "print a loop timing report on exit")
	fs.StringVar(&c.TrackingDB, "db", c.TrackingDB, "interval history database path")
}

// BindAnalysis registers the flags that tune detection and the shadow copy.
func (c *Config) BindAnalysis(fs *flag.FlagSet) {
	fs.StringVar(&c.Channel, "channel", c.Channel, "only act on videos from this channel handle")
	fs.Float64Var(&c.Rate, "rate", c.Rate, "shadow playback rate")
	fs.Float64Var(&c.NearEnd, "near-end", c.NearEnd, "seconds before the end at which analysis stops")
	fs.StringVar(&c.MarkerColor, "marker", c.MarkerColor, "marker colour as #RRGGBB")
	fs.IntVar(&c.Tolerance, "tolerance", c.Tolerance, "per-channel distance that counts as a close match")
	fs.IntVar(&c.Threshold, "threshold", c.Threshold, "close-match count that means the marker is present")
	fs.StringVar(&c.FFmpegPath, "ffmpeg", c.FFmpegPath, "ffmpeg binary")
	fs.StringVar(&c.FFprobePath, "ffprobe", c.FFprobePath, "ffprobe binary")
	fs.Float64Var(&c.SampleFPS, "sample-fps", c.SampleFPS, "shadow frames decoded per second of video")
	fs.IntVar(&c.MaxHeight, "max-height", c.MaxHeight, "scale shadow frames down to this height (0 keeps native size)")
	fs.BoolVar(&c.NoTrack, "no-track", c.NoTrack, "do not record intervals in the history database")
	fs.StringVar(&c.MetricsAddr, "metrics-addr", c.MetricsAddr, "serve prometheus metrics on this address")
}

// BindPlayback registers the flags that only matter while watching.
func (c *Config) BindPlayback(fs *flag.FlagSet) {
	fs.StringVar(&c.Player, "player", c.Player, "visible player: mpv or browser")
	fs.StringVar(&c.MPVPath, "mpv", c.MPVPath, "mpv binary")
	fs.Float64Var(&c.Nudge, "nudge", c.Nudge, "seconds to jump when a skip frame has no known interval")
	fs.DurationVar(&c.TickInterval, "tick", c.TickInterval, "how often the visible video is checked")
	fs.BoolVar(&c.Headless, "headless", c.Headless, "run the browser without a window")
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Channel) == "" {
		errs = append(errs, errors.New("channel must not be empty"))
	}
	switch c.Player {
	case "", PlayerMPV, PlayerBrowser:
	default:
		errs = append(errs, fmt.Errorf("player must be %q or %q, got %q", PlayerMPV, PlayerBrowser, c.Player))
	}
	if c.Rate <= 0 || c.Rate > 16 {
		errs = append(errs, fmt.Errorf("rate must be in (0, 16], got %g", c.Rate))
	}
	if c.Nudge <= 0 {
		errs = append(errs, fmt.Errorf("nudge must be positive, got %g", c.Nudge))
	}
	if c.NearEnd < 0 {
		errs = append(errs, fmt.Errorf("near-end must not be negative, got %g", c.NearEnd))
	}
	if c.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("tick must be positive, got %s", c.TickInterval))
	}
	if _, err := ParseHexColor(c.MarkerColor); err != nil {
		errs = append(errs, err)
	}
	if c.Tolerance < 0 || c.Tolerance > 255 {
		errs = append(errs, fmt.Errorf("tolerance must be in [0, 255], got %d", c.Tolerance))
	}
	if c.Threshold <= 0 {
		errs = append(errs, fmt.Errorf("threshold must be positive, got %d", c.Threshold))
	}
	if c.SampleFPS <= 0 {
		errs = append(errs, fmt.Errorf("sample-fps must be positive, got %g", c.SampleFPS))
	}
	if c.MaxHeight < 0 {
		errs = append(errs, fmt.Errorf("max-height must not be negative, got %d", c.MaxHeight))
	}
	return errors.Join(errs...)
}

// Classifier returns the detection settings. Call after Validate.
func (c *Config) Classifier() classifier.Config {
	ref, err := ParseHexColor(c.MarkerColor)
	if err != nil {
		ref = classifier.DefaultConfig().Reference
	}
	return classifier.Config{
		Reference: ref,
		Tolerance: c.Tolerance,
		Threshold: c.Threshold,
		Perf:      c.Perf,
	}
}

// Shadow returns the decoder settings. Empty binary paths keep the
// platform defaults.
func (c *Config) Shadow() shadow.Config {
	sc := shadow.DefaultConfig()
	if c.FFmpegPath != "" {
		sc.FFmpegPath = c.FFmpegPath
	}
	if c.FFprobePath != "" {
		sc.FFprobePath = c.FFprobePath
	}
	sc.SampleFPS = c.SampleFPS
	sc.MaxHeight = c.MaxHeight
	sc.Rate = c.Rate
	return sc
}

// ParseHexColor parses #RRGGBB (the # is optional).
func ParseHexColor(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) != 6 {
		return color.RGBA{}, fmt.Errorf("marker colour must be #RRGGBB, got %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("marker colour must be #RRGGBB, got %q", s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}
