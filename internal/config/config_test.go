package config

import (
	"flag"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "@dailyceddo", cfg.Channel)
	assert.Equal(t, 16.0, cfg.Rate)
	assert.Equal(t, 1.0, cfg.Nudge)
	assert.Equal(t, 1.0, cfg.NearEnd)
	assert.Equal(t, 33*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, 20, cfg.Tolerance)
	assert.Equal(t, 200, cfg.Threshold)
	assert.Equal(t, "#009DEF", cfg.MarkerColor)
	assert.Zero(t, cfg.MaxHeight, "shadow frames keep their native size by default")
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("CEDDOSKIP_RATE", "8")
	t.Setenv("CEDDOSKIP_THRESHOLD", "1000")
	t.Setenv("CEDDOSKIP_PLAYER", "browser")
	t.Setenv("CEDDOSKIP_TICK_INTERVAL", "100ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8.0, cfg.Rate)
	assert.Equal(t, 1000, cfg.Threshold)
	assert.Equal(t, PlayerBrowser, cfg.Player)
	assert.Equal(t, 100*time.Millisecond, cfg.TickInterval)
}

func TestLoadRejectsBadEnvironment(t *testing.T) {
	t.Setenv("CEDDOSKIP_RATE", "fast")
	_, err := Load()
	assert.Error(t, err)
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("CEDDOSKIP_RATE", "8")
	cfg, err := Load()
	require.NoError(t, err)

	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	cfg.BindCommon(fs)
	cfg.BindAnalysis(fs)
	cfg.BindPlayback(fs)
	require.NoError(t, fs.Parse([]string{"-rate", "4", "-player", "mpv", "-debug", "-nudge", "0.5"}))

	assert.Equal(t, 4.0, cfg.Rate)
	assert.Equal(t, PlayerMPV, cfg.Player)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 0.5, cfg.Nudge)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"empty channel", func(c *Config) { c.Channel = " " }, "channel"},
		{"unknown player", func(c *Config) { c.Player = "vlc" }, "player"},
		{"zero rate", func(c *Config) { c.Rate = 0 }, "rate"},
		{"rate above 16", func(c *Config) { c.Rate = 32 }, "rate"},
		{"negative nudge", func(c *Config) { c.Nudge = -1 }, "nudge"},
		{"zero tick", func(c *Config) { c.TickInterval = 0 }, "tick"},
		{"bad colour", func(c *Config) { c.MarkerColor = "blue" }, "marker"},
		{"tolerance range", func(c *Config) { c.Tolerance = 300 }, "tolerance"},
		{"zero threshold", func(c *Config) { c.Threshold = 0 }, "threshold"},
		{"zero fps", func(c *Config) { c.SampleFPS = 0 }, "sample-fps"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	cfg.Rate = 0
	cfg.Threshold = 0

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate")
	assert.Contains(t, err.Error(), "threshold")
}

func TestParseHexColor(t *testing.T) {
	c, err := ParseHexColor("#009DEF")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 0, G: 157, B: 239, A: 255}, c)

	c, err = ParseHexColor("ff0000")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 255, A: 255}, c)

	_, err = ParseHexColor("#12345")
	assert.Error(t, err)
	_, err = ParseHexColor("#zzzzzz")
	assert.Error(t, err)
}

func TestClassifierConfig(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	cfg.Threshold = 1000
	cfg.Perf = true

	cc := cfg.Classifier()
	assert.Equal(t, color.RGBA{R: 0, G: 157, B: 239, A: 255}, cc.Reference)
	assert.Equal(t, 20, cc.Tolerance)
	assert.Equal(t, 1000, cc.Threshold)
	assert.True(t, cc.Perf)
}

func TestShadowConfig(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	cfg.FFmpegPath = "/opt/ffmpeg/bin/ffmpeg"
	cfg.Rate = 8

	sc := cfg.Shadow()
	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", sc.FFmpegPath)
	assert.NotEmpty(t, sc.FFprobePath)
	assert.Equal(t, 8.0, sc.Rate)
	assert.Equal(t, 4.0, sc.SampleFPS)
	assert.Zero(t, sc.MaxHeight)
}
