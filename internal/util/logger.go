package util

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
)

var Logger *log.Logger

// LogOptions is the logging side of the -debug and -perf flags.
type LogOptions struct {
	// Debug lowers the level to debug and adds the caller to every line.
	Debug bool
	// Perf stamps lines with millisecond times so loop timings can be read
	// against the perf report.
	Perf bool
	// Output defaults to stderr; stdout carries reports and JSON.
	Output io.Writer
}

var prefixStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#FFFFFF")).
	Background(lipgloss.Color("#009DEF")).
	Bold(true).
	Padding(0, 1).
	MarginRight(1)

// NewLogger builds a logger for opts without touching package state.
func NewLogger(opts LogOptions) *log.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	l := log.NewWithOptions(out, log.Options{
		ReportCaller:    opts.Debug,
		ReportTimestamp: opts.Debug || opts.Perf,
		TimeFormat:      "15:04:05.000",
		Prefix:          prefixStyle.Render("ceddoskip"),
		Level:           log.InfoLevel,
	})
	l.SetColorProfile(termenv.EnvColorProfile())
	if opts.Debug {
		l.SetLevel(log.DebugLevel)
	}
	return l
}

// InitLogger installs the package logger and the debug switch used by
// ErrorHandler and the f-helpers.
func InitLogger(opts LogOptions) {
	SetDebugMode(opts.Debug)
	Logger = NewLogger(opts)
	Logger.Debug("debug logging enabled", "perf", opts.Perf)
}

func logAt(level log.Level, msg interface{}, keyvals ...interface{}) {
	if Logger == nil {
		return
	}
	if level == log.DebugLevel && !IsDebug {
		return
	}
	Logger.Log(level, fmt.Sprintf("%v", msg), keyvals...)
}

// Debug logs only when debug mode is on.
func Debug(msg interface{}, keyvals ...interface{}) { logAt(log.DebugLevel, msg, keyvals...) }

func Info(msg interface{}, keyvals ...interface{}) { logAt(log.InfoLevel, msg, keyvals...) }

func Warn(msg interface{}, keyvals ...interface{}) { logAt(log.WarnLevel, msg, keyvals...) }

func Error(msg interface{}, keyvals ...interface{}) { logAt(log.ErrorLevel, msg, keyvals...) }

func Debugf(format string, args ...interface{}) { logAt(log.DebugLevel, fmt.Sprintf(format, args...)) }

func Infof(format string, args ...interface{}) { logAt(log.InfoLevel, fmt.Sprintf(format, args...)) }

func Warnf(format string, args ...interface{}) { logAt(log.WarnLevel, fmt.Sprintf(format, args...)) }
