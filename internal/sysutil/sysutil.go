// Package sysutil holds process-level helpers: logger construction and
// small environment utilities shared by the server entrypoint.
package sysutil

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ParseLevel maps a level name to a zerolog level. Supported values
// (case-insensitive): debug, info, warn, error, fatal, panic. Anything else
// is info.
func ParseLevel(lvl string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}

// SetLogLevel configures the global zerolog level from a level name.
func SetLogLevel(lvl string) {
	zerolog.SetGlobalLevel(ParseLevel(lvl))
}

// LoggerOptions configures NewLogger.
type LoggerOptions struct {
	Level   string
	Pretty  bool // human-readable console output for development
	Service string
	Version string
}

// NewLogger builds the root logger writing to w (stderr when nil) and sets
// the global level. Every entry carries a timestamp and the service name.
func NewLogger(w io.Writer, opts LoggerOptions) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	SetLogLevel(opts.Level)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if opts.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	ctx := zerolog.New(w).With().Timestamp()
	if opts.Service != "" {
		ctx = ctx.Str("service", opts.Service)
	}
	if opts.Version != "" {
		ctx = ctx.Str("version", opts.Version)
	}
	return ctx.Logger()
}

// LineWriter adapts a logger to io.Writer, logging each write as one message
// at a fixed level. It routes Gin's debug output into structured logs.
type LineWriter struct {
	Log   zerolog.Logger
	Level zerolog.Level
}

func (w LineWriter) Write(p []byte) (int, error) {
	if msg := strings.TrimSpace(string(p)); msg != "" {
		w.Log.WithLevel(w.Level).Str("source", "gin").Msg(msg)
	}
	return len(p), nil
}

// FirstNonEmpty returns the first non-blank string, or "".
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
