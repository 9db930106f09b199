// Package sysutil holds process-level helpers used by the server binary.
package sysutil

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ParseLevel maps a level name to a zerolog level. Unknown or empty names
// fall back to info.
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

// LogOptions configures the process-wide logger.
type LogOptions struct {
	Level   string
	Pretty  bool   // human-readable console output instead of JSON
	Service string // stamped on every line when set
	Version string
	Out     io.Writer // defaults to os.Stderr
}

// SetupLogging installs the global zerolog logger and level and returns the
// configured logger.
func SetupLogging(opt LogOptions) zerolog.Logger {
	out := opt.Out
	if out == nil {
		out = os.Stderr
	}
	if opt.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.SetGlobalLevel(ParseLevel(opt.Level))

	ctx := zerolog.New(out).With().Timestamp()
	if opt.Service != "" {
		ctx = ctx.Str("service", opt.Service)
	}
	if opt.Version != "" {
		ctx = ctx.Str("version", opt.Version)
	}
	logger := ctx.Logger()
	log.Logger = logger
	return logger
}

// FirstNonEmpty returns the first value that is not blank, or "".
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
