// Package rtlog builds the zerolog.Logger used throughout the
// scheduler runtime: level and format come from the same config
// surface that drives everything else, rather than a separately
// wired logging stack.
package rtlog

import (
	"os"

	"github.com/rs/zerolog"
)

// New builds a root logger at the given level ("debug", "info",
// "warn", "error") and format ("json" or "console").
func New(level, format string) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		parsed = zerolog.InfoLevel
	}

	var w = os.Stderr
	var logger zerolog.Logger
	if format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(w).With().Timestamp().Logger()
	}
	return logger.Level(parsed).With().Str("component", "actlyrt").Logger()
}

// WithCore returns a child logger tagged with the given core id,
// following the same component-scoped-sub-logger convention as the
// root logger's "component" field.
func WithCore(log zerolog.Logger, core int) zerolog.Logger {
	return log.With().Int("core", core).Logger()
}
