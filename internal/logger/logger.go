// Package logger initializes [zerolog] loggers for gong's
// command-line tools.
package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger that writes JSON to stderr, or human-readable
// console lines when pretty is true. Trace-level events (per-frame
// logging) are only emitted when verbose is true, in either format.
func New(pretty, verbose bool) zerolog.Logger {
	level := zerolog.DebugLevel
	if verbose {
		level = zerolog.TraceLevel
	}

	if pretty {
		w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
		return zerolog.New(w).Level(level).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}
