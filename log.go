package profiler

import (
	"os"

	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stderr).With().Timestamp().Str("component", "profiler").Logger()

// SetLogger replaces the package logger. Call it before profiling is
// enabled; the runtime logs emission failures through it.
func SetLogger(l zerolog.Logger) {
	logger = l.With().Str("component", "profiler").Logger()
}
