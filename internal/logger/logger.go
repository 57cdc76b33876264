package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the shared structured logger for the service. It defaults to
// JSON output on stderr at info level; call Init to reconfigure.
var Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

// Init configures the global logger from a level string ("debug", "info",
// "warn", "error"). Unknown levels fall back to info. When pretty is true
// the output is human-readable console format instead of JSON.
func Init(level string, pretty bool) {
	zerolog.TimeFieldFormat = time.RFC3339

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}

	Logger = logger.Level(lvl).With().Timestamp().Str("service", "opal-sync-monitor").Logger()
}
