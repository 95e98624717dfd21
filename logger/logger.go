/*
logger.go - zerolog setup

PURPOSE:
  One place that builds the application's zerolog.Logger. Console format
  for development, plain JSON for anything that ships logs somewhere.

SEE ALSO:
  - config/config.go: LOG_LEVEL / LOG_FORMAT knobs
*/
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds a logger for the given level and format. Unknown levels fall
// back to info rather than erroring out at startup.
func New(level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	var out io.Writer = os.Stdout
	if strings.ToLower(format) != "json" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// Nop returns a disabled logger for tests.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
