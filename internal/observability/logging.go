package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
}

// NewLogger creates a logger for one component at the process-wide level
// from MARGIN_LOG_LEVEL (default info). Output is JSON to stdout;
// MARGIN_LOG_FORMAT=console switches to human-readable lines for local
// runs.
func NewLogger(component string) zerolog.Logger {
	return NewLoggerWithLevel(component, levelFromEnv())
}

// NewLoggerWithLevel creates a component logger with an explicit level,
// ignoring MARGIN_LOG_LEVEL.
func NewLoggerWithLevel(component string, level zerolog.Level) zerolog.Logger {
	return zerolog.New(logWriter()).
		Level(level).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}

func logWriter() io.Writer {
	if os.Getenv("MARGIN_LOG_FORMAT") == "console" {
		return zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return os.Stdout
}

func levelFromEnv() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(os.Getenv("MARGIN_LOG_LEVEL")))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
