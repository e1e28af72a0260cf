package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds the logger handed to every component for one invocation.
// There is no package-level logger; callers own the instance they create.
func New(out io.Writer, level string) zerolog.Logger {
	writer := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.Kitchen,
	}
	return zerolog.New(writer).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Logger()
}

// Nop returns a logger that discards everything, for tests and callers
// that want a silent manager.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
