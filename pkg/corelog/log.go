// Copyright 2025 Certen Protocol
//
// Structured logging (ambient stack). github.com/rs/zerolog is already
// present in the teacher's dependency graph as a transitive pull from
// cometbft; this package promotes it to direct use as the module's shared
// logger construction point, since the teacher's own `log.New` usage is
// the weaker of the two options already in the graph.

package corelog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the base logger for component, writing structured JSON to
// out at the given level. Component is attached as a "component" field
// on every event so multiplexed output (app, consensus, dispatcher) stays
// attributable.
func New(component string, level zerolog.Level, out io.Writer) zerolog.Logger {
	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}

// NewConsole is New, but renders human-readable colorized lines instead of
// raw JSON, for local/dev use where out is a terminal.
func NewConsole(component string, level zerolog.Level) zerolog.Logger {
	writer := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	return New(component, level, writer)
}

// ParseLevel parses a config string ("debug", "info", "warn", "error")
// into a zerolog.Level, defaulting to Info on an empty or unrecognized
// string rather than failing startup over a logging knob.
func ParseLevel(s string) zerolog.Level {
	if s == "" {
		return zerolog.InfoLevel
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
