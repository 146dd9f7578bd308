// Package logging wraps github.com/rs/zerolog with the handful of
// contextual fields every kernel subsystem needs to attach (core id,
// subsystem name), the same "named sub-logger per component" pattern the
// teacher's CPU/VM layers use their plain log.Logger for
// (SchawnnDev-awesomeVM/internal/mips/cpu.go), generalized to structured
// fields instead of prefixed strings.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger is a thin value-type wrapper over zerolog.Logger so call sites in
// internal/core, internal/sched, and internal/irq don't import zerolog
// directly.
type Logger struct {
	z zerolog.Logger
}

// New returns a Logger writing human-readable output to w at the given
// level.
func New(w io.Writer, level zerolog.Level) Logger {
	z := zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05.000"}).
		Level(level).
		With().Timestamp().Logger()
	return Logger{z: z}
}

// Default returns a Logger writing to stderr at info level, used wherever a
// caller hasn't wired a configured logger through.
func Default() Logger {
	return New(os.Stderr, zerolog.InfoLevel)
}

// WithCore returns a derived Logger tagging every subsequent event with
// core=id.
func (l Logger) WithCore(id int) Logger {
	return Logger{z: l.z.With().Int("core", id).Logger()}
}

// WithComponent returns a derived Logger tagging every subsequent event
// with component=name.
func (l Logger) WithComponent(name string) Logger {
	return Logger{z: l.z.With().Str("component", name).Logger()}
}

func (l Logger) Debug() *zerolog.Event { return l.z.Debug() }
func (l Logger) Info() *zerolog.Event  { return l.z.Info() }
func (l Logger) Warn() *zerolog.Event  { return l.z.Warn() }
func (l Logger) Error() *zerolog.Event { return l.z.Error() }

// Fatal returns an event at zerolog's Fatal level for the kernel's
// non-recoverable conditions (MissingHandler, EmptyRunQueue, allocation
// failure): a structured, highest-severity dump of whatever frame/queue
// state the caller attaches. It deliberately does not go through
// zerolog.Logger.Fatal, which calls os.Exit on Msg and would make the
// panic/recover these conditions still use via Go's panic unreachable in
// tests; WithLevel(FatalLevel) gets the same severity labeling without the
// exit hook.
func (l Logger) Fatal() *zerolog.Event { return l.z.WithLevel(zerolog.FatalLevel) }

// ParseLevel parses a config-file level string ("debug", "info", "warn",
// "error") into a zerolog.Level, defaulting to InfoLevel on an unrecognized
// string.
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
