package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Provides a simple leveled logger interface for the application.
// Arguments after the message are alternating key/value pairs.

type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
	With(kv ...any) Logger
}

// Options selects level and output format.
type Options struct {
	Level  string // "debug", "info", "warn", "error"
	Format string // "json", "text"
	Out    io.Writer
}

// ZeroLogger is the zerolog backed Logger.
type ZeroLogger struct {
	z zerolog.Logger
}

// New builds a Logger from options. Unknown levels fall back to info.
func New(opts Options) *ZeroLogger {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	if !strings.EqualFold(opts.Format, "json") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || opts.Level == "" {
		lvl = zerolog.InfoLevel
	}

	return &ZeroLogger{z: zerolog.New(out).Level(lvl).With().Timestamp().Logger()}
}

// Nop returns a Logger that discards everything.
func Nop() *ZeroLogger {
	return &ZeroLogger{z: zerolog.Nop()}
}

func (l *ZeroLogger) Debug(msg string, kv ...any) { l.z.Debug().Fields(kv).Msg(msg) }
func (l *ZeroLogger) Info(msg string, kv ...any)  { l.z.Info().Fields(kv).Msg(msg) }
func (l *ZeroLogger) Warn(msg string, kv ...any)  { l.z.Warn().Fields(kv).Msg(msg) }
func (l *ZeroLogger) Error(msg string, kv ...any) { l.z.Error().Fields(kv).Msg(msg) }

// With returns a child logger carrying the given fields on every entry.
func (l *ZeroLogger) With(kv ...any) Logger {
	return &ZeroLogger{z: l.z.With().Fields(kv).Logger()}
}
