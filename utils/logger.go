package utils

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger provides structured, leveled logging throughout the application.
type Logger struct {
	z zerolog.Logger
}

// NewLogger creates a development Logger writing coloured console output to stdout.
func NewLogger() *Logger {
	out := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.DateTime}
	return &Logger{z: zerolog.New(out).With().Timestamp().Logger().Level(zerolog.DebugLevel)}
}

// NewLoggerFor builds a Logger for the given environment and level name.
// Production writes JSON lines; everything else uses the console writer.
func NewLoggerFor(env, level string) *Logger {
	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.DateTime}
	if env == "production" {
		out = os.Stdout
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return &Logger{z: zerolog.New(out).With().Timestamp().Logger().Level(lvl)}
}

// NewNopLogger discards everything.
func NewNopLogger() *Logger {
	return &Logger{z: zerolog.Nop()}
}

// With returns a child logger carrying an extra field on every line.
func (l *Logger) With(key, value string) *Logger {
	return &Logger{z: l.z.With().Str(key, value).Logger()}
}

func (l *Logger) Info(format string, args ...any) {
	l.z.Info().Msgf(format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.z.Warn().Msgf(format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.z.Error().Msgf(format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.z.Debug().Msgf(format, args...)
}
