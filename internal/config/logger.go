package config

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

type loggerSettings struct {
	level  string
	output io.Writer
	extra  io.Writer
}

// LoggerOption customizes NewLogger
type LoggerOption func(*loggerSettings)

// WithLevel overrides the environment's default level ("debug", "info",
// "warn", "error"). Unparseable values are ignored.
func WithLevel(level string) LoggerOption {
	return func(s *loggerSettings) {
		s.level = level
	}
}

// WithFile mirrors every record to w in addition to stdout
func WithFile(w io.Writer) LoggerOption {
	return func(s *loggerSettings) {
		s.extra = w
	}
}

// withOutput replaces stdout; used by tests
func withOutput(w io.Writer) LoggerOption {
	return func(s *loggerSettings) {
		s.output = w
	}
}

// NewRotatingFile returns a size-rotated log file sink
func NewRotatingFile(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		MaxAge:     14, // days
		Compress:   true,
	}
}

func NewLogger(env string, options ...LoggerOption) *slog.Logger {
	settings := &loggerSettings{output: os.Stdout}
	for _, opt := range options {
		opt(settings)
	}

	var handler slog.Handler

	opts := &slog.HandlerOptions{
		AddSource: env == "development",
	}

	if env == "production" {
		opts.Level = slog.LevelInfo
	} else {
		opts.Level = slog.LevelDebug
	}

	if settings.level != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(settings.level)); err == nil {
			opts.Level = lvl
		}
	}

	out := settings.output
	if settings.extra != nil {
		out = io.MultiWriter(out, settings.extra)
	}

	if env == "production" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler)
}
