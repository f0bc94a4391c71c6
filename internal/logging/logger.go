package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Options select the logger's output.
type Options struct {
	App   string
	Env   string
	Level string // trace, debug, info, warn, error; unknown values fall back to info
	// Format is "json" or "pretty". Empty or "auto" picks json in production and pretty elsewhere.
	Format string
	Output io.Writer
}

// New builds the process logger tagged with app and env.
func New(opts Options) zerolog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	format := opts.Format
	if format == "" || format == "auto" {
		format = "pretty"
		if opts.Env == "production" {
			format = "json"
		}
	}
	if format == "pretty" {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339Nano,
			NoColor:    opts.Output != nil,
		}
	}

	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	return zerolog.New(out).Level(level).With().
		Timestamp().
		Str("app", opts.App).
		Str("env", opts.Env).
		Logger()
}

type loggerKey struct{}

// IntoContext stores a request-scoped logger.
func IntoContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger stored by IntoContext, or a disabled one.
func FromContext(ctx context.Context) zerolog.Logger {
	if ctx == nil {
		return zerolog.Nop()
	}
	if logger, ok := ctx.Value(loggerKey{}).(zerolog.Logger); ok {
		return logger
	}
	return zerolog.Nop()
}
