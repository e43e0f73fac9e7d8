// Package logctx threads a zerolog.Logger through context.Context, the
// same way the teacher's context.go threads work-dir/env/sandbox values.
package logctx

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
)

type contextKey int

const ctxKeyLogger contextKey = iota

// New builds the ambient console logger used across all binaries.
func New(w io.Writer, level zerolog.Level) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	console := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	return zerolog.New(console).Level(level).With().Timestamp().Logger()
}

// With returns a context carrying logger.
func With(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKeyLogger, logger)
}

// From returns the logger stored in ctx, or zerolog's disabled logger
// if none was set.
func From(ctx context.Context) zerolog.Logger {
	if v, ok := ctx.Value(ctxKeyLogger).(zerolog.Logger); ok {
		return v
	}
	return zerolog.Nop()
}
