package logging

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type runIDKey struct{}

// WithRunID returns a context carrying a fresh run identifier. An existing
// identifier on ctx is preserved.
func WithRunID(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := RunIDFromContext(ctx); ok {
		return ctx
	}
	return context.WithValue(ctx, runIDKey{}, uuid.NewString())
}

// RunIDFromContext returns the run identifier stored by WithRunID.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(runIDKey{}).(string)
	return id, ok && id != ""
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if id, ok := RunIDFromContext(ctx); ok {
		return logger.With(String(FieldCorrelationID, id))
	}
	return logger
}
