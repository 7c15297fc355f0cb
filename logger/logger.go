// Package logger carries a *zap.Logger through a context.Context.
//
// Components never hold a logger of their own; they ask the context they were
// handed:
//
//	logger.L(ctx).Debug("resolved scope", zap.String("scope", s))
//
// L falls back to zap's global logger when the context carries none, so
// library code is safe to call from tests that never install one.
package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// NewContext returns a copy of ctx carrying l.
func NewContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// L returns the logger carried by ctx, or zap.L() if there is none.
func L(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return zap.L()
}

// With returns a copy of ctx whose logger has the given fields attached.
func With(ctx context.Context, fields ...zap.Field) context.Context {
	return NewContext(ctx, L(ctx).With(fields...))
}

// New builds the process logger: development config when verbose, production
// otherwise.
func New(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
