// Package ctxlogger carries slog attributes in a context so that every log
// line emitted while handling a request shares the same request-scoped
// fields.
package ctxlogger

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// ContextHandler decorates records with the attributes accumulated in the
// context via AppendCtx.
type ContextHandler struct {
	slog.Handler
}

func (h ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs, ok := ctx.Value(ctxKey{}).([]slog.Attr); ok {
		r.AddAttrs(attrs...)
	}

	return h.Handler.Handle(ctx, r)
}

func AppendCtx(parent context.Context, attr slog.Attr) context.Context {
	if parent == nil {
		parent = context.Background()
	}

	attrs, _ := parent.Value(ctxKey{}).([]slog.Attr)
	merged := make([]slog.Attr, 0, len(attrs)+1)
	merged = append(merged, attrs...)
	merged = append(merged, attr)

	return context.WithValue(parent, ctxKey{}, merged)
}
