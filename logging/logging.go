// Package logging is the small structured-logging helper every
// command and library entry point in this module shares: a
// slog.Logger factory and a context.Context attribute carrier, so a
// session id attached once at the top can ride along through every
// log line a scan emits.
package logging

import (
	"context"
	"io"
	"log/slog"
)

// Logger builds a slog.Logger writing to w, either as JSON (for
// machine-consumed log aggregation) or slog's default text handler
// (for a developer's terminal), at the given minimum level.
func Logger(w io.Writer, json bool, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level, AddSource: level <= slog.LevelDebug}
	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(&ctxHandler{Handler: handler})
}

type ctxKey struct{}

// AppendCtx attaches additional slog.Attr values to ctx. Every log
// call made with this context, through a Logger from this package,
// carries them automatically.
func AppendCtx(ctx context.Context, attrs ...slog.Attr) context.Context {
	if existing, ok := ctx.Value(ctxKey{}).([]slog.Attr); ok {
		return context.WithValue(ctx, ctxKey{}, append(existing, attrs...))
	}
	return context.WithValue(ctx, ctxKey{}, attrs)
}

// ctxHandler wraps a slog.Handler, injecting the attributes AppendCtx
// stashed on the context into every record it handles.
type ctxHandler struct {
	slog.Handler
}

func (h *ctxHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs, ok := ctx.Value(ctxKey{}).([]slog.Attr); ok {
		r.AddAttrs(attrs...)
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ctxHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ctxHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *ctxHandler) WithGroup(name string) slog.Handler {
	return &ctxHandler{Handler: h.Handler.WithGroup(name)}
}
