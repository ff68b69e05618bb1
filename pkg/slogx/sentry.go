package slogx

import (
	"context"
	"log/slog"

	"github.com/getsentry/sentry-go"
)

// SentryHandler reports records at or above Level to Sentry and passes every
// record on to the wrapped handler. The hub comes from the record's context
// when sentryhttp put one there, otherwise the global hub is used.
type SentryHandler struct {
	next  slog.Handler
	level slog.Level
	attrs []slog.Attr
	group string
}

func NewSentryHandler(next slog.Handler, level slog.Level) *SentryHandler {
	return &SentryHandler{next: next, level: level}
}

func (h *SentryHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return l >= h.level || h.next.Enabled(ctx, l)
}

func (h *SentryHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.level {
		h.capture(ctx, r)
	}
	if !h.next.Enabled(ctx, r.Level) {
		return nil
	}
	return h.next.Handle(ctx, r)
}

func (h *SentryHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	h2 := *h
	h2.next = h.next.WithAttrs(attrs)
	h2.attrs = append(h.attrs[:len(h.attrs):len(h.attrs)], groupAttr(h.group, attrs))
	return &h2
}

func (h *SentryHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.next = h.next.WithGroup(name)
	h2.group = joinKey(h.group, name)
	return &h2
}

func (h *SentryHandler) capture(ctx context.Context, r slog.Record) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	if hub.Client() == nil {
		return
	}

	fields := sentry.Context{}
	for _, a := range h.attrs {
		flatten(fields, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		flatten(fields, h.group, a)
		return true
	})

	event := sentry.NewEvent()
	event.Level = sentry.LevelError
	if r.Level > slog.LevelError {
		event.Level = sentry.LevelFatal
	}
	event.Logger = "slog"
	event.Message = r.Message
	if !r.Time.IsZero() {
		event.Timestamp = r.Time
	}
	event.Contexts = map[string]sentry.Context{"log": fields}
	hub.CaptureEvent(event)
}

func groupAttr(group string, attrs []slog.Attr) slog.Attr {
	return slog.Attr{Key: group, Value: slog.GroupValue(attrs...)}
}

func flatten(dst sentry.Context, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	key := joinKey(prefix, a.Key)
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			flatten(dst, key, ga)
		}
		return
	}

	switch v := a.Value.Any().(type) {
	case error:
		dst[key] = v.Error()
	default:
		dst[key] = v
	}
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	}
	return prefix + "." + key
}
