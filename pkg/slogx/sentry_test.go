package slogx_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/require"

	"github.com/boofmebel/auth/pkg/slogx"
)

type eventSink struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (s *eventSink) beforeSend(e *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *eventSink) all() []*sentry.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*sentry.Event(nil), s.events...)
}

func newHub(t *testing.T) (*sentry.Hub, *eventSink) {
	t.Helper()

	sink := &eventSink{}
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:        "https://public@sentry.example.com/1",
		BeforeSend: sink.beforeSend,
	})
	require.NoError(t, err)
	return sentry.NewHub(client, sentry.NewScope()), sink
}

func TestSentryHandler_ReportsErrors(t *testing.T) {
	hub, sink := newHub(t)
	ctx := sentry.SetHubOnContext(context.Background(), hub)

	var buf bytes.Buffer
	logger := slog.New(slogx.NewSentryHandler(slog.NewJSONHandler(&buf, nil), slog.LevelError)).
		With("service", "auth-service").
		WithGroup("req")

	logger.InfoContext(ctx, "login ok", "user_id", 7)
	logger.ErrorContext(ctx, "refresh failed", "error", errors.New("db down"), "user_id", 7)

	events := sink.all()
	require.Len(t, events, 1)
	require.Equal(t, "refresh failed", events[0].Message)
	require.Equal(t, sentry.LevelError, events[0].Level)

	fields := events[0].Contexts["log"]
	require.Equal(t, "auth-service", fields["service"])
	require.Equal(t, "db down", fields["req.error"])
	require.EqualValues(t, 7, fields["req.user_id"])

	// Both records still reach the wrapped handler.
	require.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("\n")))
}

func TestSentryHandler_NoClient(t *testing.T) {
	var buf bytes.Buffer
	ctx := sentry.SetHubOnContext(context.Background(), sentry.NewHub(nil, sentry.NewScope()))

	logger := slog.New(slogx.NewSentryHandler(slog.NewJSONHandler(&buf, nil), slog.LevelError))
	logger.ErrorContext(ctx, "boom")

	require.Contains(t, buf.String(), `"msg":"boom"`)
}

func TestSentryHandler_RespectsWrappedLevel(t *testing.T) {
	hub, sink := newHub(t)
	ctx := sentry.SetHubOnContext(context.Background(), hub)

	var buf bytes.Buffer
	next := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelError + 4})
	logger := slog.New(slogx.NewSentryHandler(next, slog.LevelError))

	logger.ErrorContext(ctx, "reported only")

	require.Len(t, sink.all(), 1)
	require.Empty(t, buf.String())
}
