package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrettyHandler(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	log.Info("hidden")
	require.Zero(t, buf.Len())

	ctx := WithRequestID(context.Background(), "req-1")
	log.With("component", "auth").WithGroup("session").WarnContext(ctx, "refresh failed", "sid", "abc")

	out := buf.String()
	require.Contains(t, out, "refresh failed")
	require.Contains(t, out, "request_id")
	require.Contains(t, out, "req-1")
	require.Contains(t, out, "component")
	require.Contains(t, out, "session.sid")
}

func TestPrettyHandlerDefaultsToInfo(t *testing.T) {
	t.Parallel()

	h := NewPrettyHandler(&bytes.Buffer{}, nil)
	require.False(t, h.Enabled(context.Background(), slog.LevelDebug))
	require.True(t, h.Enabled(context.Background(), slog.LevelInfo))
}
