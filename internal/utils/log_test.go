package utils

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFanoutHandler(t *testing.T) {
	var debugBuf, infoBuf bytes.Buffer
	debugHandler := slog.NewTextHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug})
	infoHandler := slog.NewTextHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})

	logger := slog.New(NewFanoutHandler(debugHandler, infoHandler)).With("run", "r1")
	logger.Debug("plan computed", "downloads", 2)
	logger.Info("sync complete")

	assert.Contains(t, debugBuf.String(), "plan computed")
	assert.Contains(t, debugBuf.String(), "run=r1")
	assert.Contains(t, debugBuf.String(), "sync complete")
	assert.NotContains(t, infoBuf.String(), "plan computed")
	assert.Contains(t, infoBuf.String(), "run=r1")
}

func TestProgressHandler(t *testing.T) {
	var lines []string
	var structured bytes.Buffer
	handler := NewFanoutHandler(
		slog.NewTextHandler(&structured, &slog.HandlerOptions{Level: slog.LevelDebug}),
		NewProgressHandler(func(line string) { lines = append(lines, line) }),
	)

	logger := slog.New(handler).With("run", "r1").WithGroup("sync")
	logger.Debug("not a progress line")
	logger.Info("Downloading a.txt", "size", 100)
	logger.Warn("bundle sync failed", "error", "boom")

	assert.Equal(t, []string{"Downloading a.txt", "bundle sync failed"}, lines)
	assert.Contains(t, structured.String(), "sync.size=100")
	assert.Contains(t, structured.String(), "not a progress line")
}

func TestProgressHandlerWithoutSink(t *testing.T) {
	assert.False(t, NewProgressHandler(nil).Enabled(context.Background(), slog.LevelError))
}

func TestSessionWriter(t *testing.T) {
	var out bytes.Buffer
	w := NewSessionWriter(&out, "ab12")
	w.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }

	_, err := w.Write([]byte("first\r\nsec"))
	require.NoError(t, err)
	assert.Equal(t, "session=ab12 seq=1 time=2025-01-02T03:04:05Z first\n", out.String())

	n, err := w.Write([]byte("ond\ntail"))
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	require.NoError(t, w.Close())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasSuffix(lines[1], "seq=2 time=2025-01-02T03:04:05Z second"))
	assert.True(t, strings.HasSuffix(lines[2], "seq=3 time=2025-01-02T03:04:05Z tail"))
	require.NoError(t, w.Close())
}
