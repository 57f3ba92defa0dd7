package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stlauncher/stsync/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0o644))

	s, err := New(&Config{DataDir: root, Host: "127.0.0.1", Port: 0})
	require.NoError(t, err)
	return s
}

func TestNewMissingDataDir(t *testing.T) {
	_, err := New(&Config{DataDir: filepath.Join(t.TempDir(), "missing"), Port: DefaultPort})
	assert.ErrorIs(t, err, ErrDataDirMissing)
}

func TestNewDataDirIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := New(&Config{DataDir: file})
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	cfg := &Config{DataDir: t.TempDir()}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultHost, cfg.Host)

	assert.Error(t, (&Config{}).Validate())
	assert.Error(t, (&Config{DataDir: t.TempDir(), Port: 70000}).Validate())
	assert.Error(t, (&Config{DataDir: t.TempDir(), RateLimit: "fast"}).Validate())
	assert.NoError(t, (&Config{DataDir: t.TempDir(), RateLimit: "100-S"}).Validate())
}

func TestStartBackgroundAndStop(t *testing.T) {
	s := newTestServer(t)
	assert.False(t, s.Running())

	require.NoError(t, s.StartBackground())
	assert.True(t, s.Running())
	assert.ErrorIs(t, s.StartBackground(), ErrAlreadyRunning)

	resp, err := http.Get("http://" + s.Addr() + "/file?path=a.txt")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hello", string(body))

	addr := s.Addr()
	require.NoError(t, s.Stop(context.Background()))
	assert.False(t, s.Running())

	_, err = net.DialTimeout("tcp", addr, time.Second)
	assert.Error(t, err)

	// stopping twice is harmless and the server can be started again
	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.StartBackground())
	require.NoError(t, s.Stop(context.Background()))
}

func TestStartBlocksUntilCancelled(t *testing.T) {
	s := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, s.Running, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + s.Addr() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
	assert.False(t, s.Running())
}

func TestStartBackgroundBindError(t *testing.T) {
	port, err := utils.FreePort("127.0.0.1")
	require.NoError(t, err)

	ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	require.NoError(t, err)
	defer ln.Close()

	s, err := New(&Config{DataDir: t.TempDir(), Host: "127.0.0.1", Port: port})
	require.NoError(t, err)
	assert.Error(t, s.StartBackground())
	assert.False(t, s.Running())
}

func TestRoutes(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.StartBackground())
	defer s.Stop(context.Background())

	base := "http://" + s.Addr()
	for path, want := range map[string]int{
		"/":         http.StatusOK,
		"/health":   http.StatusOK,
		"/info":     http.StatusOK,
		"/manifest": http.StatusOK,
		"/zip":      http.StatusOK,
		"/nope":     http.StatusNotFound,
	} {
		resp, err := http.Get(base + path)
		require.NoError(t, err, path)
		resp.Body.Close()
		assert.Equal(t, want, resp.StatusCode, path)
	}

	resp, err := http.Head(base + "/zip")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/zip", resp.Header.Get("Content-Type"))
}

func TestTransferLog(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0o644))
	logDir := filepath.Join(t.TempDir(), "access")

	s, err := New(&Config{DataDir: root, Host: "127.0.0.1", AccessLogDir: logDir})
	require.NoError(t, err)
	require.NoError(t, s.StartBackground())

	for _, target := range []string{"/health", "/file?path=a.txt"} {
		req, err := http.NewRequest(http.MethodGet, "http://"+s.Addr()+target, nil)
		require.NoError(t, err)
		req.Header.Set("X-Stsync-Device-Id", "tablet")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
	require.NoError(t, s.Stop(context.Background()))

	data, err := os.ReadFile(filepath.Join(logDir, "tablet", "access.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"endpoint":"/file"`)
	assert.Contains(t, string(data), `"file":"a.txt"`)
	assert.NotContains(t, string(data), "/health")
}
