package accesslog

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogAndReadBack(t *testing.T) {
	logger, err := New(t.TempDir())
	require.NoError(t, err)
	defer logger.Close()

	ts := time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)
	logger.Log(Entry{Timestamp: ts, Device: "phone-1", Endpoint: "/zip", Status: 200, Bytes: 1024})
	logger.Log(Entry{Timestamp: ts.Add(time.Second), Device: "phone-1", Endpoint: "/file", File: "chats/a.jsonl", Status: 404})
	logger.Log(Entry{Device: "laptop", Endpoint: "/manifest", Status: 200})

	entries, err := logger.Entries("phone-1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "/zip", entries[0].Endpoint)
	assert.True(t, ts.Equal(entries[0].Timestamp))
	assert.Equal(t, 1024, entries[0].Bytes)
	assert.Equal(t, "chats/a.jsonl", entries[1].File)

	entries, err = logger.Entries("phone-1", 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "/file", entries[0].Endpoint)

	entries, err = logger.Entries("nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDevices(t *testing.T) {
	logger, err := New(t.TempDir())
	require.NoError(t, err)
	defer logger.Close()

	devices, err := logger.Devices()
	require.NoError(t, err)
	assert.Empty(t, devices)

	logger.Log(Entry{Device: "phone-1", Endpoint: "/zip"})
	logger.Log(Entry{Device: "laptop", Endpoint: "/manifest"})

	devices, err = logger.Devices()
	require.NoError(t, err)
	assert.Equal(t, []string{"laptop", "phone-1"}, devices)
}

func TestDeviceDirectories(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(dir)
	require.NoError(t, err)
	defer logger.Close()

	logger.Log(Entry{Device: "../../etc", Endpoint: "/zip"})
	logger.Log(Entry{Endpoint: "/zip"})

	assert.FileExists(t, filepath.Join(dir, ".._.._etc", "access.log"))
	assert.FileExists(t, filepath.Join(dir, AnonymousDevice, "access.log"))
	assert.Equal(t, "abc-1_2.x", sanitizeDevice("abc-1_2.x"))
	assert.Equal(t, "a_b_c", sanitizeDevice("a/b c"))
}

func TestCloseAndReuse(t *testing.T) {
	logger, err := New(t.TempDir())
	require.NoError(t, err)

	logger.Log(Entry{Device: "d", Endpoint: "/zip"})
	require.NoError(t, logger.Close())
	logger.Log(Entry{Device: "d", Endpoint: "/file"})
	require.NoError(t, logger.Close())

	entries, err := logger.Entries("d", 10)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRotation(t *testing.T) {
	dir := t.TempDir()
	w := &deviceWriter{dir: dir}
	require.NoError(t, w.open())
	defer w.close()

	for range MaxLogFiles + 2 {
		w.size = MaxLogSize
		require.NoError(t, w.write(Entry{Device: "d", Endpoint: "/zip"}))
	}

	files, err := logFiles(dir)
	require.NoError(t, err)
	assert.Len(t, files, MaxLogFiles)
	assert.Equal(t, "access.log", files[len(files)-1])
	for _, f := range files[:len(files)-1] {
		assert.True(t, strings.HasPrefix(f, "access.2"), f)
	}
}

func TestMiddleware(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(dir)
	require.NoError(t, err)
	defer logger.Close()

	r := gin.New()
	r.Use(Middleware(logger, "/zip", "/file"))
	r.GET("/zip", func(c *gin.Context) { c.String(http.StatusOK, "PK-data") })
	r.GET("/file", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	for _, target := range []string{"/zip", "/file?path=chats/a.jsonl", "/health"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req.Header.Set(deviceHeader, "phone-1")
		req.Header.Set("User-Agent", "stsync/test")
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	entries, err := logger.Entries("phone-1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "/zip", entries[0].Endpoint)
	assert.Equal(t, http.StatusOK, entries[0].Status)
	assert.Equal(t, len("PK-data"), entries[0].Bytes)
	assert.Equal(t, "stsync/test", entries[0].UserAgent)

	assert.Equal(t, "/file", entries[1].Endpoint)
	assert.Equal(t, "chats/a.jsonl", entries[1].File)
	assert.Equal(t, http.StatusNotFound, entries[1].Status)

	_, err = os.Stat(filepath.Join(dir, AnonymousDevice))
	assert.True(t, os.IsNotExist(err))
}
