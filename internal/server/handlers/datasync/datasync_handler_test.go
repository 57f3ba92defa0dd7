package datasync

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stlauncher/stsync/internal/manifest"
	"github.com/stlauncher/stsync/internal/server/handlers/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDataDir(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	mtime := time.Now().Add(-time.Hour)
	files := map[string]string{
		"a.txt":          "hello",
		"chats/c.jsonl":  `{"mes":"hi"}`,
		".hidden/secret": "nope",
	}
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
		require.NoError(t, os.Chtimes(p, mtime, mtime))
	}
	return root
}

func newTestRouter(root string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := New(manifest.NewBuilder(root), "127.0.0.1", 9999)
	r := gin.New()
	r.GET("/health", h.Health)
	r.GET("/manifest", h.Manifest)
	r.GET("/info", h.Info)
	r.GET("/zip", h.Bundle)
	r.HEAD("/zip", h.Bundle)
	r.GET("/file", h.File)
	return r
}

func doGet(r http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestHealth(t *testing.T) {
	root := setupDataDir(t)
	w := doGet(newTestRouter(root), "/health")

	require.Equal(t, http.StatusOK, w.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, root, resp.DataPath)
	assert.NotEmpty(t, resp.Timestamp)
}

func TestManifest(t *testing.T) {
	w := doGet(newTestRouter(setupDataDir(t)), "/manifest")

	require.Equal(t, http.StatusOK, w.Code)
	var resp ManifestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.TotalFiles)
	require.Len(t, resp.Manifest, 2)
	assert.Equal(t, "a.txt", resp.Manifest[0].Path)
	assert.Equal(t, "chats/c.jsonl", resp.Manifest[1].Path)
}

func TestManifestFailureEnvelope(t *testing.T) {
	root := setupDataDir(t)
	r := newTestRouter(root)
	require.NoError(t, os.RemoveAll(root))

	w := doGet(r, "/manifest")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, api.CodeManifestFailed, resp.Code)
	assert.NotEmpty(t, resp.Message)
}

func TestInfo(t *testing.T) {
	w := doGet(newTestRouter(setupDataDir(t)), "/info")

	require.Equal(t, http.StatusOK, w.Code)
	var resp InfoResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.ServerInfo)
	assert.Equal(t, 2, resp.ServerInfo.FileCount)
	assert.Equal(t, int64(len("hello")+len(`{"mes":"hi"}`)+len("nope")), resp.ServerInfo.TotalSize)
	assert.Equal(t, 9999, resp.ServerInfo.Port)
	assert.True(t, resp.ServerInfo.Running)
}

func TestFile(t *testing.T) {
	r := newTestRouter(setupDataDir(t))

	t.Run("serves file bytes", func(t *testing.T) {
		w := doGet(r, "/file?path=a.txt")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "hello", w.Body.String())
		assert.NotEmpty(t, w.Header().Get("X-File-Mtime"))
	})

	t.Run("nested path", func(t *testing.T) {
		w := doGet(r, "/file?path=chats/c.jsonl")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, `{"mes":"hi"}`, w.Body.String())
	})

	t.Run("missing path parameter", func(t *testing.T) {
		w := doGet(r, "/file")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing file", func(t *testing.T) {
		w := doGet(r, "/file?path=nope.txt")
		assert.Equal(t, http.StatusNotFound, w.Code)

		var resp api.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, api.CodeFileNotFound, resp.Code)
	})

	t.Run("directory is not a file", func(t *testing.T) {
		w := doGet(r, "/file?path=chats")
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp api.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, api.CodeNotRegularFile, resp.Code)
	})
}

func TestFileTraversal(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "data")
	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(parent, "outside.txt"), []byte("secret"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "passwd"), []byte("inside"), 0o644))

	r := newTestRouter(root)
	for _, p := range []string{
		"../outside.txt",
		"../../etc/passwd",
		"..%2F..%2Foutside.txt",
		"..\\outside.txt",
		"/etc/passwd",
	} {
		w := doGet(r, "/file?path="+p)
		assert.NotContains(t, w.Body.String(), "secret", p)
		if w.Code == http.StatusOK {
			assert.Equal(t, "inside", w.Body.String(), p)
		}
	}
}

func TestBundleHeaders(t *testing.T) {
	r := newTestRouter(setupDataDir(t))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodHead, "/zip", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))
	assert.Equal(t, 0, w.Body.Len())

	w = doGet(r, "/zip")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `inline; filename="data.zip"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "PK", w.Body.String()[:2])
}

func TestCleanRelPath(t *testing.T) {
	cases := map[string]string{
		"a.txt":            "a.txt",
		"/a.txt":           "a.txt",
		"../../etc/passwd": "etc/passwd",
		"dir\\..\\b.txt":   "b.txt",
		"x/./y//z":         "x/y/z",
	}
	for in, want := range cases {
		got, ok := CleanRelPath(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "/", "..", "../.."} {
		_, ok := CleanRelPath(in)
		assert.False(t, ok, in)
	}
}
