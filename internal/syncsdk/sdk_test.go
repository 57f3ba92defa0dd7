package syncsdk

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSDK(t *testing.T, handler http.HandlerFunc) *SyncSDK {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	sdk, err := New(srv.URL, 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(sdk.Close)
	return sdk
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func TestNewNormalisesURL(t *testing.T) {
	sdk, err := New("192.168.1.5:9999/", 0)
	require.NoError(t, err)
	assert.Equal(t, "http://192.168.1.5:9999", sdk.BaseURL())
	assert.Equal(t, "http://192.168.1.5:9999/zip", sdk.BundleURL())

	_, err = New("ftp://host", 0)
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	var gotUA, gotDevice string
	sdk := newTestSDK(t, func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get(HeaderUserAgent)
		gotDevice = r.Header.Get(HeaderDeviceId)
		writeJSON(w, http.StatusOK, `{"status":"healthy","timestamp":"now","data_path":"/data","version":"1.0"}`)
	})

	health, err := sdk.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/data", health.DataPath)
	assert.Contains(t, gotUA, "stsync/")
	assert.NotEmpty(t, gotDevice)
}

func TestHealthUnhealthy(t *testing.T) {
	sdk := newTestSDK(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"status":"starting"}`)
	})

	_, err := sdk.Health(context.Background())
	assert.ErrorIs(t, err, ErrUnhealthy)
}

func TestInfo(t *testing.T) {
	sdk := newTestSDK(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":true,"server_info":{"data_path":"/d","port":9999,"host":"0.0.0.0","running":true,"total_size":42,"file_count":3}}`)
	})

	info, err := sdk.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), info.TotalSize)
	assert.Equal(t, 3, info.FileCount)
}

func TestManifest(t *testing.T) {
	sdk := newTestSDK(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/manifest", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"success":true,"manifest":[{"path":"a.txt","size":100,"mtime":1700000000.5,"modified":"x","is_dir":false}],"total_files":1,"generated_at":"now"}`)
	})

	m, err := sdk.Manifest(context.Background())
	require.NoError(t, err)
	require.Len(t, m, 1)
	assert.Equal(t, "a.txt", m[0].Path)
	assert.Equal(t, 1700000000.5, m[0].Mtime)
}

func TestManifestEmpty(t *testing.T) {
	sdk := newTestSDK(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":true,"manifest":[],"total_files":0,"generated_at":"now"}`)
	})

	m, err := sdk.Manifest(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, m)
	assert.Len(t, m, 0)
}

func TestManifestErrorEnvelope(t *testing.T) {
	sdk := newTestSDK(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, `{"success":false,"code":"E_MANIFEST_FAILED","error":"permission denied"}`)
	})

	_, err := sdk.Manifest(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrManifestFailed)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "permission denied", apiErr.Message)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
}

func TestDownloadFile(t *testing.T) {
	sdk := newTestSDK(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("path") {
		case "chats/a.jsonl":
			w.Write([]byte("line one\nline two\n"))
		case "dir":
			writeJSON(w, http.StatusBadRequest, `{"success":false,"code":"E_NOT_REGULAR_FILE","error":"not a file: dir"}`)
		default:
			writeJSON(w, http.StatusNotFound, `{"success":false,"code":"E_FILE_NOT_FOUND","error":"file not found"}`)
		}
	})

	var buf bytes.Buffer
	n, err := sdk.DownloadFile(context.Background(), "chats/a.jsonl", &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(18), n)
	assert.Equal(t, "line one\nline two\n", buf.String())

	buf.Reset()
	_, err = sdk.DownloadFile(context.Background(), "missing.txt", &buf)
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.Equal(t, 0, buf.Len())

	_, err = sdk.DownloadFile(context.Background(), "dir", &buf)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrFileNotFound)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "E_NOT_REGULAR_FILE", apiErr.Code)
	assert.Equal(t, "not a file: dir", apiErr.Message)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestUnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	sdk, err := New(url, time.Second)
	require.NoError(t, err)

	_, err = sdk.Health(context.Background())
	assert.Error(t, err)
}
