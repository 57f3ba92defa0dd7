// Package syncsdk is the HTTP client of the sync server endpoints.
package syncsdk

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/imroc/req/v3"
	"github.com/stlauncher/stsync/internal/manifest"
	"github.com/stlauncher/stsync/internal/utils"
	"github.com/stlauncher/stsync/internal/version"
)

const DefaultTimeout = 30 * time.Second

// SyncSDK talks to one sync server
type SyncSDK struct {
	baseURL string
	client  *req.Client
	// stream has no overall deadline so large files are not cut off; stalls are bounded
	// by the response header timeout and the caller's context
	stream *req.Client
}

// New creates a client for the server at baseURL. A bare host:port is accepted.
func New(baseURL string, timeout time.Duration) (*SyncSDK, error) {
	baseURL, err := utils.NormalizeServerURL(baseURL)
	if err != nil {
		return nil, fmt.Errorf("sdk: %w", err)
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := req.C().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetCommonRetryCount(2).
		SetCommonRetryFixedInterval(500*time.Millisecond).
		SetUserAgent(version.UserAgent()).
		SetCommonHeader(HeaderVersion, version.Version).
		SetCommonHeader(HeaderDeviceId, utils.HWID).
		SetCommonErrorResult(&APIError{}).
		SetJsonMarshal(jsonMarshal).
		SetJsonUnmarshal(jsonUnmarshal)
	client.GetTransport().SetResponseHeaderTimeout(timeout)

	return &SyncSDK{
		baseURL: baseURL,
		client:  client,
		stream:  client.Clone().SetTimeout(0),
	}, nil
}

func (s *SyncSDK) BaseURL() string {
	return s.baseURL
}

// BundleURL is the address of the ZIP bundle of the server's data directory
func (s *SyncSDK) BundleURL() string {
	return s.baseURL + pathBundle
}

// HTTPClient returns a plain http client sharing the SDK transport, for downloaders that
// need one. It has no overall timeout.
func (s *SyncSDK) HTTPClient() *http.Client {
	return s.stream.GetClient()
}

// Health returns the server health. A response that does not report "healthy" is an error.
func (s *SyncSDK) Health(ctx context.Context) (*HealthResponse, error) {
	var health HealthResponse
	res, err := s.client.R().
		SetContext(ctx).
		SetSuccessResult(&health).
		Get(pathHealth)

	if err := handleAPIError(res, err, "health"); err != nil {
		return nil, err
	}

	if !health.Healthy() {
		return nil, fmt.Errorf("%w: status %q", ErrUnhealthy, health.Status)
	}

	return &health, nil
}

func (s *SyncSDK) Info(ctx context.Context) (*ServerInfo, error) {
	var info InfoResponse
	res, err := s.client.R().
		SetContext(ctx).
		SetSuccessResult(&info).
		Get(pathInfo)

	if err := handleAPIError(res, err, "info"); err != nil {
		return nil, err
	}

	if !info.Success || info.ServerInfo == nil {
		return nil, fmt.Errorf("sdk: info: %w", ErrBadResponse)
	}

	return info.ServerInfo, nil
}

// Manifest fetches the server's current manifest. An empty manifest is a valid result.
func (s *SyncSDK) Manifest(ctx context.Context) (manifest.Manifest, error) {
	var resp ManifestResponse
	res, err := s.client.R().
		SetContext(ctx).
		SetSuccessResult(&resp).
		Get(pathManifest)

	if err := handleAPIError(res, err, "manifest"); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrManifestFailed, err)
	}

	if !resp.Success {
		return nil, fmt.Errorf("%w: %s", ErrManifestFailed, resp.Error)
	}

	if resp.Manifest == nil {
		resp.Manifest = manifest.Manifest{}
	}

	return resp.Manifest, nil
}

// DownloadFile streams the file at relPath into w and returns the number of bytes written
func (s *SyncSDK) DownloadFile(ctx context.Context, relPath string, w io.Writer) (int64, error) {
	res, err := s.stream.R().
		SetContext(ctx).
		SetQueryParam("path", relPath).
		DisableAutoReadResponse().
		Get(pathFile)
	if err != nil {
		return 0, fmt.Errorf("sdk: download %q: %w", relPath, err)
	}
	defer res.Body.Close()

	if res.IsErrorState() {
		return 0, fmt.Errorf("sdk: download %q: %w", relPath, decodeAPIError(res))
	}

	n, err := io.Copy(w, res.Body)
	if err != nil {
		return n, fmt.Errorf("sdk: download %q: %w", relPath, err)
	}

	if res.ContentLength >= 0 && n != res.ContentLength {
		return n, fmt.Errorf("sdk: download %q: short body %d of %d bytes: %w", relPath, n, res.ContentLength, io.ErrUnexpectedEOF)
	}

	return n, nil
}

func (s *SyncSDK) Close() {
	s.client.GetClient().CloseIdleConnections()
	s.stream.GetClient().CloseIdleConnections()
}
