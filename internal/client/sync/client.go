// Package sync pulls a sync server's data directory into a local directory.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cavaliergopher/grab/v3"
	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"
	"github.com/stlauncher/stsync/internal/client/config"
	"github.com/stlauncher/stsync/internal/manifest"
	"github.com/stlauncher/stsync/internal/syncsdk"
	"github.com/stlauncher/stsync/internal/version"
)

var ErrSyncInProgress = errors.New("another sync is already running on this data directory")

type Option func(*Client)

// WithProgress receives every progress line as it is logged
func WithProgress(fn func(line string)) Option {
	return func(c *Client) {
		c.progress = fn
	}
}

// WithHTTPClient replaces the http client used to download bundles
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// Client reconciles one local data directory with one sync server.
// Only one sync may run against a data directory at a time; this is enforced with a file lock.
type Client struct {
	config     *config.Config
	sdk        *syncsdk.SyncSDK
	builder    *manifest.Builder
	lock       *flock.Flock
	progress   func(string)
	httpClient *http.Client
	grab       *grab.Client
}

func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	sdk, err := syncsdk.New(cfg.ServerURL, cfg.Timeout)
	if err != nil {
		return nil, err
	}

	c := &Client{
		config:  cfg,
		sdk:     sdk,
		builder: manifest.NewBuilder(cfg.DataDir, manifest.WithIgnore(cfg.Ignore...)),
		lock:    flock.New(lockPath(cfg.DataDir)),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = sdk.HTTPClient()
	}
	c.grab = &grab.Client{
		HTTPClient: c.httpClient,
		UserAgent:  version.UserAgent(),
	}

	return c, nil
}

func (c *Client) Config() *config.Config {
	return c.config
}

func (c *Client) Close() {
	c.sdk.Close()
}

// HealthCheck reports whether the server answers its health endpoint
func (c *Client) HealthCheck(ctx context.Context) bool {
	return c.health(ctx) != nil
}

func (c *Client) health(ctx context.Context) *syncsdk.HealthResponse {
	health, err := c.sdk.Health(ctx)
	if err != nil {
		slog.Warn("sync health", "server", c.sdk.BaseURL(), "error", err)
		return nil
	}
	slog.Debug("sync health", "server", c.sdk.BaseURL(), "data_path", health.DataPath, "version", health.Version)
	return health
}

// ServerInfo fetches the server's info. It is for display only and never gates a sync.
func (c *Client) ServerInfo(ctx context.Context) (*syncsdk.ServerInfo, error) {
	return c.sdk.Info(ctx)
}

// SyncBundle replaces the local directory with the server's ZIP bundle
func (c *Client) SyncBundle(ctx context.Context, backup bool) (*Result, error) {
	return c.run(ctx, StrategyBundle, backup, false)
}

// SyncIncremental downloads changed files and deletes files the server no longer has
func (c *Client) SyncIncremental(ctx context.Context) (*Result, error) {
	return c.run(ctx, StrategyIncremental, false, false)
}

// Sync tries the preferred strategy and, when it fails, the other one once
func (c *Client) Sync(ctx context.Context, prefer Strategy, backup bool) (*Result, error) {
	return c.run(ctx, prefer, backup, true)
}

// Pull runs a sync the way a configured method asks for
func (c *Client) Pull(ctx context.Context, method config.Method) (*Result, error) {
	backup := c.config.Backup
	switch method {
	case config.MethodZip:
		return c.SyncBundle(ctx, backup)
	case config.MethodIncremental:
		return c.SyncIncremental(ctx)
	case config.MethodAutoIncremental:
		return c.Sync(ctx, StrategyIncremental, backup)
	case config.MethodAuto, "":
		return c.Sync(ctx, StrategyBundle, backup)
	default:
		return nil, fmt.Errorf("unknown sync method %q", method)
	}
}

func (c *Client) run(ctx context.Context, strategy Strategy, backup bool, fallback bool) (*Result, error) {
	locked, err := c.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("sync lock: %w", err)
	}
	if !locked {
		return nil, ErrSyncInProgress
	}
	defer c.lock.Unlock()

	r := newSyncRun(c.progress, strategy)
	r.logf("Sync started: %s -> %s", c.sdk.BaseURL(), c.config.DataDir)

	health := c.health(ctx)
	if health == nil {
		r.fail("server is not reachable", nil)
		return r.finish(), nil
	}
	r.logf("Server is healthy")
	if !version.Compatible(health.Version) {
		r.logf("Warning: server runs %s %s and this client %s; results may differ", version.AppName, health.Version, version.Version)
	}
	c.logServerInfo(ctx, r)

	if err := c.runStrategy(ctx, r, strategy, backup); err != nil {
		return r.finish(), err
	}

	if !r.result.Success && fallback {
		r.logf("%s sync failed, falling back to %s sync", strategy, strategy.other())
		r.restart(strategy.other())
		if err := c.runStrategy(ctx, r, strategy.other(), backup); err != nil {
			return r.finish(), err
		}
	}

	res := r.finish()
	if res.Success {
		r.logf("Sync complete in %s: %d downloaded, %d deleted, %s",
			res.Duration.Round(time.Millisecond), res.Downloaded, res.Deleted, humanize.Bytes(uint64(res.Bytes)))
	}
	return res, nil
}

func (c *Client) runStrategy(ctx context.Context, r *syncRun, strategy Strategy, backup bool) error {
	if strategy == StrategyBundle {
		return c.syncBundle(ctx, r, backup)
	}
	return c.syncIncremental(ctx, r)
}

func (c *Client) logServerInfo(ctx context.Context, r *syncRun) {
	info, err := c.sdk.Info(ctx)
	if err != nil {
		slog.Debug("sync server info", "error", err)
		return
	}
	r.logf("Server has %d files (%s)", info.FileCount, humanize.Bytes(uint64(info.TotalSize)))
}

// lockPath is a hidden sibling of the data directory, so it is never part of the synced tree
// and survives the directory being replaced during a restore
func lockPath(dataDir string) string {
	return filepath.Join(filepath.Dir(dataDir), "."+filepath.Base(dataDir)+".sync.lock")
}
