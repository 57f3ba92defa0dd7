package sync

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cavaliergopher/grab/v3"
	"github.com/dustin/go-humanize"
	"github.com/stlauncher/stsync/internal/bundle"
	"github.com/stlauncher/stsync/internal/syncsdk"
	"github.com/stlauncher/stsync/internal/utils"
)

const downloadProgressInterval = 2 * time.Second

// syncBundle replaces the local data with the server's bundle.
// When a backup was taken and the download or extraction fails, the backup is restored;
// only a failed restore is returned as an error.
func (c *Client) syncBundle(ctx context.Context, r *syncRun, backup bool) error {
	r.logf("Starting full bundle sync")

	wasEmpty, err := utils.IsDirEmpty(c.config.DataDir)
	if err != nil {
		r.fail("could not read local data", err)
		return nil
	}

	var backupPath string
	if backup {
		path, err := c.backupDir(r)
		if err != nil {
			r.fail("backup failed, local data left untouched", err)
			return nil
		}
		backupPath = path
		r.result.BackupPath = path
	}

	tmpDir, err := os.MkdirTemp("", "stsync-bundle-*")
	if err != nil {
		r.fail("could not create temp directory", err)
		return nil
	}
	defer os.RemoveAll(tmpDir)

	archivePath := filepath.Join(tmpDir, "data.zip")

	extracted, err := c.downloadAndExtract(ctx, r, archivePath)
	if err != nil {
		r.fail("bundle sync failed", err)
		switch {
		case backupPath != "":
			if restoreErr := c.restoreBackup(r, backupPath); restoreErr != nil {
				return fmt.Errorf("restore backup %s: %w", backupPath, restoreErr)
			}
		case wasEmpty:
			c.clearPartial(r)
		case extracted != nil && extracted.Files > 0:
			r.result.Partial = true
			r.log.Warn(fmt.Sprintf("Local data may be partial: %d files were overwritten and no backup was taken", extracted.Files))
		}
		return nil
	}

	r.result.Downloaded = extracted.Files
	r.result.Bytes = extracted.Bytes
	c.pruneExtras(r, extracted)

	r.result.Success = true
	r.logf("Bundle sync finished: %d files (%s), %d removed", extracted.Files, humanize.Bytes(uint64(extracted.Bytes)), r.result.Deleted)

	c.applyRetention(r, backupPath)
	return nil
}

func (c *Client) downloadAndExtract(ctx context.Context, r *syncRun, archivePath string) (*bundle.ExtractResult, error) {
	if err := c.downloadBundle(ctx, r, archivePath); err != nil {
		return nil, err
	}

	r.logf("Extracting bundle into %s", c.config.DataDir)
	if err := utils.EnsureDir(c.config.DataDir); err != nil {
		return nil, err
	}

	extracted, err := bundle.Extract(archivePath, c.config.DataDir, bundle.ExtractOptions{
		Progress: func(done, total int) {
			r.logf("Extracting: %d/%d (%.0f%%)", done, total, float64(done)*100/float64(total))
		},
	})
	if err != nil {
		return extracted, err
	}

	if err := os.Remove(archivePath); err != nil {
		slog.Debug("bundle cleanup", "path", archivePath, "error", err)
	}

	return extracted, nil
}

// downloadBundle streams the ZIP bundle to archivePath, logging progress periodically
func (c *Client) downloadBundle(ctx context.Context, r *syncRun, archivePath string) error {
	req, err := grab.NewRequest(archivePath, c.sdk.BundleURL())
	if err != nil {
		return fmt.Errorf("bundle request: %w", err)
	}
	req = req.WithContext(ctx)
	req.NoResume = true
	req.HTTPRequest.Header.Set(syncsdk.HeaderDeviceId, utils.HWID)

	r.logf("Downloading bundle from %s", c.sdk.BundleURL())
	resp := c.grab.Do(req)

	ticker := time.NewTicker(downloadProgressInterval)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ticker.C:
			if resp.Size() > 0 {
				r.logf("Downloading: %s/%s (%.0f%%)",
					humanize.Bytes(uint64(resp.BytesComplete())), humanize.Bytes(uint64(resp.Size())), resp.Progress()*100)
			} else {
				r.logf("Downloading: %s", humanize.Bytes(uint64(resp.BytesComplete())))
			}
		case <-resp.Done:
			break loop
		}
	}

	if err := resp.Err(); err != nil {
		return fmt.Errorf("bundle download: %w", err)
	}

	r.logf("Downloaded bundle: %s in %s", humanize.Bytes(uint64(resp.BytesComplete())), resp.Duration().Round(time.Millisecond))
	return nil
}

// pruneExtras deletes local files the bundle did not contain, so the directory
// mirrors the server afterwards. Hidden and ignored files are never touched.
func (c *Client) pruneExtras(r *syncRun, extracted *bundle.ExtractResult) {
	local, err := c.builder.Build()
	if err != nil {
		slog.Warn("bundle prune", "error", err)
		return
	}

	var extras []string
	for _, entry := range local {
		if !extracted.Paths.Contains(entry.Path) {
			extras = append(extras, entry.Path)
		}
	}

	if len(extras) == 0 {
		return
	}

	r.logf("Removing %d local files not present on the server", len(extras))
	c.applyDeletes(r, extras)
}

// clearPartial empties a data directory that had nothing in it before a failed extraction
func (c *Client) clearPartial(r *syncRun) {
	entries, err := os.ReadDir(c.config.DataDir)
	if err != nil || len(entries) == 0 {
		return
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(c.config.DataDir, e.Name())); err != nil {
			r.result.Partial = true
			r.log.Warn("Local data may be partial: could not remove extracted files", "error", err)
			return
		}
	}
	r.logf("Removed %d partially extracted entries", len(entries))
}
