package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/stlauncher/stsync/internal/manifest"
)

func (c *Client) syncIncremental(ctx context.Context, r *syncRun) error {
	r.logf("Starting incremental sync")

	remote, err := c.sdk.Manifest(ctx)
	if err != nil {
		r.fail("could not fetch remote manifest", err)
		return nil
	}

	local, err := c.builder.Build()
	if err != nil {
		r.fail("could not scan local data", err)
		return nil
	}

	plan := manifest.Diff(local, remote)
	r.result.Plan = plan

	if plan.Empty() {
		r.result.Success = true
		r.logf("Data is already up to date")
		return nil
	}

	r.logf("Need to download %d files (%s)", len(plan.ToDownload), humanize.Bytes(uint64(plan.DownloadSize)))
	r.logf("Need to delete %d files", plan.ToDelete.Cardinality())

	c.applyDeletes(r, plan.DeletePaths())
	c.applyDownloads(ctx, r, plan)

	r.result.Success = true
	r.logf("Incremental sync finished: %d downloaded, %d failed, %d deleted, %d delete errors",
		r.result.Downloaded, r.result.DownloadErrors, r.result.Deleted, r.result.DeleteErrors)
	return nil
}

// applyDeletes removes local files the server no longer has. Failures are counted, not fatal.
func (c *Client) applyDeletes(r *syncRun, paths []string) {
	root := c.config.DataDir
	uniqueParents := make(map[string]struct{})

	for _, relPath := range paths {
		localPath, err := localPathOf(root, relPath)
		if err != nil {
			r.result.DeleteErrors++
			slog.Warn("sync", "op", "delete", "path", relPath, "error", err)
			continue
		}

		err = os.Remove(localPath)
		switch {
		case err == nil:
			r.result.Deleted++
			slog.Info("sync", "op", "delete", "path", relPath)
		case errors.Is(err, os.ErrNotExist):
			r.result.Deleted++
			slog.Debug("sync", "op", "delete", "path", relPath, "message", "file was already deleted")
		default:
			r.result.DeleteErrors++
			r.logf("Failed to delete %s: %v", relPath, err)
		}

		uniqueParents[filepath.Dir(localPath)] = struct{}{}
	}

	for parent := range uniqueParents {
		cleanupEmptyParentDirs(parent, root)
	}
}

// applyDownloads fetches planned files one at a time. Failures are counted, not fatal.
func (c *Client) applyDownloads(ctx context.Context, r *syncRun, plan *manifest.SyncPlan) {
	total := len(plan.ToDownload)
	step := max(total/10, 1)
	var done int64

	for i, entry := range plan.ToDownload {
		if ctx.Err() != nil {
			r.result.DownloadErrors += total - i
			r.logf("Download cancelled with %d files left", total-i)
			return
		}

		n, err := c.downloadFile(ctx, entry)
		if err != nil {
			r.result.DownloadErrors++
			r.logf("Failed to download %s: %v", entry.Path, err)
		} else {
			r.result.Downloaded++
			r.result.Bytes += n
			done += entry.Size
			slog.Info("sync", "op", "download", "path", entry.Path, "size", humanize.Bytes(uint64(n)))
		}

		if count := i + 1; count%step == 0 || count == total {
			r.logf("Progress: %d/%d (%.1f%%) - %s/%s", count, total, float64(count)*100/float64(total),
				humanize.Bytes(uint64(done)), humanize.Bytes(uint64(plan.DownloadSize)))
		}
	}
}

// downloadFile writes one remote file into a temporary sibling, renames it into place and
// stamps it with the remote mtime so the next diff sees it as synced
func (c *Client) downloadFile(ctx context.Context, entry manifest.Entry) (int64, error) {
	localPath, err := localPathOf(c.config.DataDir, entry.Path)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return 0, fmt.Errorf("create parent: %w", err)
	}

	tmpPath := localPath + manifest.TempSuffix
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}

	success := false
	defer func() {
		if !success {
			tmpFile.Close()
			os.Remove(tmpPath)
		}
	}()

	n, err := c.sdk.DownloadFile(ctx, entry.Path, tmpFile)
	if err != nil {
		return n, err
	}

	if err := tmpFile.Close(); err != nil {
		return n, fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, localPath); err != nil {
		return n, fmt.Errorf("rename temp file: %w", err)
	}
	success = true

	modTime := manifest.TimeOf(entry.Mtime)
	if err := os.Chtimes(localPath, modTime, modTime); err != nil {
		return n, fmt.Errorf("set mtime: %w", err)
	}

	return n, nil
}
