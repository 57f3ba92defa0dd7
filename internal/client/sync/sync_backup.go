package sync

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/stlauncher/stsync/internal/client/config"
	"github.com/stlauncher/stsync/internal/utils"
)

const backupTimeFormat = "20060102_150405"

// backupDir copies the data directory to a timestamped sibling.
// An empty or missing data directory needs no backup and returns an empty path.
func (c *Client) backupDir(r *syncRun) (string, error) {
	root := c.config.DataDir

	empty, err := utils.IsDirEmpty(root)
	if err != nil {
		return "", err
	}
	if empty {
		r.logf("No local data to back up")
		return "", nil
	}

	backupPath := nextBackupPath(root, time.Now())
	r.logf("Backing up local data to %s", backupPath)

	if err := utils.CopyDir(root, backupPath); err != nil {
		os.RemoveAll(backupPath)
		return "", err
	}

	return backupPath, nil
}

// restoreBackup puts the backup back in place of a partially written data directory
func (c *Client) restoreBackup(r *syncRun, backupPath string) error {
	root := c.config.DataDir
	r.logf("Restoring backup from %s", backupPath)

	if err := os.RemoveAll(root); err != nil {
		return fmt.Errorf("remove partial data: %w", err)
	}

	if err := utils.CopyDir(backupPath, root); err != nil {
		return fmt.Errorf("copy backup: %w", err)
	}

	r.result.Restored = true
	r.logf("Backup restored")
	return nil
}

// applyRetention prunes backups after a successful sync
func (c *Client) applyRetention(r *syncRun, backupPath string) {
	if backupPath == "" {
		return
	}

	switch c.config.BackupRetention {
	case config.RetentionDeleteOnSuccess:
		if err := os.RemoveAll(backupPath); err != nil {
			slog.Warn("backup retention", "path", backupPath, "error", err)
			return
		}
		r.result.BackupPath = ""
		r.logf("Removed backup %s", backupPath)

	case config.RetentionKeepN:
		backups, err := listBackups(c.config.DataDir)
		if err != nil {
			slog.Warn("backup retention", "error", err)
			return
		}
		for len(backups) > c.config.BackupKeep {
			oldest := backups[0]
			backups = backups[1:]
			if err := os.RemoveAll(oldest); err != nil {
				slog.Warn("backup retention", "path", oldest, "error", err)
				continue
			}
			r.logf("Removed old backup %s", oldest)
		}
	}
}

// nextBackupPath returns <root>.backup.<timestamp>, numbered when a backup from the same second exists
func nextBackupPath(root string, now time.Time) string {
	base := root + ".backup." + now.Format(backupTimeFormat)
	candidate := base
	for i := 1; utils.PathExists(candidate); i++ {
		candidate = fmt.Sprintf("%s_%d", base, i)
	}
	return candidate
}

// listBackups returns the backup directories of root, oldest first
func listBackups(root string) ([]string, error) {
	parent := filepath.Dir(root)
	prefix := filepath.Base(root) + ".backup."

	entries, err := os.ReadDir(parent)
	if err != nil {
		return nil, err
	}

	type backup struct {
		path  string
		stamp string
		seq   int
	}
	var backups []backup
	for _, entry := range entries {
		suffix, ok := strings.CutPrefix(entry.Name(), prefix)
		if !ok || !entry.IsDir() {
			continue
		}
		if len(suffix) < len(backupTimeFormat) {
			continue
		}
		stamp, rest := suffix[:len(backupTimeFormat)], suffix[len(backupTimeFormat):]
		if _, err := time.Parse(backupTimeFormat, stamp); err != nil {
			continue
		}
		b := backup{path: filepath.Join(parent, entry.Name()), stamp: stamp}
		if rest != "" {
			seq, err := strconv.Atoi(strings.TrimPrefix(rest, "_"))
			if err != nil || !strings.HasPrefix(rest, "_") {
				continue
			}
			b.seq = seq
		}
		backups = append(backups, b)
	}

	sort.Slice(backups, func(i, j int) bool {
		if backups[i].stamp != backups[j].stamp {
			return backups[i].stamp < backups[j].stamp
		}
		return backups[i].seq < backups[j].seq
	})

	paths := make([]string, 0, len(backups))
	for _, b := range backups {
		paths = append(paths, b.path)
	}
	return paths, nil
}
