package sync

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var ErrUnsafePath = errors.New("path escapes the data directory")

// localPathOf maps a slash separated manifest path onto the data directory.
// Paths that would leave the directory are rejected.
func localPathOf(root, relPath string) (string, error) {
	if relPath == "" || filepath.IsAbs(relPath) || strings.HasPrefix(relPath, "/") {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, relPath)
	}

	localPath := filepath.Join(root, filepath.FromSlash(relPath))
	rel, err := filepath.Rel(root, localPath)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, relPath)
	}

	return localPath, nil
}

// cleanupEmptyParentDirs removes now-empty directories from dir up to, but not including, root
func cleanupEmptyParentDirs(dir string, root string) {
	currentDir := dir

	for {
		if currentDir == root || !strings.HasPrefix(currentDir, root) {
			break
		}

		if statInfo, statErr := os.Stat(currentDir); statErr != nil || !statInfo.IsDir() {
			break
		}

		dirEntries, err := os.ReadDir(currentDir)
		if err != nil {
			slog.Warn("sync", "op", "cleanup", "path", currentDir, "error", err)
			break
		}

		if len(dirEntries) > 0 {
			break
		}

		if err := os.Remove(currentDir); err != nil {
			slog.Warn("sync", "op", "cleanup", "path", currentDir, "error", err)
			break
		}
		slog.Debug("sync", "op", "cleanup", "path", currentDir)

		currentDir = filepath.Dir(currentDir)
	}
}
