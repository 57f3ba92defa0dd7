package bundle

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/klauspost/compress/zip"
	"github.com/stlauncher/stsync/internal/manifest"
)

var ErrCorruptArchive = errors.New("corrupt archive")

type ExtractOptions struct {
	// Progress is called with the number of processed entries, roughly every 10%
	Progress func(done, total int)
}

type ExtractResult struct {
	Files   int
	Skipped int
	Bytes   int64
	// Paths holds the slash separated paths written under dest
	Paths mapset.Set[string]
}

// Extract unpacks the archive at archivePath into dest, overwriting existing files.
// Directory entries and entries that would land outside dest are skipped.
func Extract(archivePath, dest string, opts ExtractOptions) (*ExtractResult, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptArchive, err)
	}
	defer r.Close()

	dest, err = filepath.Abs(dest)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	result := &ExtractResult{Paths: mapset.NewThreadUnsafeSet[string]()}
	total := len(r.File)
	step := max(total/10, 1)

	for i, f := range r.File {
		n, relPath, err := extractEntry(f, dest)
		if err != nil {
			return result, err
		}
		switch {
		case relPath != "":
			result.Files++
			result.Bytes += n
			result.Paths.Add(relPath)
		case !f.FileInfo().IsDir():
			result.Skipped++
		}

		if done := i + 1; opts.Progress != nil && (done%step == 0 || done == total) {
			opts.Progress(done, total)
		}
	}

	return result, nil
}

// extractEntry writes one archive entry below dest and returns its relative path.
// An empty path means the entry was skipped.
func extractEntry(f *zip.File, dest string) (int64, string, error) {
	if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
		return 0, "", nil
	}

	relPath, ok := safeRelPath(f.Name)
	if !ok {
		slog.Warn("extract skip", "entry", f.Name, "reason", "outside destination")
		return 0, "", nil
	}

	n, err := extractFile(f, filepath.Join(dest, filepath.FromSlash(relPath)))
	if err != nil {
		return n, "", err
	}
	return n, relPath, nil
}

func extractFile(f *zip.File, target string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, fmt.Errorf("extract mkdir %q: %w", f.Name, err)
	}

	rc, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrCorruptArchive, f.Name, err)
	}
	defer rc.Close()

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return 0, fmt.Errorf("extract create %q: %w", target, err)
	}

	n, err := io.Copy(out, rc)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		if errors.Is(err, zip.ErrChecksum) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, zip.ErrFormat) {
			err = fmt.Errorf("%w: %w", ErrCorruptArchive, err)
		}
		return n, fmt.Errorf("extract %q: %w", f.Name, err)
	}

	modTime := f.Modified
	if mtime, ok := mtimeFromComment(f.Comment); ok {
		modTime = manifest.TimeOf(mtime)
	}
	if !modTime.IsZero() {
		if err := os.Chtimes(target, modTime, modTime); err != nil {
			slog.Warn("extract mtime", "path", f.Name, "error", err)
		}
	}

	return n, nil
}

// safeRelPath cleans an archive entry name and rejects names that escape the destination
func safeRelPath(name string) (string, bool) {
	name = strings.ReplaceAll(name, "\\", "/")
	if path.IsAbs(name) || filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return "", false
	}
	clean := path.Clean(name)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", false
	}
	return clean, true
}
