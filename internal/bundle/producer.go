// Package bundle packs a data directory into a ZIP archive and unpacks such archives.
package bundle

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/stlauncher/stsync/internal/manifest"
)

// entry comments carry the exact mtime, the zip header only keeps whole seconds
const mtimeCommentPrefix = "mtime:"

// Stats summarises one bundle written by a Producer
type Stats struct {
	Files   int
	Skipped int
	Bytes   int64
}

// Producer writes the files selected by a manifest builder into a ZIP stream
type Producer struct {
	builder *manifest.Builder
}

func NewProducer(builder *manifest.Builder) *Producer {
	return &Producer{builder: builder}
}

// WriteTo streams a deflate ZIP of the data directory to w.
// Files that cannot be opened are skipped. An error while copying an entry that was
// already started aborts the archive, since its header is already on the wire.
func (p *Producer) WriteTo(w io.Writer) (*Stats, error) {
	stats := &Stats{}
	zw := zip.NewWriter(w)
	fs := p.builder.Fs()

	err := p.builder.Walk(func(e manifest.Entry, absPath string) error {
		file, err := fs.Open(absPath)
		if err != nil {
			stats.Skipped++
			slog.Warn("bundle skip", "path", e.Path, "error", err)
			return nil
		}
		defer file.Close()

		info, err := file.Stat()
		if err != nil || !info.Mode().IsRegular() {
			stats.Skipped++
			slog.Warn("bundle skip", "path", e.Path, "error", err)
			return nil
		}

		header := &zip.FileHeader{
			Name:     e.Path,
			Method:   zip.Deflate,
			Modified: e.ModTime(),
			Comment:  mtimeCommentPrefix + strconv.FormatFloat(e.Mtime, 'f', 6, 64),
		}
		header.SetMode(info.Mode().Perm())

		dst, err := zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("bundle header %q: %w", e.Path, err)
		}

		n, err := io.Copy(dst, file)
		if err != nil {
			return fmt.Errorf("bundle write %q: %w", e.Path, err)
		}

		stats.Files++
		stats.Bytes += n
		return nil
	})
	if err != nil {
		return stats, err
	}

	if err := zw.Close(); err != nil {
		return stats, fmt.Errorf("bundle close: %w", err)
	}
	return stats, nil
}

// mtimeFromComment returns the mtime recorded by WriteTo, if any
func mtimeFromComment(comment string) (float64, bool) {
	raw, ok := strings.CutPrefix(comment, mtimeCommentPrefix)
	if !ok {
		return 0, false
	}
	mtime, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return mtime, true
}
