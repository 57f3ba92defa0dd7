package manifest

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
	"github.com/spf13/afero"
)

// TempSuffix marks files that are being written and must never be synced
const TempSuffix = ".tmp"

var ErrRootNotDir = errors.New("manifest root is not a directory")

// IsSkipped reports whether a file name is excluded from every manifest
func IsSkipped(name string) bool {
	return IsSkippedDir(name) || strings.HasSuffix(name, TempSuffix)
}

// IsSkippedDir reports whether a directory is pruned from every manifest.
// Only hidden directories are; a directory named like a temp file is walked as usual.
func IsSkippedDir(name string) bool {
	return strings.HasPrefix(name, ".")
}

// WalkFunc receives every entry a Builder includes, along with its absolute path
type WalkFunc func(entry Entry, absPath string) error

type Option func(*Builder)

// WithFs swaps the filesystem the builder walks. Defaults to the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(b *Builder) {
		b.fs = fs
	}
}

// WithIgnore adds gitignore-style patterns on top of the hidden/temp rules
func WithIgnore(patterns ...string) Option {
	return func(b *Builder) {
		if len(patterns) > 0 {
			b.ignore = gitignore.CompileIgnoreLines(patterns...)
		}
	}
}

// Builder produces manifests of a data directory. It never caches: every call walks the tree.
type Builder struct {
	root   string
	fs     afero.Fs
	ignore *gitignore.GitIgnore
}

func NewBuilder(root string, opts ...Option) *Builder {
	b := &Builder{
		root: filepath.Clean(root),
		fs:   afero.NewOsFs(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Builder) Root() string {
	return b.root
}

func (b *Builder) Fs() afero.Fs {
	return b.fs
}

// Build walks the root and returns the manifest sorted by path
func (b *Builder) Build() (Manifest, error) {
	m := Manifest{}
	err := b.Walk(func(e Entry, _ string) error {
		m = append(m, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.Sort()
	return m, nil
}

// Walk visits every file that belongs in the manifest.
// Entries that cannot be stat'ed are omitted; only an unreadable root fails the walk.
func (b *Builder) Walk(fn WalkFunc) error {
	info, err := b.fs.Stat(b.root)
	if err != nil {
		return fmt.Errorf("manifest: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("manifest: %q: %w", b.root, ErrRootNotDir)
	}

	return afero.Walk(b.fs, b.root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			if path == b.root {
				return fmt.Errorf("manifest: %w", walkErr)
			}
			slog.Debug("manifest skip", "path", path, "error", walkErr)
			return nil
		}

		if path == b.root {
			return nil
		}

		relPath, err := filepath.Rel(b.root, path)
		if err != nil {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if info.IsDir() {
			if IsSkippedDir(info.Name()) || b.ignored(relPath+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if IsSkipped(info.Name()) || b.ignored(relPath) {
			return nil
		}

		if info.Mode()&os.ModeSymlink != 0 {
			target, err := b.fs.Stat(path)
			if err != nil {
				slog.Debug("manifest skip", "path", path, "error", err)
				return nil
			}
			info = target
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		return fn(newEntry(relPath, info.Size(), info.ModTime()), path)
	})
}

// TotalSize sums the size of every regular file under the root, hidden and temporary files included
func (b *Builder) TotalSize() (int64, error) {
	var total int64
	err := afero.Walk(b.fs, b.root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			if path == b.root {
				return walkErr
			}
			return nil
		}
		if info.Mode().IsRegular() {
			total += info.Size()
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("manifest: total size: %w", err)
	}
	return total, nil
}

func (b *Builder) ignored(relPath string) bool {
	return b.ignore != nil && b.ignore.MatchesPath(relPath)
}
