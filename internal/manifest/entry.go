// Package manifest lists the files of a data directory and diffs two listings into a sync plan.
package manifest

import (
	"math"
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
)

// Entry describes one file of a data directory
type Entry struct {
	Path     string  `json:"path"`
	Size     int64   `json:"size"`
	Mtime    float64 `json:"mtime"`
	Modified string  `json:"modified"`
	IsDir    bool    `json:"is_dir"`
}

// ModTime returns the entry mtime as a time.Time
func (e Entry) ModTime() time.Time {
	return TimeOf(e.Mtime)
}

// Manifest is a point-in-time listing of a data directory. Order is irrelevant.
type Manifest []Entry

func (m Manifest) ByPath() map[string]Entry {
	byPath := make(map[string]Entry, len(m))
	for _, e := range m {
		byPath[e.Path] = e
	}
	return byPath
}

func (m Manifest) Paths() mapset.Set[string] {
	paths := mapset.NewThreadUnsafeSetWithSize[string](len(m))
	for _, e := range m {
		paths.Add(e.Path)
	}
	return paths
}

func (m Manifest) TotalSize() int64 {
	var total int64
	for _, e := range m {
		total += e.Size
	}
	return total
}

// Sort orders the manifest by path in place
func (m Manifest) Sort() {
	sort.Slice(m, func(i, j int) bool { return m[i].Path < m[j].Path })
}

// mtimes travel as float seconds. Everything is pinned to whole microseconds so that a value
// written with os.Chtimes and read back compares equal to the value it was written from.

// MtimeOf converts a modification time to float seconds since the epoch
func MtimeOf(t time.Time) float64 {
	return float64(t.UnixMicro()) / 1e6
}

// TimeOf converts float seconds since the epoch back to a time.Time
func TimeOf(mtime float64) time.Time {
	return time.UnixMicro(micros(mtime))
}

// Newer reports whether mtime a is strictly later than mtime b
func Newer(a, b float64) bool {
	return micros(a) > micros(b)
}

func micros(mtime float64) int64 {
	return int64(math.Round(mtime * 1e6))
}

func newEntry(relPath string, size int64, modTime time.Time) Entry {
	mtime := MtimeOf(modTime)
	return Entry{
		Path:     relPath,
		Size:     size,
		Mtime:    mtime,
		Modified: TimeOf(mtime).Format("2006-01-02T15:04:05.000000"),
		IsDir:    false,
	}
}
