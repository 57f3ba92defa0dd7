// Package accesslog records which device pulled what from the sync server, one JSON line per
// transfer, in a size-rotated log directory per device.
package accesslog

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

const (
	MaxLogSize        = 10 * 1024 * 1024 // 10MB
	MaxLogFiles       = 5
	LogFilePermission = 0o600
	LogDirPermission  = 0o700

	AnonymousDevice = "anonymous"
)

type Logger struct {
	baseDir string
	mu      sync.Mutex
	writers map[string]*deviceWriter
}

func New(baseDir string) (*Logger, error) {
	if err := os.MkdirAll(baseDir, LogDirPermission); err != nil {
		return nil, fmt.Errorf("access log directory: %w", err)
	}

	return &Logger{
		baseDir: baseDir,
		writers: make(map[string]*deviceWriter),
	}, nil
}

func (l *Logger) Dir() string {
	return l.baseDir
}

// Log appends the entry to its device's log. Failures are reported through slog only.
func (l *Logger) Log(entry Entry) {
	if entry.Device == "" {
		entry.Device = AnonymousDevice
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	entry.Timestamp = entry.Timestamp.UTC()

	writer, err := l.writer(entry.Device)
	if err == nil {
		err = writer.write(entry)
	}
	if err != nil {
		slog.Error("access log write", "device", entry.Device, "endpoint", entry.Endpoint, "error", err)
	}
}

func (l *Logger) writer(device string) (*deviceWriter, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if w, ok := l.writers[device]; ok {
		return w, nil
	}

	dir := filepath.Join(l.baseDir, sanitizeDevice(device))
	if err := os.MkdirAll(dir, LogDirPermission); err != nil {
		return nil, fmt.Errorf("device log directory: %w", err)
	}

	w := &deviceWriter{dir: dir}
	if err := w.open(); err != nil {
		return nil, err
	}
	l.writers[device] = w
	return w, nil
}

// Close closes every open log file. The logger may be used again afterwards.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for device, w := range l.writers {
		if err := w.close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(l.writers, device)
	}
	return firstErr
}

// Entries returns up to limit of the device's most recent entries, oldest first
func (l *Logger) Entries(device string, limit int) ([]Entry, error) {
	dir := filepath.Join(l.baseDir, sanitizeDevice(device))
	files, err := logFiles(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, err
	}

	var entries []Entry
	for i := len(files) - 1; i >= 0 && len(entries) < limit; i-- {
		fileEntries, err := readEntries(filepath.Join(dir, files[i]))
		if err != nil {
			slog.Warn("access log read", "file", files[i], "error", err)
			continue
		}
		entries = append(fileEntries, entries...)
	}

	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

// Devices lists the devices that have a transfer log, sorted by name
func (l *Logger) Devices() ([]string, error) {
	dirEntries, err := os.ReadDir(l.baseDir)
	if err != nil {
		return nil, err
	}

	devices := make([]string, 0, len(dirEntries))
	for _, e := range dirEntries {
		if e.IsDir() {
			devices = append(devices, e.Name())
		}
	}
	sort.Strings(devices)
	return devices, nil
}

type deviceWriter struct {
	mu   sync.Mutex
	dir  string
	path string
	file *os.File
	size int64
}

func (w *deviceWriter) open() error {
	path := filepath.Join(w.dir, "access.log")

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, LogFilePermission)
	if err != nil {
		return fmt.Errorf("open access log: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("stat access log: %w", err)
	}

	w.file = file
	w.path = path
	w.size = stat.Size()
	return nil
}

func (w *deviceWriter) write(entry Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		if err := w.open(); err != nil {
			return err
		}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal access entry: %w", err)
	}
	data = append(data, '\n')

	if w.size+int64(len(data)) > MaxLogSize {
		if err := w.rotate(); err != nil {
			return fmt.Errorf("rotate access log: %w", err)
		}
	}

	n, err := w.file.Write(data)
	w.size += int64(n)
	return err
}

// rotate moves the active log aside under a timestamped name and drops the oldest beyond MaxLogFiles
func (w *deviceWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return err
	}

	rotated := filepath.Join(w.dir, "access."+time.Now().UTC().Format("20060102_150405.000000000")+".log")
	if err := os.Rename(w.path, rotated); err != nil && !os.IsNotExist(err) {
		return err
	}

	files, err := logFiles(w.dir)
	if err != nil {
		return err
	}
	// the active log is about to be recreated
	for len(files) >= MaxLogFiles {
		if err := os.Remove(filepath.Join(w.dir, files[0])); err != nil {
			return err
		}
		files = files[1:]
	}

	return w.open()
}

func (w *deviceWriter) close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// logFiles lists the log files of a device directory, oldest first with the active log last
func logFiles(dir string) ([]string, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var rotated []string
	active := false
	for _, e := range dirEntries {
		switch name := e.Name(); {
		case e.IsDir():
		case name == "access.log":
			active = true
		case strings.HasPrefix(name, "access.") && strings.HasSuffix(name, ".log"):
			rotated = append(rotated, name)
		}
	}
	sort.Strings(rotated)

	if active {
		rotated = append(rotated, "access.log")
	}
	return rotated, nil
}

func readEntries(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var entries []Entry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, scanner.Err()
}

// sanitizeDevice turns a device id into a safe directory name
func sanitizeDevice(device string) string {
	if device == "" {
		device = AnonymousDevice
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, device)
}
