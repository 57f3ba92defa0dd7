package utils

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"
)

// SessionWriter prefixes every line written to it with a session id, a sequence number and a
// timestamp, so several stsync invocations can share one log file. A trailing partial line is
// held back until its newline arrives or Close is called.
type SessionWriter struct {
	mu      sync.Mutex
	target  io.Writer
	session string
	seq     uint64
	pending []byte
	now     func() time.Time
}

func NewSessionWriter(target io.Writer, session string) *SessionWriter {
	return &SessionWriter{target: target, session: session, now: time.Now}
}

func (w *SessionWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = append(w.pending, p...)
	for {
		i := bytes.IndexByte(w.pending, '\n')
		if i < 0 {
			break
		}
		line := bytes.TrimSuffix(w.pending[:i], []byte{'\r'})
		if err := w.writeLine(line); err != nil {
			return 0, err
		}
		w.pending = w.pending[i+1:]
	}
	return len(p), nil
}

// Close flushes a trailing partial line. The target is left open.
func (w *SessionWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.pending) == 0 {
		return nil
	}
	err := w.writeLine(w.pending)
	w.pending = nil
	return err
}

func (w *SessionWriter) writeLine(line []byte) error {
	w.seq++
	_, err := fmt.Fprintf(w.target, "session=%s seq=%d time=%s %s\n",
		w.session, w.seq, w.now().Format(time.RFC3339Nano), line)
	return err
}
