// Package logger provides log file sinks for the telemetry manager.
package logger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// TailFile is a log file that keeps only its most recent lines. Lines are
// appended as they arrive; once twice the limit has been written since the
// last compaction, the file is rewritten to hold just the newest maxLines.
// A limit of zero or less never compacts.
type TailFile struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	maxLines int
	recent   lineRing
	written  int
}

// OpenTailFile opens or creates path for appending.
func OpenTailFile(path string, maxLines int) (*TailFile, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("cannot open log file %s: %w", path, err)
	}

	t := &TailFile{path: path, file: file, maxLines: maxLines}
	if maxLines > 0 {
		t.recent = newLineRing(maxLines)
	}
	return t, nil
}

// Write implements io.Writer. Each call is expected to carry whole log entries.
func (t *TailFile) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, err := t.file.Write(p)
	if err != nil || t.maxLines <= 0 {
		return n, err
	}

	for line := range strings.SplitSeq(strings.TrimRight(string(p), "\n"), "\n") {
		if line == "" {
			continue
		}
		t.recent.push(line)
		t.written++
	}

	if t.written >= 2*t.maxLines {
		if err := t.compact(); err != nil {
			return n, fmt.Errorf("failed to compact log file: %w", err)
		}
		t.written = t.recent.len()
	}

	return n, nil
}

// Sync flushes the file to disk.
func (t *TailFile) Sync() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.file.Sync()
}

// Close closes the file.
func (t *TailFile) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.file.Close()
}

// compact swaps the file for one holding only the retained lines.
func (t *TailFile) compact() error {
	temp, err := os.CreateTemp(filepath.Dir(t.path), ".compact-*.log")
	if err != nil {
		return err
	}

	_, err = temp.WriteString(strings.Join(t.recent.lines(), "\n") + "\n")
	if err == nil {
		err = temp.Sync()
	}
	if closeErr := temp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(temp.Name(), t.path)
	}
	if err != nil {
		return errors.Join(err, os.Remove(temp.Name()))
	}

	file, err := os.OpenFile(t.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	_ = t.file.Close()
	t.file = file

	return nil
}

// lineRing holds the newest lines up to a fixed count.
type lineRing struct {
	buf  []string
	next int
	full bool
}

func newLineRing(n int) lineRing {
	return lineRing{buf: make([]string, n)}
}

func (r *lineRing) push(line string) {
	r.buf[r.next] = line
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.full = true
	}
}

func (r *lineRing) len() int {
	if r.full {
		return len(r.buf)
	}
	return r.next
}

// lines returns the retained lines oldest first.
func (r *lineRing) lines() []string {
	if !r.full {
		return append([]string(nil), r.buf[:r.next]...)
	}
	return append(append([]string(nil), r.buf[r.next:]...), r.buf[:r.next]...)
}
