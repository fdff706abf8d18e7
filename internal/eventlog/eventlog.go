// Package eventlog appends closed cascades to hourly rotated, zstd
// compressed JSONL files.
package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"sandpile/internal/sims/sandpile"
)

// Prefix names the rotated files: <dir>/cascades-YYYY-MM-DD-HH.jsonl.zst.
const Prefix = "cascades"

const hourLayout = "2006-01-02-15"

// Record is one line of the log.
type Record struct {
	Run  string    `json:"run"`
	Time time.Time `json:"time"`
	sandpile.Cascade
}

// Writer is a sandpile.Sink persisting cascades. It is safe for concurrent
// use.
type Writer struct {
	dir    string
	run    string
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
	written uint64
	err     error
}

// New returns a writer that creates files under dir on first use.
func New(dir, run string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Writer{dir: dir, run: run, logger: logger, now: time.Now}
}

// RecordCascade appends c. Failures are logged once and remembered in Err.
func (w *Writer) RecordCascade(c sandpile.Cascade) {
	if err := w.Write(c); err != nil {
		w.mu.Lock()
		first := w.err == nil
		if first {
			w.err = err
		}
		w.mu.Unlock()
		if first {
			w.logger.Error("event log write failed", "dir", w.dir, "err", err)
		}
	}
}

// Write appends one record for c, rotating when the UTC hour changes.
func (w *Writer) Write(c sandpile.Cascade) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now().UTC()
	hour := now.Format(hourLayout)
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}
	b, err := json.Marshal(Record{Run: w.run, Time: now, Cascade: c})
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	w.written++
	return w.w.Flush()
}

// Written reports how many records were appended.
func (w *Writer) Written() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

// Err returns the first write failure seen by RecordCascade.
func (w *Writer) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Close finishes the current zstd frame and closes the file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

// PathFor returns the file a record written at t lands in.
func PathFor(dir string, t time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s-%s.jsonl.zst", Prefix, t.UTC().Format(hourLayout)))
}

func (w *Writer) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(w.dir, fmt.Sprintf("%s-%s.jsonl.zst", Prefix, hour))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 64*1024)
	w.curHour = hour
	w.logger.Debug("event log rotated", "path", path)
	return nil
}

func (w *Writer) closeLocked() error {
	var err error
	if w.w != nil {
		err = w.w.Flush()
	}
	if w.enc != nil {
		if cerr := w.enc.Close(); err == nil {
			err = cerr
		}
		w.enc = nil
	}
	if w.f != nil {
		if cerr := w.f.Close(); err == nil {
			err = cerr
		}
		w.f = nil
	}
	w.w = nil
	w.curHour = ""
	return err
}
