// Package indexdb keeps a queryable SQLite index of runs and the cascades
// they closed. Writes go through a buffered channel drained by one goroutine
// so the ticking loop never waits on disk; when the buffer is full cascades
// are dropped and counted.
package indexdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"sandpile/internal/sims/sandpile"
)

const (
	queueSize     = 65536
	commitEvery   = 1024
	commitMaxWait = 500 * time.Millisecond
)

// Run describes one engine run.
type Run struct {
	ID        string
	Width     int
	Height    int
	Seed      int64
	StartedAt time.Time
	EndedAt   time.Time
	Ticks     uint64
}

// Index is the SQLite-backed cascade index. It implements sandpile.Sink for
// the run started last.
type Index struct {
	db     *sql.DB
	logger *slog.Logger

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	run     atomic.Pointer[string]
	dropped atomic.Uint64
}

type reqKind int

const (
	reqStart reqKind = iota + 1
	reqCascade
	reqFinish
)

type req struct {
	kind    reqKind
	run     Run
	runID   string
	cascade sandpile.Cascade
}

// Open creates or opens the index at path and starts its writer.
func Open(path string, logger *slog.Logger) (*Index, error) {
	if path == "" {
		return nil, errors.New("empty db path")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Index{db: db, logger: logger, ch: make(chan req, queueSize)}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			seed INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT,
			ticks INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS cascades (
			run_id TEXT NOT NULL REFERENCES runs(id),
			seq INTEGER NOT NULL,
			tick INTEGER NOT NULL,
			size INTEGER NOT NULL,
			passes INTEGER NOT NULL,
			origin INTEGER NOT NULL,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS cascades_size ON cascades(run_id, size);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("schema: %w", err)
		}
	}
	return nil
}

// Close drains the queue, commits and closes the database.
func (s *Index) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// StartRun records r and makes it the target of RecordCascade.
func (s *Index) StartRun(r Run) {
	if s == nil || s.closed.Load() {
		return
	}
	id := r.ID
	s.run.Store(&id)
	s.ch <- req{kind: reqStart, run: r}
}

// FinishRun stamps the end time and tick count on the current run.
func (s *Index) FinishRun(ticks uint64, at time.Time) {
	if s == nil || s.closed.Load() {
		return
	}
	id := s.run.Load()
	if id == nil {
		return
	}
	s.ch <- req{kind: reqFinish, runID: *id, run: Run{EndedAt: at, Ticks: ticks}}
}

// RecordCascade queues c for the current run, dropping it when the writer
// is behind.
func (s *Index) RecordCascade(c sandpile.Cascade) {
	if s == nil || s.closed.Load() {
		return
	}
	id := s.run.Load()
	if id == nil {
		return
	}
	select {
	case s.ch <- req{kind: reqCascade, runID: *id, cascade: c}:
	default:
		s.dropped.Add(1)
	}
}

// Dropped reports how many cascades were discarded on a full queue.
func (s *Index) Dropped() uint64 { return s.dropped.Load() }

func (s *Index) loop() {
	ctx := context.Background()

	insertRun, _ := s.db.Prepare(`INSERT OR REPLACE INTO runs(id,width,height,seed,started_at) VALUES(?,?,?,?,?)`)
	insertCascade, _ := s.db.Prepare(`INSERT OR REPLACE INTO cascades(run_id,seq,tick,size,passes,origin) VALUES(?,?,?,?,?,?)`)
	finishRun, _ := s.db.Prepare(`UPDATE runs SET ended_at=?, ticks=? WHERE id=?`)
	defer func() {
		for _, st := range []*sql.Stmt{insertRun, insertCascade, finishRun} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx         *sql.Tx
		opCount    int
		lastCommit = time.Now()
	)
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.logger.Warn("index commit failed", "err", err)
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) {
		if st == nil {
			return
		}
		if tx == nil {
			txx, err := s.db.BeginTx(ctx, nil)
			if err != nil {
				s.logger.Warn("index begin failed", "err", err)
				return
			}
			tx = txx
			lastCommit = time.Now()
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			s.logger.Warn("index write failed", "err", err)
			_ = tx.Rollback()
			tx = nil
			opCount = 0
			return
		}
		opCount++
	}

	ticker := time.NewTicker(commitMaxWait)
	defer ticker.Stop()
	for {
		select {
		case r, ok := <-s.ch:
			if !ok {
				commit()
				return
			}
			switch r.kind {
			case reqStart:
				exec(insertRun, r.run.ID, r.run.Width, r.run.Height, r.run.Seed, r.run.StartedAt.UTC().Format(time.RFC3339Nano))
				// Cascades reference the run row; make it visible at once.
				commit()
			case reqCascade:
				c := r.cascade
				exec(insertCascade, r.runID, int64(c.Seq), int64(c.Tick), c.Size, c.Passes, c.Origin)
			case reqFinish:
				exec(finishRun, r.run.EndedAt.UTC().Format(time.RFC3339Nano), int64(r.run.Ticks), r.runID)
				commit()
			}
			if opCount >= commitEvery {
				commit()
			}
		case <-ticker.C:
			if tx != nil && time.Since(lastCommit) >= commitMaxWait {
				commit()
			}
		}
	}
}
