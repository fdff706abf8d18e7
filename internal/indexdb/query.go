package indexdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/bits"
	"time"
)

// ErrNoRuns is returned when the index holds no runs.
var ErrNoRuns = errors.New("index has no runs")

// Bucket counts cascades with Lo <= size <= Hi.
type Bucket struct {
	Lo, Hi int
	Count  int
}

// Summary aggregates the cascades of one run.
type Summary struct {
	Run   Run
	Count int
	Mean  float64
	Max   int
	// Histogram has one bucket per power of two: [1,1], [2,3], [4,7], ...
	Histogram []Bucket
}

// Runs lists recorded runs, newest first.
func (s *Index) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,width,height,seed,started_at,COALESCE(ended_at,''),COALESCE(ticks,0) FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r              Run
			started, ended string
			ticks          int64
		)
		if err := rows.Scan(&r.ID, &r.Width, &r.Height, &r.Seed, &started, &ended, &ticks); err != nil {
			return nil, err
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		if ended != "" {
			r.EndedAt, _ = time.Parse(time.RFC3339Nano, ended)
		}
		r.Ticks = uint64(ticks)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Summarize aggregates the cascades of run id; an empty id picks the most
// recent run.
func (s *Index) Summarize(ctx context.Context, id string) (Summary, error) {
	runs, err := s.Runs(ctx)
	if err != nil {
		return Summary{}, err
	}
	if len(runs) == 0 {
		return Summary{}, ErrNoRuns
	}
	var sum Summary
	if id == "" {
		sum.Run = runs[0]
	} else {
		found := false
		for _, r := range runs {
			if r.ID == id {
				sum.Run, found = r, true
				break
			}
		}
		if !found {
			return Summary{}, fmt.Errorf("run %q: %w", id, sql.ErrNoRows)
		}
	}

	rows, err := s.db.QueryContext(ctx, `SELECT size FROM cascades WHERE run_id=?`, sum.Run.ID)
	if err != nil {
		return Summary{}, err
	}
	defer rows.Close()

	var total int64
	for rows.Next() {
		var size int
		if err := rows.Scan(&size); err != nil {
			return Summary{}, err
		}
		if size <= 0 {
			continue
		}
		sum.Count++
		total += int64(size)
		sum.Max = max(sum.Max, size)
		k := bits.Len(uint(size)) - 1
		for len(sum.Histogram) <= k {
			n := len(sum.Histogram)
			sum.Histogram = append(sum.Histogram, Bucket{Lo: 1 << n, Hi: 1<<(n+1) - 1})
		}
		sum.Histogram[k].Count++
	}
	if err := rows.Err(); err != nil {
		return Summary{}, err
	}
	if sum.Count > 0 {
		sum.Mean = float64(total) / float64(sum.Count)
	}
	return sum, nil
}
