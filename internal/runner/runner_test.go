package runner

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sandpile/internal/config"
	"sandpile/internal/logging"
	"sandpile/internal/sims/sandpile"
)

func newSession(t *testing.T, w, h int, period time.Duration) *Session {
	t.Helper()
	eng := sandpile.New(sandpile.Config{Width: w, Height: h, Seed: 3})
	return NewSession(eng, period, nil)
}

func TestAdvanceFollowsPeriod(t *testing.T) {
	s := newSession(t, 5, 5, 10*time.Millisecond)
	start := time.Unix(100, 0)
	if n := s.Advance(start); n != 1 {
		t.Fatalf("first frame must run one tick, ran %d", n)
	}
	if n := s.Advance(start.Add(35 * time.Millisecond)); n != 3 {
		t.Fatalf("35ms at 10ms period must run 3 ticks, ran %d", n)
	}
	if s.Engine().Ticks() != 4 {
		t.Fatalf("engine ticks %d", s.Engine().Ticks())
	}
}

func TestPauseAndStep(t *testing.T) {
	s := newSession(t, 5, 5, 10*time.Millisecond)
	s.TogglePause()
	start := time.Unix(100, 0)
	s.Advance(start)
	if n := s.Advance(start.Add(time.Second)); n != 0 || s.Engine().Ticks() != 0 {
		t.Fatalf("paused session ticked: n=%d ticks=%d", n, s.Engine().Ticks())
	}
	s.StepOnce()
	if s.Engine().Ticks() != 1 {
		t.Fatalf("StepOnce must tick while paused, ticks=%d", s.Engine().Ticks())
	}
	s.TogglePause()
	if n := s.Advance(start.Add(time.Second + 20*time.Millisecond)); n != 2 {
		t.Fatalf("resumed session must only count time since the last frame, ran %d", n)
	}
}

func TestSpeedKeysUpdateClock(t *testing.T) {
	s := newSession(t, 3, 3, 50*time.Millisecond)
	var seen []time.Duration
	s.OnPeriod = func(d time.Duration) { seen = append(seen, d) }

	now := time.Unix(200, 0)
	if p := s.Faster(now); p != 40*time.Millisecond {
		t.Fatalf("isolated press must step 10ms, got %v", p)
	}
	if p := s.Slower(now.Add(100 * time.Millisecond)); p != 140*time.Millisecond {
		t.Fatalf("rapid press must step 100ms, got %v", p)
	}
	if s.clock.Period() != 140*time.Millisecond {
		t.Fatalf("clock period %v", s.clock.Period())
	}
	if len(seen) != 2 {
		t.Fatalf("OnPeriod calls %v", seen)
	}
	if st := s.Status(); st.Period != 140*time.Millisecond {
		t.Fatalf("status period %v", st.Period)
	}
}

func TestRunHeadlessStopsAtTicks(t *testing.T) {
	var buf bytes.Buffer
	eng := sandpile.New(sandpile.Config{Width: 6, Height: 6, Seed: 11})
	sess := NewSession(eng, 0, logging.NewLogger("info", &buf))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := RunHeadless(ctx, sess, nil, HeadlessOptions{Ticks: 4321}); err != nil {
		t.Fatalf("RunHeadless: %v", err)
	}
	if eng.Ticks() != 4321 {
		t.Fatalf("expected exactly 4321 ticks, got %d", eng.Ticks())
	}
	if !strings.Contains(buf.String(), "msg=status") || !strings.Contains(buf.String(), "tick=4321") {
		t.Fatalf("final status not logged: %q", buf.String())
	}
}

func TestRunHeadlessStopsOnCancel(t *testing.T) {
	sess := newSession(t, 4, 4, time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := RunHeadless(ctx, sess, nil, HeadlessOptions{}); err != nil {
		t.Fatalf("cancel must be a clean stop, got %v", err)
	}
	if sess.Engine().Ticks() == 0 {
		t.Fatal("engine never ticked")
	}
}

func TestOpenSinksWiresEngine(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Width, cfg.Height, cfg.Seed = 4, 4, 9
	cfg.Sinks.EventLog = filepath.Join(dir, "events")
	cfg.Sinks.IndexDB = filepath.Join(dir, "index.db")

	eng := sandpile.New(sandpile.Config{Width: cfg.Width, Height: cfg.Height, Seed: cfg.Seed})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sinks, err := OpenSinks(ctx, cfg, eng, nil)
	if err != nil {
		t.Fatalf("OpenSinks: %v", err)
	}
	if sinks.RunID == "" || sinks.Events == nil || sinks.Index == nil || sinks.Observer != nil {
		t.Fatalf("unexpected sinks %+v", sinks)
	}
	for range 2000 {
		eng.Tick()
	}
	if err := sinks.Close(eng.Ticks()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if sinks.Events.Written() != eng.Cascades() {
		t.Fatalf("event log has %d records, engine closed %d", sinks.Events.Written(), eng.Cascades())
	}
}
