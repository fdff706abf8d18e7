// Package runner owns the per-run loop state shared by every display
// driver: the engine, the speed controller and the fixed-step clock.
package runner

import (
	"context"
	"log/slog"
	"time"

	"sandpile/internal/core"
	"sandpile/internal/logging"
	"sandpile/internal/sims/sandpile"
	"sandpile/internal/speed"
	"sandpile/internal/ui"
)

// Session advances one engine in real time. It is driven from a single
// goroutine (the driver's frame loop) and is not safe for concurrent use.
type Session struct {
	eng    *sandpile.Engine
	speed  *speed.Controller
	clock  *core.FixedStep
	logger *slog.Logger
	paused bool

	// OnPeriod, when set, observes every period change.
	OnPeriod func(time.Duration)
}

// NewSession wraps eng with a speed controller starting at period.
func NewSession(eng *sandpile.Engine, period time.Duration, logger *slog.Logger) *Session {
	if logger == nil {
		logger = logging.Discard()
	}
	ctl := speed.New(period)
	return &Session{
		eng:    eng,
		speed:  ctl,
		clock:  core.NewFixedStep(ctl.Period()),
		logger: logger,
	}
}

// Engine returns the driven engine.
func (s *Session) Engine() *sandpile.Engine { return s.eng }

// Period returns the current tick period.
func (s *Session) Period() time.Duration { return s.speed.Period() }

// Paused reports whether Advance is suspended.
func (s *Session) Paused() bool { return s.paused }

// TogglePause suspends or resumes Advance.
func (s *Session) TogglePause() {
	s.paused = !s.paused
	s.logger.Debug("pause toggled", "paused", s.paused)
}

// Faster shortens the period.
func (s *Session) Faster(now time.Time) time.Duration {
	return s.setPeriod(s.speed.Faster(now))
}

// Slower lengthens the period.
func (s *Session) Slower(now time.Time) time.Duration {
	return s.setPeriod(s.speed.Slower(now))
}

func (s *Session) setPeriod(p time.Duration) time.Duration {
	s.clock.SetPeriod(p)
	s.logger.Info("period changed", "period", p)
	if s.OnPeriod != nil {
		s.OnPeriod(p)
	}
	return p
}

// Advance runs the ticks that fell due by now and returns how many ran.
// While paused the clock keeps moving but no ticks run.
func (s *Session) Advance(now time.Time) int {
	due := s.clock.Due(now)
	if s.paused {
		return 0
	}
	for range due {
		s.tick()
	}
	return due
}

// Reset empties the board and statistics; seed 0 reuses the configured
// seed.
func (s *Session) Reset(seed int64) {
	s.eng.Reset(seed)
	s.logger.Info("board reset", "seed", seed)
}

// StepOnce runs a single tick regardless of pause or period.
func (s *Session) StepOnce() sandpile.TickResult { return s.tick() }

func (s *Session) tick() sandpile.TickResult {
	res := s.eng.Tick()
	if s.logger.Enabled(context.Background(), logging.LevelTrace) {
		s.logger.Log(context.Background(), logging.LevelTrace, "tick",
			"tick", s.eng.Ticks(), "toppled", res.Toppled, "injected", res.Injected)
	}
	if res.Closed {
		s.logger.Debug("cascade closed",
			"seq", res.Cascade.Seq, "size", res.Cascade.Size, "passes", res.Cascade.Passes)
	}
	return res
}

// Status snapshots the statistics panel.
func (s *Session) Status() ui.Status {
	return ui.Snapshot(s.eng, s.speed.Period(), s.paused)
}
