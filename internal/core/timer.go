package core

import "time"

// DefaultMaxStepsPerFrame bounds how many ticks a single frame may run.
const DefaultMaxStepsPerFrame = 2000

// FixedStep converts a tick period into a number of due ticks per frame.
// A zero period means "as fast as possible": every frame runs the cap.
type FixedStep struct {
	period      time.Duration
	accumulator time.Duration
	last        time.Time
	maxSteps    int
}

// NewFixedStep constructs a FixedStep controller for the given period. The
// first call to Due reports one tick so the simulation starts immediately.
func NewFixedStep(period time.Duration) *FixedStep {
	fs := &FixedStep{maxSteps: DefaultMaxStepsPerFrame}
	fs.SetPeriod(period)
	fs.accumulator = fs.period
	return fs
}

// SetPeriod changes the tick period. It is safe to call from the main loop.
func (f *FixedStep) SetPeriod(period time.Duration) {
	if period < 0 {
		period = 0
	}
	f.period = period
	if f.accumulator > period && period > 0 {
		f.accumulator = period
	}
}

// Period reports the current tick period.
func (f *FixedStep) Period() time.Duration { return f.period }

// SetMaxSteps changes the per-frame cap.
func (f *FixedStep) SetMaxSteps(n int) {
	if n <= 0 {
		n = 1
	}
	f.maxSteps = n
}

// Due reports how many ticks should run at time now.
func (f *FixedStep) Due(now time.Time) int {
	if f.last.IsZero() {
		f.last = now
	}
	delta := now.Sub(f.last)
	f.last = now
	if delta < 0 {
		delta = 0
	}
	if f.period == 0 {
		f.accumulator = 0
		return f.maxSteps
	}
	f.accumulator += delta
	n := int(f.accumulator / f.period)
	if n > f.maxSteps {
		// Drop the backlog instead of trying to catch up.
		f.accumulator = 0
		return f.maxSteps
	}
	f.accumulator -= time.Duration(n) * f.period
	return n
}
