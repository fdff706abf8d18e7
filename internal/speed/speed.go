// Package speed adjusts the simulation tick period from keyboard input.
package speed

import "time"

const (
	// MinPeriod is the fastest allowed tick period.
	MinPeriod = 0
	// MaxPeriod is the slowest allowed tick period.
	MaxPeriod = 10 * time.Second
	// FineStep is applied to isolated key presses.
	FineStep = 10 * time.Millisecond
	// CoarseStep is applied when presses repeat within RepeatWindow.
	CoarseStep = 100 * time.Millisecond
	// RepeatWindow separates isolated presses from rapid repeats.
	RepeatWindow = 500 * time.Millisecond
)

// Controller owns the tick period and the time of the last adjustment.
type Controller struct {
	period    time.Duration
	lastPress time.Time
}

// New returns a controller starting at period, clamped to the allowed range.
func New(period time.Duration) *Controller {
	return &Controller{period: clamp(period)}
}

// Period returns the current tick period.
func (c *Controller) Period() time.Duration { return c.period }

// Faster shortens the period and returns the new value.
func (c *Controller) Faster(now time.Time) time.Duration {
	c.period = clamp(c.period - c.step(now))
	return c.period
}

// Slower lengthens the period and returns the new value.
func (c *Controller) Slower(now time.Time) time.Duration {
	c.period = clamp(c.period + c.step(now))
	return c.period
}

func (c *Controller) step(now time.Time) time.Duration {
	step := FineStep
	if !c.lastPress.IsZero() && now.Sub(c.lastPress) <= RepeatWindow {
		step = CoarseStep
	}
	c.lastPress = now
	return step
}

func clamp(d time.Duration) time.Duration {
	if d < MinPeriod {
		return MinPeriod
	}
	if d > MaxPeriod {
		return MaxPeriod
	}
	return d
}
