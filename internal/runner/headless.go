package runner

import (
	"context"
	"time"

	"sandpile/internal/core"
	"sandpile/internal/ui"
)

// StatsEvery is how often drivers push STATS to observers.
const StatsEvery = 250 * time.Millisecond

// HeadlessOptions tunes RunHeadless.
type HeadlessOptions struct {
	// Ticks stops the run once the engine reaches this tick; 0 never stops.
	Ticks uint64
	// ReportEvery is the interval between status log lines.
	ReportEvery time.Duration
	// Frame is the wake-up interval of the loop.
	Frame time.Duration
}

// RunHeadless ticks sess without a display until opts.Ticks is reached or
// ctx is done. Cancellation is a normal stop.
func RunHeadless(ctx context.Context, sess *Session, sinks *Sinks, opts HeadlessOptions) error {
	if opts.Frame <= 0 {
		opts.Frame = 10 * time.Millisecond
	}
	if opts.ReportEvery <= 0 {
		opts.ReportEvery = 5 * time.Second
	}
	eng := sess.Engine()

	frame := time.NewTicker(opts.Frame)
	defer frame.Stop()
	report := time.NewTicker(opts.ReportEvery)
	defer report.Stop()
	stats := time.NewTicker(StatsEvery)
	defer stats.Stop()

	sess.logger.Info("headless run started",
		"width", eng.Size().W, "height", eng.Size().H, "period", sess.Period(), "ticks", opts.Ticks)

	advance := func(now time.Time) bool {
		if opts.Ticks > 0 {
			remaining := opts.Ticks - eng.Ticks()
			if remaining == 0 {
				return true
			}
			sess.clock.SetMaxSteps(int(min(remaining, core.DefaultMaxStepsPerFrame)))
		}
		sess.Advance(now)
		return opts.Ticks > 0 && eng.Ticks() >= opts.Ticks
	}

	if advance(time.Now()) {
		logStatus(sess)
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			logStatus(sess)
			return nil
		case now := <-frame.C:
			if advance(now) {
				logStatus(sess)
				if sinks != nil {
					sinks.PublishStats(sess)
				}
				return nil
			}
		case <-report.C:
			logStatus(sess)
		case <-stats.C:
			if sinks != nil {
				sinks.PublishStats(sess)
			}
		}
	}
}

func logStatus(sess *Session) {
	st := sess.Status()
	sess.logger.Info("status",
		"last", ui.FormatWindow(st.Recent),
		"top", ui.FormatWindow(st.Top),
		"period", st.Period,
		"tick", st.Ticks,
		"cascades", sess.Engine().Cascades())
}
