package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"sandpile/internal/audio"
	"sandpile/internal/config"
	"sandpile/internal/eventlog"
	"sandpile/internal/indexdb"
	"sandpile/internal/logging"
	"sandpile/internal/observer"
	"sandpile/internal/sims/sandpile"
)

// Sinks holds the optional cascade consumers of one run.
type Sinks struct {
	RunID    string
	Events   *eventlog.Writer
	Index    *indexdb.Index
	Observer *observer.Server
	Audio    *audio.Player

	logger *slog.Logger
}

// OpenSinks starts every sink enabled in cfg and registers it with eng.
// The observer stops when ctx is cancelled.
func OpenSinks(ctx context.Context, cfg *config.Config, eng *sandpile.Engine, logger *slog.Logger) (*Sinks, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Sinks{RunID: uuid.NewString(), logger: logger}
	size := eng.Size()

	if cfg.Sinks.EventLog != "" {
		s.Events = eventlog.New(cfg.Sinks.EventLog, s.RunID, logger)
		eng.AddSink(s.Events)
	}
	if cfg.Sinks.IndexDB != "" {
		idx, err := indexdb.Open(cfg.Sinks.IndexDB, logger)
		if err != nil {
			_ = s.Close(0)
			return nil, fmt.Errorf("open index: %w", err)
		}
		s.Index = idx
		idx.StartRun(indexdb.Run{
			ID:        s.RunID,
			Width:     size.W,
			Height:    size.H,
			Seed:      cfg.Seed,
			StartedAt: time.Now(),
		})
		eng.AddSink(idx)
	}
	if cfg.Sinks.Observe != "" {
		obs := observer.New(observer.Bootstrap{
			Run:      s.RunID,
			Width:    size.W,
			Height:   size.H,
			PeriodMs: cfg.Period().Milliseconds(),
		}, logger)
		if _, err := obs.Start(ctx, cfg.Sinks.Observe); err != nil {
			_ = s.Close(0)
			return nil, fmt.Errorf("observer: %w", err)
		}
		s.Observer = obs
		eng.AddSink(obs)
	}
	if cfg.Sinks.Audio {
		p := audio.NewPlayer(logger)
		if err := p.Initialize(); err != nil {
			logger.Warn("audio disabled", "err", err)
		} else {
			s.Audio = p
			eng.AddSink(p)
		}
	}
	return s, nil
}

// Attach routes period changes of sess to the sinks that report it.
func (s *Sinks) Attach(sess *Session) {
	if s.Observer == nil {
		return
	}
	sess.OnPeriod = s.Observer.SetPeriod
}

// PublishStats pushes the statistics windows of sess to observers.
func (s *Sinks) PublishStats(sess *Session) {
	if s.Observer == nil {
		return
	}
	eng := sess.Engine()
	s.Observer.PublishStats(observer.StatsMsg{
		Tick:     eng.Ticks(),
		Recent:   eng.Recent(),
		Top:      eng.Top(),
		Open:     eng.CascadeTotal(),
		PeriodMs: sess.Period().Milliseconds(),
	})
}

// Close stamps the run end and shuts every sink down.
func (s *Sinks) Close(ticks uint64) error {
	var errs []error
	if s.Audio != nil {
		s.Audio.Close()
	}
	if s.Events != nil {
		errs = append(errs, s.Events.Close())
	}
	if s.Index != nil {
		s.Index.FinishRun(ticks, time.Now())
		if n := s.Index.Dropped(); n > 0 {
			s.logger.Warn("index dropped cascades", "count", n)
		}
		errs = append(errs, s.Index.Close())
	}
	return errors.Join(errs...)
}
