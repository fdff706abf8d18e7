// Package sandpile implements the abelian sandpile automaton: a board whose
// cells topple at four grains, a tracker of recent and largest avalanche
// sizes, and the engine that alternates between settling and injecting.
package sandpile

import "sandpile/internal/core"

// Name identifies the simulation in the core registry.
const Name = "sandpile"

// Cascade describes one closed avalanche.
type Cascade struct {
	Seq    uint64 `json:"seq"`
	Tick   uint64 `json:"tick"`
	Size   int    `json:"size"`
	Passes int    `json:"passes"`
	Origin int    `json:"origin"`
}

// Sink receives every closed cascade. Sinks run on the ticking goroutine and
// must not block.
type Sink interface {
	RecordCascade(Cascade)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Cascade)

// RecordCascade calls f(c).
func (f SinkFunc) RecordCascade(c Cascade) { f(c) }

// TickResult reports what a single tick did.
type TickResult struct {
	Toppled int
	// Closed is set when this tick ended a cascade with a nonzero total.
	Closed  bool
	Cascade Cascade
	// Injected is the cell that received a grain, or -1.
	Injected int
}

// Engine drives a Board and a Stats tracker one tick at a time. It is not
// safe for concurrent use; callers that share it must hold one lock for the
// whole tick.
type Engine struct {
	cfg   Config
	board *Board
	stats *Stats
	sinks []Sink

	total  int
	passes int
	origin int
	tick   uint64
	seq    uint64
}

// New returns an engine seeded from cfg.Seed.
func New(cfg Config) *Engine {
	return NewWithSource(cfg, core.NewRNG(cfg.Seed))
}

// NewWithSource returns an engine drawing injection sites from src.
func NewWithSource(cfg Config, src core.IndexSource) *Engine {
	board := NewBoard(cfg.Width, cfg.Height, src)
	size := board.Size()
	cfg.Width, cfg.Height = size.W, size.H
	return &Engine{
		cfg:    cfg,
		board:  board,
		stats:  NewStats(),
		origin: -1,
	}
}

// Name returns the simulation identifier.
func (e *Engine) Name() string { return Name }

// Size returns the grid dimensions.
func (e *Engine) Size() core.Size { return e.board.Size() }

// Cells exposes the live grain counts.
func (e *Engine) Cells() []uint8 { return e.board.Cells() }

// Config returns the configuration the engine was built with.
func (e *Engine) Config() Config { return e.cfg }

// Board exposes the underlying board.
func (e *Engine) Board() *Board { return e.board }

// Recent returns the recent-cascade window, newest first.
func (e *Engine) Recent() []int { return e.stats.Recent() }

// Top returns the largest-cascade window, largest first.
func (e *Engine) Top() []int { return e.stats.Top() }

// CascadeTotal returns the topplings accumulated by the open cascade.
func (e *Engine) CascadeTotal() int { return e.total }

// Ticks returns the number of ticks run since the last reset.
func (e *Engine) Ticks() uint64 { return e.tick }

// Cascades returns the number of cascades closed since the last reset.
func (e *Engine) Cascades() uint64 { return e.seq }

// Settling reports whether a cascade is in progress.
func (e *Engine) Settling() bool { return e.total > 0 }

// AddSink registers s to receive closed cascades.
func (e *Engine) AddSink(s Sink) {
	if s != nil {
		e.sinks = append(e.sinks, s)
	}
}

// Reset empties the board and statistics. A nonzero seed reseeds injection;
// zero falls back to the configured seed.
func (e *Engine) Reset(seed int64) {
	if seed == 0 {
		seed = e.cfg.Seed
	}
	e.board.Clear()
	e.board.SetSource(core.NewRNG(seed))
	e.stats.Reset()
	e.total = 0
	e.passes = 0
	e.origin = -1
	e.tick = 0
	e.seq = 0
}

// Step satisfies core.Sim.
func (e *Engine) Step() { e.Tick() }

// Tick runs one collapse pass. A quiet pass closes the open cascade, if any,
// and drops a new grain; otherwise the toppling count is added to the open
// cascade.
func (e *Engine) Tick() TickResult {
	e.tick++
	res := TickResult{Injected: -1}
	res.Toppled = e.board.Collapse()
	if res.Toppled > 0 {
		e.total += res.Toppled
		e.passes++
		return res
	}

	if e.total > 0 {
		e.seq++
		c := Cascade{
			Seq:    e.seq,
			Tick:   e.tick,
			Size:   e.total,
			Passes: e.passes,
			Origin: e.origin,
		}
		e.stats.Record(c.Size)
		for _, s := range e.sinks {
			s.RecordCascade(c)
		}
		res.Closed = true
		res.Cascade = c
	}
	e.total = 0
	e.passes = 0

	res.Injected = e.board.Populate()
	e.origin = res.Injected
	return res
}

func init() {
	core.Register(Name, func(cfg map[string]string) core.Sim {
		return New(FromMap(cfg))
	})
}
