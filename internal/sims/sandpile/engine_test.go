package sandpile

import (
	"slices"
	"testing"

	"sandpile/internal/core"
)

func TestEngineClosesCascadeOfSeven(t *testing.T) {
	e := NewWithSource(Config{Width: 7, Height: 1}, &seqSource{idx: []int{3}})
	var closed []Cascade
	e.AddSink(SinkFunc(func(c Cascade) { closed = append(closed, c) }))
	for i := range e.Cells() {
		e.Cells()[i] = 4
	}

	res := e.Tick()
	if res.Toppled != 7 || res.Closed || res.Injected != -1 {
		t.Fatalf("first tick: %+v", res)
	}
	if e.CascadeTotal() != 7 || !e.Settling() {
		t.Fatalf("expected open cascade of 7, got %d", e.CascadeTotal())
	}

	res = e.Tick()
	if !res.Closed || res.Cascade.Size != 7 || res.Cascade.Passes != 1 {
		t.Fatalf("second tick should close a cascade of 7: %+v", res)
	}
	if res.Injected != 3 {
		t.Fatalf("expected injection at 3, got %d", res.Injected)
	}
	want := []int{7, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	if !slices.Equal(e.Recent(), want) || !slices.Equal(e.Top(), want) {
		t.Fatalf("recent=%v top=%v, expected %v", e.Recent(), e.Top(), want)
	}
	if e.CascadeTotal() != 0 {
		t.Fatalf("cascade total must reset after close, got %d", e.CascadeTotal())
	}
	if len(closed) != 1 || closed[0] != res.Cascade {
		t.Fatalf("sink saw %v, expected %v", closed, res.Cascade)
	}
}

func TestEngineQuietTickDoesNotRecord(t *testing.T) {
	e := NewWithSource(Config{Width: 3, Height: 3}, &seqSource{idx: []int{0, 8}})
	var calls int
	e.AddSink(SinkFunc(func(Cascade) { calls++ }))

	for i := 0; i < 2; i++ {
		res := e.Tick()
		if res.Toppled != 0 || res.Closed {
			t.Fatalf("tick %d on a sparse board: %+v", i, res)
		}
	}
	if calls != 0 {
		t.Fatalf("quiet ticks must not close cascades, sink called %d times", calls)
	}
	if slices.Max(e.Recent()) != 0 {
		t.Fatalf("recent window polluted: %v", e.Recent())
	}
	if e.Board().Grains() != 2 {
		t.Fatalf("expected 2 injected grains, got %d", e.Board().Grains())
	}
}

func TestEngineCascadeTotalSumsPasses(t *testing.T) {
	e := NewWithSource(Config{Width: 9, Height: 9}, core.NewRNG(3))
	for i := range e.Cells() {
		e.Cells()[i] = 3
	}
	e.Cells()[40] = 4

	sum := 0
	passes := 0
	for {
		res := e.Tick()
		if res.Toppled == 0 {
			if !res.Closed {
				t.Fatal("expected the cascade to close")
			}
			if res.Cascade.Size != sum || res.Cascade.Passes != passes {
				t.Fatalf("cascade %+v, expected size %d over %d passes", res.Cascade, sum, passes)
			}
			break
		}
		sum += res.Toppled
		passes++
		if e.CascadeTotal() != sum {
			t.Fatalf("after %d passes total=%d, expected %d", passes, e.CascadeTotal(), sum)
		}
	}
	if sum < 81 {
		t.Fatalf("a saturated 9x9 board must topple every cell at least once, got %d", sum)
	}
}

func TestEngineLongRunInvariants(t *testing.T) {
	e := New(Config{Width: 16, Height: 12, Seed: 77})
	var last uint64
	for i := 0; i < 20000; i++ {
		before := e.Board().Grains()
		res := e.Tick()
		if res.Injected >= 0 && res.Toppled != 0 {
			t.Fatal("injection may only follow a quiet pass")
		}
		if res.Toppled == 0 && e.Board().Grains() != before+1 {
			t.Fatalf("quiet tick must add exactly one grain: %d -> %d", before, e.Board().Grains())
		}
		if res.Closed {
			if res.Cascade.Seq != last+1 {
				t.Fatalf("cascade seq jumped from %d to %d", last, res.Cascade.Seq)
			}
			last = res.Cascade.Seq
			if res.Cascade.Origin < 0 || res.Cascade.Origin >= 16*12 {
				t.Fatalf("cascade origin out of range: %d", res.Cascade.Origin)
			}
		}
		if len(e.Recent()) != WindowSize || len(e.Top()) != WindowSize {
			t.Fatal("windows must keep their size")
		}
	}
	if e.Cascades() == 0 {
		t.Fatal("expected cascades after 20000 ticks")
	}
	if e.Ticks() != 20000 {
		t.Fatalf("expected 20000 ticks, got %d", e.Ticks())
	}
}

func TestEngineResetDeterministic(t *testing.T) {
	run := func(e *Engine) []int {
		for i := 0; i < 5000; i++ {
			e.Tick()
		}
		return append(e.Recent(), e.Top()...)
	}

	e := New(Config{Width: 10, Height: 10, Seed: 11})
	first := run(e)
	e.Reset(0)
	if e.Board().Grains() != 0 || e.Ticks() != 0 || e.Cascades() != 0 {
		t.Fatal("Reset must clear board and counters")
	}
	second := run(e)
	if !slices.Equal(first, second) {
		t.Fatalf("Reset with config seed not deterministic: %v vs %v", first, second)
	}

	e.Reset(12345)
	third := run(e)
	e.Reset(12345)
	if !slices.Equal(third, run(e)) {
		t.Fatal("Reset with explicit seed not deterministic")
	}
}

func TestRegisteredFactory(t *testing.T) {
	factory, ok := core.Sims()[Name]
	if !ok {
		t.Fatalf("%q not registered", Name)
	}
	sim := factory(map[string]string{"w": "4", "h": "6", "seed": "9"})
	if got := sim.Size(); got != (core.Size{W: 4, H: 6}) {
		t.Fatalf("unexpected size %+v", got)
	}
	if sim.Name() != Name {
		t.Fatalf("unexpected name %q", sim.Name())
	}
	sim.Step()
	if len(sim.Cells()) != 24 {
		t.Fatalf("expected 24 cells, got %d", len(sim.Cells()))
	}
}

func TestFromMapKeepsDefaultsOnBadInput(t *testing.T) {
	c := FromMap(map[string]string{"w": "-3", "h": "abc", "seed": "5"})
	def := DefaultConfig()
	if c.Width != def.Width || c.Height != def.Height || c.Seed != 5 {
		t.Fatalf("unexpected config %+v", c)
	}
	if got := FromMap(c.ToMap()); got != c {
		t.Fatalf("ToMap/FromMap mismatch: %+v vs %+v", got, c)
	}
}
