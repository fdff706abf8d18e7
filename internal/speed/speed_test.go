package speed

import (
	"testing"
	"time"
)

func TestIsolatedPressesUseFineStep(t *testing.T) {
	c := New(100 * time.Millisecond)
	now := time.Unix(100, 0)
	if got := c.Faster(now); got != 90*time.Millisecond {
		t.Fatalf("expected 90ms, got %v", got)
	}
	now = now.Add(time.Second)
	if got := c.Slower(now); got != 100*time.Millisecond {
		t.Fatalf("expected 100ms, got %v", got)
	}
}

func TestRapidPressesUseCoarseStep(t *testing.T) {
	c := New(time.Second)
	now := time.Unix(100, 0)
	c.Slower(now)
	now = now.Add(200 * time.Millisecond)
	if got := c.Slower(now); got != 1110*time.Millisecond {
		t.Fatalf("expected 1110ms after a rapid repeat, got %v", got)
	}
	now = now.Add(300 * time.Millisecond)
	if got := c.Faster(now); got != 1010*time.Millisecond {
		t.Fatalf("expected 1010ms, got %v", got)
	}
	now = now.Add(RepeatWindow + time.Millisecond)
	if got := c.Faster(now); got != time.Second {
		t.Fatalf("expected fine step after the repeat window, got %v", got)
	}
}

func TestPeriodIsClamped(t *testing.T) {
	c := New(5 * time.Millisecond)
	now := time.Unix(0, 0)
	if got := c.Faster(now); got != 0 {
		t.Fatalf("expected clamp to 0, got %v", got)
	}
	if got := c.Faster(now.Add(time.Minute)); got != 0 {
		t.Fatalf("expected to stay at 0, got %v", got)
	}

	c = New(MaxPeriod - 5*time.Millisecond)
	if got := c.Slower(now); got != MaxPeriod {
		t.Fatalf("expected clamp to %v, got %v", MaxPeriod, got)
	}
	if got := New(time.Hour).Period(); got != MaxPeriod {
		t.Fatalf("constructor must clamp, got %v", got)
	}
	if got := New(-time.Second).Period(); got != 0 {
		t.Fatalf("constructor must clamp negatives, got %v", got)
	}
}
