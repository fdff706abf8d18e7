package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Status is the read-only view of the engine shown next to the grid.
type Status struct {
	Recent  []int
	Top     []int
	Period  time.Duration
	Paused  bool
	Cascade int
	Ticks   uint64
}

// StatusProvider exposes what the status panel needs from an engine.
type StatusProvider interface {
	Recent() []int
	Top() []int
	CascadeTotal() int
	Ticks() uint64
}

// Snapshot collects a Status from p.
func Snapshot(p StatusProvider, period time.Duration, paused bool) Status {
	return Status{
		Recent:  p.Recent(),
		Top:     p.Top(),
		Period:  period,
		Paused:  paused,
		Cascade: p.CascadeTotal(),
		Ticks:   p.Ticks(),
	}
}

// Lines renders the status panel text.
func (s Status) Lines() []string {
	state := ""
	if s.Paused {
		state = " [paused]"
	}
	return []string{
		"last : " + FormatWindow(s.Recent),
		"top : " + FormatWindow(s.Top),
		fmt.Sprintf("[f] faster, [s] slower, period : %v%s", s.Period, state),
		fmt.Sprintf("tick %d, cascade %d", s.Ticks, s.Cascade),
	}
}

// FormatWindow prints a statistics window as "[a, b, c]".
func FormatWindow(w []int) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range w {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.Itoa(v))
	}
	sb.WriteByte(']')
	return sb.String()
}
