package term

import (
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"sandpile/internal/runner"
	"sandpile/internal/sims/sandpile"
)

func newDriver(t *testing.T, w, h int) (*Driver, tcell.SimulationScreen) {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(screen.Fini)
	screen.SetSize(80, 24)

	eng := sandpile.New(sandpile.Config{Width: w, Height: h, Seed: 1})
	sess := runner.NewSession(eng, 10*time.Millisecond, nil)
	return New(screen, sess, nil), screen
}

func rowText(s tcell.SimulationScreen, y, width int) string {
	var sb strings.Builder
	for x := 0; x < width; x++ {
		r, _, _, _ := s.GetContent(x, y)
		if r == 0 {
			r = ' '
		}
		sb.WriteRune(r)
	}
	return strings.TrimRight(sb.String(), " ")
}

func TestDrawGlyphs(t *testing.T) {
	d, screen := newDriver(t, 3, 2)
	cells := d.sess.Engine().Cells()
	for i := range cells {
		cells[i] = uint8(i)
	}
	d.Draw()

	want := []rune{' ', '⸱', '⁚', '⸫', '⸬', '⸭'}
	for i, r := range want {
		x, y := (i%3)*CellWidth, i/3
		got, _, _, _ := screen.GetContent(x, y)
		if r == ' ' && got == 0 {
			continue
		}
		if got != r {
			t.Fatalf("cell %d: glyph %q, expected %q", i, got, r)
		}
	}
}

func TestDrawStatusLines(t *testing.T) {
	d, screen := newDriver(t, 4, 3)
	d.Draw()
	if got := rowText(screen, 4, 80); got != "last : [0, 0, 0, 0, 0, 0, 0, 0, 0, 0]" {
		t.Fatalf("last line %q", got)
	}
	if got := rowText(screen, 5, 80); got != "top : [0, 0, 0, 0, 0, 0, 0, 0, 0, 0]" {
		t.Fatalf("top line %q", got)
	}
	if got := rowText(screen, 6, 80); got != "[f] faster, [s] slower, period : 10ms" {
		t.Fatalf("speed line %q", got)
	}
}

func TestHandleKeys(t *testing.T) {
	d, _ := newDriver(t, 3, 3)
	at := time.Unix(500, 0)
	d.now = func() time.Time { return at }

	d.handleKey(tcell.KeyRune, 's')
	if p := d.sess.Period(); p != 20*time.Millisecond {
		t.Fatalf("s must slow to 20ms, got %v", p)
	}
	at = at.Add(time.Second)
	d.handleKey(tcell.KeyRune, 'F')
	if p := d.sess.Period(); p != 10*time.Millisecond {
		t.Fatalf("F must speed up to 10ms, got %v", p)
	}

	d.handleKey(tcell.KeyRune, 'n')
	if d.sess.Engine().Ticks() != 0 {
		t.Fatal("n must only step while paused")
	}
	d.handleKey(tcell.KeyRune, ' ')
	if !d.sess.Paused() {
		t.Fatal("space must pause")
	}
	d.handleKey(tcell.KeyRune, 'n')
	if d.sess.Engine().Ticks() != 1 {
		t.Fatalf("n must step once, ticks=%d", d.sess.Engine().Ticks())
	}

	d.handleKey(tcell.KeyRune, 'r')
	if d.sess.Engine().Ticks() != 0 || d.sess.Engine().Board().Grains() != 0 {
		t.Fatal("r must reset the board")
	}

	if !d.handleKey(tcell.KeyRune, 'x') {
		t.Fatal("unbound keys must keep running")
	}
	for _, k := range []tcell.Key{tcell.KeyEscape, tcell.KeyCtrlC} {
		if d.handleKey(k, 0) {
			t.Fatalf("key %v must quit", k)
		}
	}
	if d.handleKey(tcell.KeyRune, 'q') {
		t.Fatal("q must quit")
	}
}
