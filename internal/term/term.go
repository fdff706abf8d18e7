// Package term draws the sandpile in a terminal with tcell.
package term

import (
	"context"
	"time"

	"github.com/gdamore/tcell/v2"

	"sandpile/internal/render"
	"sandpile/internal/runner"
)

// FrameInterval is the redraw period (~60 FPS).
const FrameInterval = 16 * time.Millisecond

// CellWidth is the number of columns per grid cell.
const CellWidth = 2

var styles [render.Levels]tcell.Style

func init() {
	for i, c := range render.Palette {
		fg := tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
		styles[i] = tcell.StyleDefault.Foreground(fg)
	}
}

// Driver runs a session on a tcell screen.
type Driver struct {
	screen tcell.Screen
	sess   *runner.Session
	sinks  *runner.Sinks
	now    func() time.Time
}

// New returns a driver for an initialised screen. sinks may be nil.
func New(screen tcell.Screen, sess *runner.Session, sinks *runner.Sinks) *Driver {
	return &Driver{screen: screen, sess: sess, sinks: sinks, now: time.Now}
}

// Run draws and ticks until the user quits or ctx is done. The caller owns
// the screen and must Fini it afterwards.
func (d *Driver) Run(ctx context.Context) error {
	events := make(chan tcell.Event, 64)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			ev := d.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	frame := time.NewTicker(FrameInterval)
	defer frame.Stop()
	stats := time.NewTicker(runner.StatsEvery)
	defer stats.Stop()

	d.sess.Advance(d.now())
	d.Draw()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if !d.handleEvent(ev) {
				return nil
			}
			d.Draw()
		case <-frame.C:
			d.sess.Advance(d.now())
			d.Draw()
		case <-stats.C:
			if d.sinks != nil {
				d.sinks.PublishStats(d.sess)
			}
		}
	}
}

func (d *Driver) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return d.handleKey(ev.Key(), ev.Rune())
	case *tcell.EventResize:
		d.screen.Sync()
	}
	return true
}

// handleKey applies one key press and reports whether to keep running.
func (d *Driver) handleKey(key tcell.Key, r rune) bool {
	switch key {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyRune:
	default:
		return true
	}
	switch r {
	case 'q', 'Q':
		return false
	case 'f', 'F':
		d.sess.Faster(d.now())
	case 's', 'S':
		d.sess.Slower(d.now())
	case ' ':
		d.sess.TogglePause()
	case 'n', 'N':
		if d.sess.Paused() {
			d.sess.StepOnce()
		}
	case 'r', 'R':
		d.sess.Reset(0)
	}
	return true
}

// Draw renders the grid and the status lines below it.
func (d *Driver) Draw() {
	d.screen.Clear()
	eng := d.sess.Engine()
	size := eng.Size()
	cells := eng.Cells()
	sw, sh := d.screen.Size()
	for y := 0; y < size.H && y < sh; y++ {
		row := cells[y*size.W : (y+1)*size.W]
		for x, v := range row {
			col := x * CellWidth
			if col >= sw {
				break
			}
			d.screen.SetContent(col, y, render.Glyph(v), nil, styles[render.Level(v)])
		}
	}
	y := size.H + 1
	for _, line := range d.sess.Status().Lines() {
		if y >= sh {
			break
		}
		drawText(d.screen, 0, y, line, tcell.StyleDefault)
		y++
	}
	d.screen.Show()
}

func drawText(s tcell.Screen, x, y int, text string, style tcell.Style) {
	w, _ := s.Size()
	for _, r := range text {
		if x >= w {
			return
		}
		s.SetContent(x, y, r, nil, style)
		x++
	}
}
