//go:build ebiten

package app

import (
	"fmt"
	"time"

	"sandpile/internal/render"
	"sandpile/internal/runner"
	"sandpile/internal/ui"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// MinWidth keeps the status panel readable on small grids.
const MinWidth = 480

// Game adapts a runner session to the ebiten.Game interface.
type Game struct {
	sess    *runner.Session
	sinks   *runner.Sinks
	painter *render.TilePainter
	hud     *ui.HUD

	width     int
	gridH     int
	lastStats time.Time
}

// New constructs a Game drawing each cell as a tile-pixel square.
func New(sess *runner.Session, sinks *runner.Sinks, tile int) *Game {
	size := sess.Engine().Size()
	tp := render.NewTilePainter(size.W, size.H, tile)
	w, h := tp.Size()
	width := max(w, MinWidth)
	return &Game{
		sess:    sess,
		sinks:   sinks,
		painter: tp,
		hud:     ui.NewHUD(width),
		width:   width,
		gridH:   h,
	}
}

// Run opens a window and blocks until it is closed.
func Run(sess *runner.Session, sinks *runner.Sinks, tile int) error {
	g := New(sess, sinks, tile)
	w, h := g.Layout(0, 0)
	ebiten.SetWindowSize(w, h)
	ebiten.SetWindowTitle(fmt.Sprintf("sandpile %dx%d", sess.Engine().Size().W, sess.Engine().Size().H))
	if err := ebiten.RunGame(g); err != nil && err != ebiten.Termination {
		return err
	}
	return nil
}

// Update handles input and advances the session.
func (g *Game) Update() error {
	now := time.Now()
	if inpututil.IsKeyJustPressed(ebiten.KeyQ) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.sess.TogglePause()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyN) && g.sess.Paused() {
		g.sess.StepOnce()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		g.sess.Reset(0)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF) {
		g.sess.Faster(now)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyS) {
		g.sess.Slower(now)
	}

	g.sess.Advance(now)
	g.hud.Update(g.sess.Status())
	if g.sinks != nil && now.Sub(g.lastStats) >= runner.StatsEvery {
		g.sinks.PublishStats(g.sess)
		g.lastStats = now
	}
	return nil
}

// Draw renders the grid and the status panel beneath it.
func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(render.Background)
	g.painter.Blit(screen, g.sess.Engine().Cells())
	g.hud.Draw(screen, g.gridH)
}

// Layout returns the logical screen size.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.width, g.gridH + g.hud.Height()
}
