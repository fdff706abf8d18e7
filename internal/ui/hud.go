//go:build ebiten

package ui

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"
)

// HUD renders the statistics panel below the simulation view.
type HUD struct {
	width     int
	panel     *ebiten.Image
	lastWidth int
	status    Status
}

// NewHUD constructs a HUD for a view of the given pixel width.
func NewHUD(width int) *HUD {
	if width < 0 {
		width = 0
	}
	return &HUD{width: width}
}

// Height is the pixel height the panel occupies.
func (h *HUD) Height() int {
	return panelPadding*2 + lineHeight*statusLines
}

// Update caches the status to draw on the next frame.
func (h *HUD) Update(st Status) {
	if h == nil {
		return
	}
	h.status = st
}

// Draw paints the panel anchored at offsetY.
func (h *HUD) Draw(screen *ebiten.Image, offsetY int) {
	if h == nil || h.width <= 0 {
		return
	}
	if h.panel == nil || h.lastWidth != h.width {
		h.panel = ebiten.NewImage(h.width, h.Height())
		h.lastWidth = h.width
	}
	h.panel.Fill(color.RGBA{R: 16, G: 16, B: 20, A: 255})

	face := basicfont.Face7x13
	for i, line := range h.status.Lines() {
		y := panelPadding + (i+1)*lineHeight - 4
		col := color.RGBA{R: 220, G: 220, B: 230, A: 255}
		if i >= 2 {
			col = color.RGBA{R: 160, G: 160, B: 170, A: 255}
		}
		text.Draw(h.panel, line, face, panelPadding, y, col)
	}

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(0, float64(offsetY))
	screen.DrawImage(h.panel, op)
}

const (
	panelPadding = 8
	lineHeight   = 16
	statusLines  = 4
)
