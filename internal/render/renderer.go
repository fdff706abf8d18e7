//go:build ebiten

package render

import "github.com/hajimehoshi/ebiten/v2"

// TilePainter uploads sandpile cells into a single image, one tile per cell.
type TilePainter struct {
	w, h, tile int
	img        *ebiten.Image
	buf        []byte
}

// NewTilePainter allocates a painter for a w*h grid with tile-pixel cells.
func NewTilePainter(w, h, tile int) *TilePainter {
	if tile <= 0 {
		tile = 1
	}
	tp := &TilePainter{w: w, h: h, tile: tile, buf: make([]byte, 4*w*h*tile*tile)}
	tp.img = ebiten.NewImage(w*tile, h*tile)
	return tp
}

// Blit paints the provided cells and draws the image onto dst.
func (tp *TilePainter) Blit(dst *ebiten.Image, cells []uint8) {
	if len(cells) != tp.w*tp.h {
		return
	}
	fillTilesRGBA(tp.buf, cells, tp.w, tp.h, tp.tile)
	tp.img.WritePixels(tp.buf)
	dst.DrawImage(tp.img, &ebiten.DrawImageOptions{})
}

// Size returns the pixel dimensions of the painted image.
func (tp *TilePainter) Size() (int, int) { return tp.w * tp.tile, tp.h * tp.tile }
