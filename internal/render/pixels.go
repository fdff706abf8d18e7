package render

import (
	"image/color"
	"math"
)

// Levels is the number of distinct visual levels: 0..4 grains and "more".
const Levels = 6

var (
	scales = [Levels]float64{0, 1.0 / 3, 2.0 / 3, 1, 4.0 / 3, 5.0 / 3}
	glyphs = [Levels]rune{' ', '⸱', '⁚', '⸫', '⸬', '⸭'}

	// Palette colours each level, dark sand to hot orange for overloaded cells.
	Palette = [Levels]color.RGBA{
		{R: 0, G: 0, B: 0, A: 255},
		{R: 120, G: 96, B: 64, A: 255},
		{R: 176, G: 142, B: 90, A: 255},
		{R: 226, G: 196, B: 128, A: 255},
		{R: 250, G: 150, B: 60, A: 255},
		{R: 255, G: 70, B: 40, A: 255},
	}

	// Background fills the space around each cell.
	Background = color.RGBA{R: 16, G: 16, B: 20, A: 255}
)

// Level maps a grain count to its visual level.
func Level(v uint8) int {
	if int(v) >= Levels-1 {
		return Levels - 1
	}
	return int(v)
}

// Scale returns the size of a cell relative to its tile.
func Scale(v uint8) float64 { return scales[Level(v)] }

// Glyph returns the terminal rune for a grain count.
func Glyph(v uint8) rune { return glyphs[Level(v)] }

// fillTilesRGBA paints cells into buf, an RGBA image of (w*tile) x (h*tile)
// pixels. Each cell becomes a square centred on its tile with side
// tile*Scale(v); squares above scale 1 spill into neighbouring tiles, so
// higher levels are painted last.
func fillTilesRGBA(buf []byte, cells []uint8, w, h, tile int) {
	pw, ph := w*tile, h*tile
	if len(buf) != 4*pw*ph || len(cells) != w*h {
		return
	}
	for i := 0; i < len(buf); i += 4 {
		buf[i+0] = Background.R
		buf[i+1] = Background.G
		buf[i+2] = Background.B
		buf[i+3] = Background.A
	}

	for level := 1; level < Levels; level++ {
		side := int(math.Round(float64(tile) * scales[level]))
		if side <= 0 {
			continue
		}
		col := Palette[level]
		for i, c := range cells {
			if Level(c) != level {
				continue
			}
			cx := (i%w)*tile + tile/2
			cy := (i/w)*tile + tile/2
			x0 := max(cx-side/2, 0)
			y0 := max(cy-side/2, 0)
			x1 := min(cx-side/2+side, pw)
			y1 := min(cy-side/2+side, ph)
			for y := y0; y < y1; y++ {
				row := y * pw
				for x := x0; x < x1; x++ {
					base := (row + x) * 4
					buf[base+0] = col.R
					buf[base+1] = col.G
					buf[base+2] = col.B
					buf[base+3] = col.A
				}
			}
		}
	}
}
