package render

import (
	"math"
	"testing"
)

func TestScaleLevels(t *testing.T) {
	cases := map[uint8]float64{
		0:   0,
		1:   1.0 / 3,
		2:   2.0 / 3,
		3:   1,
		4:   4.0 / 3,
		5:   5.0 / 3,
		200: 5.0 / 3,
	}
	for v, want := range cases {
		if got := Scale(v); math.Abs(got-want) > 1e-9 {
			t.Fatalf("Scale(%d)=%f, expected %f", v, got, want)
		}
	}
	if Glyph(0) != ' ' || Glyph(9) != '⸭' {
		t.Fatalf("unexpected glyphs %q %q", Glyph(0), Glyph(9))
	}
}

func pixelAt(buf []byte, pw, x, y int) [4]byte {
	base := (y*pw + x) * 4
	return [4]byte{buf[base], buf[base+1], buf[base+2], buf[base+3]}
}

func TestFillTilesEmptyCellsShowBackground(t *testing.T) {
	const tile = 6
	buf := make([]byte, 4*2*1*tile*tile)
	fillTilesRGBA(buf, []uint8{0, 3}, 2, 1, tile)

	bg := [4]byte{Background.R, Background.G, Background.B, Background.A}
	if got := pixelAt(buf, 2*tile, tile/2, tile/2); got != bg {
		t.Fatalf("empty cell centre should be background, got %v", got)
	}
	full := Palette[3]
	want := [4]byte{full.R, full.G, full.B, full.A}
	for y := 0; y < tile; y++ {
		for x := tile; x < 2*tile; x++ {
			if got := pixelAt(buf, 2*tile, x, y); got != want {
				t.Fatalf("scale-1 cell must fill its tile, pixel (%d,%d)=%v", x, y, got)
			}
		}
	}
}

func TestFillTilesOverloadedCellSpills(t *testing.T) {
	const tile = 6
	buf := make([]byte, 4*3*1*tile*tile)
	fillTilesRGBA(buf, []uint8{0, 5, 0}, 3, 1, tile)

	hot := Palette[5]
	want := [4]byte{hot.R, hot.G, hot.B, hot.A}
	if got := pixelAt(buf, 3*tile, tile-1, tile/2); got != want {
		t.Fatalf("overloaded cell should spill into its left neighbour, got %v", got)
	}
	if got := pixelAt(buf, 3*tile, 0, tile/2); got == want {
		t.Fatal("spill must stay near the cell")
	}
}

func TestFillTilesIgnoresMismatchedBuffers(t *testing.T) {
	buf := make([]byte, 8)
	fillTilesRGBA(buf, []uint8{1, 2, 3}, 2, 2, 1)
	for _, b := range buf {
		if b != 0 {
			t.Fatal("mismatched input must leave the buffer untouched")
		}
	}
}
