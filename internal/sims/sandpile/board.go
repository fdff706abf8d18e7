package sandpile

import "sandpile/internal/core"

// Threshold is the grain count at which a cell topples.
const Threshold = 4

// Board holds the sandpile cells together with the snapshot used to make every
// collapse pass a synchronous update.
type Board struct {
	cells    *core.ByteGrid
	snapshot *core.ByteGrid
	src      core.IndexSource
}

// NewBoard allocates a zero-filled w*h board drawing injection sites from src.
func NewBoard(w, h int, src core.IndexSource) *Board {
	cells := core.NewByteGrid(w, h)
	return &Board{
		cells:    cells,
		snapshot: core.NewByteGrid(cells.W, cells.H),
		src:      src,
	}
}

// Size returns the board dimensions.
func (b *Board) Size() core.Size { return core.Size{W: b.cells.W, H: b.cells.H} }

// Cells exposes the live grain counts in row-major order.
func (b *Board) Cells() []uint8 { return b.cells.Cells() }

// Grains returns the total number of grains on the board.
func (b *Board) Grains() int { return b.cells.Sum() }

// Collapse runs one pass over the board and returns how many cells toppled.
// Toppling decisions read the snapshot taken at the start of the pass, so a
// cell pushed over the threshold during this pass waits for the next one.
// Grains sent past the edge are lost.
func (b *Board) Collapse() int {
	b.snapshot.CopyFrom(b.cells)
	prev := b.snapshot.Cells()
	next := b.cells.Cells()
	w, h := b.cells.W, b.cells.H

	toppled := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := b.cells.Index(x, y)
			if prev[idx] < Threshold {
				continue
			}
			toppled++
			next[idx] -= Threshold
			if x+1 < w {
				next[idx+1]++
			}
			if x > 0 {
				next[idx-1]++
			}
			if y+1 < h {
				next[idx+w]++
			}
			if y > 0 {
				next[idx-w]++
			}
		}
	}
	return toppled
}

// Populate drops one grain on a uniformly chosen cell and returns its index.
func (b *Board) Populate() int {
	idx := b.src.IntN(b.cells.Len())
	b.cells.Cells()[idx]++
	return idx
}

// Clear removes every grain.
func (b *Board) Clear() {
	b.cells.Clear()
	b.snapshot.Clear()
}

// SetSource replaces the injection index source.
func (b *Board) SetSource(src core.IndexSource) { b.src = src }
