package sandpile

import "sort"

// WindowSize is the capacity of both statistics windows.
const WindowSize = 10

// Stats keeps the bounded history of closed cascade sizes: the most recent
// ones, newest first, and the largest ones seen, in descending order.
type Stats struct {
	recent []int
	top    []int
}

// NewStats returns a tracker with both windows filled with zeros.
func NewStats() *Stats {
	return &Stats{
		recent: make([]int, WindowSize),
		top:    make([]int, WindowSize),
	}
}

// Record adds a closed cascade total to both windows.
func (s *Stats) Record(total int) {
	copy(s.recent[1:], s.recent[:WindowSize-1])
	s.recent[0] = total

	s.top = append(s.top, total)
	sort.Sort(sort.Reverse(sort.IntSlice(s.top)))
	s.top = s.top[:WindowSize]
}

// Recent returns a copy of the recent window, newest first.
func (s *Stats) Recent() []int { return append([]int(nil), s.recent...) }

// Top returns a copy of the top window, largest first.
func (s *Stats) Top() []int { return append([]int(nil), s.top...) }

// Reset zeroes both windows.
func (s *Stats) Reset() {
	for i := range s.recent {
		s.recent[i] = 0
	}
	for i := range s.top {
		s.top[i] = 0
	}
}
