package audio

import (
	"math"
	"testing"
	"time"

	"github.com/gopxl/beep"

	"sandpile/internal/sims/sandpile"
)

func TestClickParamsMonotonic(t *testing.T) {
	prevFreq, prevLen := math.Inf(1), time.Duration(0)
	for _, size := range []int{1, 2, 4, 16, 256, 4096, 1 << 20} {
		freq, length := ClickParams(size)
		if freq > prevFreq {
			t.Fatalf("size %d: pitch rose to %v", size, freq)
		}
		if length < prevLen {
			t.Fatalf("size %d: length shrank to %v", size, length)
		}
		if freq < minFreq || length > maxLength {
			t.Fatalf("size %d out of range: %v %v", size, freq, length)
		}
		prevFreq, prevLen = freq, length
	}
	if f, l := ClickParams(0); f != baseFreq || l != baseLength {
		t.Fatalf("size 0 must map to the base click, got %v %v", f, l)
	}
}

func TestClickLengthAndRange(t *testing.T) {
	rate := beep.SampleRate(8000)
	_, length := ClickParams(64)
	want := rate.N(length)

	s := Click(64, rate)
	buf := make([][2]float64, 128)
	total := 0
	for {
		n, ok := s.Stream(buf)
		for i := range n {
			if math.Abs(buf[i][0]) > 1 || buf[i][0] != buf[i][1] {
				t.Fatalf("sample %d out of range: %v", total+i, buf[i])
			}
		}
		total += n
		if !ok {
			break
		}
		if total > 10*want {
			t.Fatal("click never ends")
		}
	}
	if total != want {
		t.Fatalf("streamed %d samples, expected %d", total, want)
	}
}

func TestDecayingSineFades(t *testing.T) {
	d := &decayingSine{freq: 440, rate: 8000, total: 80}
	buf := make([][2]float64, 100)
	d.Stream(buf)
	for i := 80; i < 100; i++ {
		if buf[i][0] != 0 {
			t.Fatalf("sample %d after the decay must be silent, got %v", i, buf[i][0])
		}
	}
}

func TestPlayerSilentUntilInitialized(t *testing.T) {
	p := NewPlayer(nil)
	p.RecordCascade(sandpile.Cascade{Size: 10})
	if played, skipped := p.Counts(); played != 0 || skipped != 0 {
		t.Fatalf("uninitialized player counted %d/%d", played, skipped)
	}
	p.Close()
}
