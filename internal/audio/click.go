// Package audio plays a short click for every closed cascade. Larger
// cascades click lower and longer.
package audio

import (
	"math"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
)

// SampleRate is the output rate handed to the speaker.
const SampleRate = beep.SampleRate(44100)

const (
	baseFreq    = 1760.0
	minFreq     = 110.0
	baseLength  = 15 * time.Millisecond
	stepLength  = 8 * time.Millisecond
	maxLength   = 250 * time.Millisecond
	clickVolume = 0.4
)

// ClickParams maps a cascade size to the click pitch and length. The pitch
// drops a quarter octave per doubling of the size.
func ClickParams(size int) (freq float64, length time.Duration) {
	if size < 1 {
		size = 1
	}
	octaves := math.Log2(float64(size))
	freq = math.Max(minFreq, baseFreq*math.Exp2(-octaves/4))
	length = min(maxLength, baseLength+time.Duration(octaves*float64(stepLength)))
	return freq, length
}

// Click returns the finite streamer for a cascade of the given size.
func Click(size int, sr beep.SampleRate) beep.Streamer {
	freq, length := ClickParams(size)
	n := sr.N(length)
	return newVolume(beep.Take(n, &decayingSine{freq: freq, rate: sr, total: n}), clickVolume)
}

// decayingSine is a sine whose amplitude falls linearly to zero over total
// samples and stays silent afterwards.
type decayingSine struct {
	freq  float64
	phase float64
	rate  beep.SampleRate
	pos   int
	total int
}

func (d *decayingSine) Stream(samples [][2]float64) (int, bool) {
	for i := range samples {
		amp := 0.0
		if d.pos < d.total {
			amp = 1 - float64(d.pos)/float64(d.total)
		}
		v := amp * math.Sin(2*math.Pi*d.phase)
		samples[i][0] = v
		samples[i][1] = v
		d.phase += d.freq / float64(d.rate)
		d.phase -= math.Floor(d.phase)
		d.pos++
	}
	return len(samples), true
}

func (d *decayingSine) Err() error { return nil }

func newVolume(s beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(vol)}
}
