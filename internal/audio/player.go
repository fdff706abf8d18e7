package audio

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"

	"sandpile/internal/sims/sandpile"
)

// MaxVoices caps how many clicks may overlap; extra cascades stay silent.
const MaxVoices = 16

// Player is a sandpile.Sink that mixes a click per cascade into the
// speaker. Until Initialize succeeds it does nothing.
type Player struct {
	logger *slog.Logger

	mu          sync.Mutex
	mixer       *beep.Mixer
	initialized bool
	played      uint64
	skipped     uint64
}

// NewPlayer returns an idle player.
func NewPlayer(logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Player{logger: logger, mixer: &beep.Mixer{}}
}

// Initialize opens the speaker. A failure leaves the player silent; callers
// log it and carry on.
func (p *Player) Initialize() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.initialized {
		return nil
	}
	if err := speaker.Init(SampleRate, SampleRate.N(50*time.Millisecond)); err != nil {
		return err
	}
	speaker.Play(p.mixer)
	p.initialized = true
	p.logger.Debug("audio initialized", "rate", int(SampleRate))
	return nil
}

// RecordCascade queues a click sized after c.
func (p *Player) RecordCascade(c sandpile.Cascade) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized {
		return
	}
	speaker.Lock()
	voices := p.mixer.Len()
	if voices < MaxVoices {
		p.mixer.Add(Click(c.Size, SampleRate))
	}
	speaker.Unlock()
	if voices < MaxVoices {
		p.played++
	} else {
		p.skipped++
	}
}

// Counts reports clicks played and skipped for lack of voices.
func (p *Player) Counts() (played, skipped uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.played, p.skipped
}

// Close silences every pending click.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized {
		return
	}
	speaker.Lock()
	p.mixer.Clear()
	speaker.Unlock()
	p.initialized = false
}
