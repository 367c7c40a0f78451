package speech

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/hammamikhairi/foodlens/internal/domain"
	"github.com/hammamikhairi/foodlens/internal/logger"
)

// Compile-time interface check.
var _ domain.Earcon = (*Earcon)(nil)

// PCMPlayer plays raw PCM synchronously. *Player satisfies it.
type PCMPlayer interface {
	PlayPCM(pcm []byte) error
}

// Muter is silenced while an earcon plays so the microphone does not
// transcribe it. *Ear satisfies it.
type Muter interface {
	Mute()
	Unmute()
}

// EarconOption configures an Earcon.
type EarconOption func(*Earcon)

// WithMuter mutes m for the duration of every earcon.
func WithMuter(m Muter) EarconOption {
	return func(e *Earcon) { e.muter = m }
}

// WithTones overrides the accept and reject tones.
func WithTones(accept, reject Tone) EarconOption {
	return func(e *Earcon) {
		e.acceptTone = accept
		e.rejectTone = reject
	}
}

// Earcon plays short confirmation tones. Playback happens in the
// background; a tone requested while another is playing is dropped.
type Earcon struct {
	player PCMPlayer
	log    *logger.Logger
	muter  Muter

	acceptTone Tone
	rejectTone Tone

	once   sync.Once
	accept []byte
	reject []byte

	mu      sync.Mutex
	playing bool
	wg      sync.WaitGroup
}

// NewEarcon creates an earcon player. Samples are generated on first use.
func NewEarcon(player PCMPlayer, log *logger.Logger, opts ...EarconOption) *Earcon {
	e := &Earcon{
		player:     player,
		log:        log.With("component", "earcon"),
		acceptTone: AcceptTone,
		rejectTone: RejectTone,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Accept plays the accept tone.
func (e *Earcon) Accept() {
	e.once.Do(e.init)
	e.play("accept", e.accept)
}

// Reject plays the reject tone.
func (e *Earcon) Reject() {
	e.once.Do(e.init)
	e.play("reject", e.reject)
}

// Wait blocks until the tone being played, if any, has finished.
func (e *Earcon) Wait() {
	e.wg.Wait()
}

func (e *Earcon) init() {
	e.accept = Synthesize(e.acceptTone, SampleRate)
	e.reject = Synthesize(e.rejectTone, SampleRate)
}

func (e *Earcon) play(name string, pcm []byte) {
	e.mu.Lock()
	if e.playing {
		e.mu.Unlock()
		e.log.Debug("%s dropped, already playing", name)
		return
	}
	e.playing = true
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer func() {
			e.mu.Lock()
			e.playing = false
			e.mu.Unlock()
			e.wg.Done()
		}()

		if e.muter != nil {
			e.muter.Mute()
			defer e.muter.Unmute()
		}
		if err := e.player.PlayPCM(pcm); err != nil {
			e.log.Warn("%s: %v", name, err)
		}
	}()
}

// Synthesize renders t as 16-bit little-endian mono PCM.
func Synthesize(t Tone, sampleRate int) []byte {
	beep := samples(t, sampleRate)
	gap := int(math.Round(t.Gap.Seconds() * float64(sampleRate)))

	out := make([]int16, 0, (len(beep)+gap)*(t.Repeat+1))
	out = append(out, beep...)
	for i := 0; i < t.Repeat; i++ {
		out = append(out, make([]int16, gap)...)
		out = append(out, beep...)
	}

	buf := make([]byte, len(out)*2)
	for i, s := range out {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

func samples(t Tone, sampleRate int) []int16 {
	n := int(math.Round(t.Duration.Seconds() * float64(sampleRate)))
	out := make([]int16, n)
	for i := range out {
		x := float64(i) / float64(sampleRate)
		envelope := math.Exp(-x * t.Decay)
		out[i] = int16(math.Sin(2*math.Pi*t.Freq*x) * math.MaxInt16 * t.Volume * envelope)
	}
	return out
}
