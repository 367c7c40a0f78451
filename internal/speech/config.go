// Package speech handles the audio side of the session: continuous
// speech-to-text through a local whisper binary and short earcons that
// confirm or reject a voice command.
package speech

import "time"

// Audio parameters for earcon playback: 16-bit signed little-endian mono.
const (
	SampleRate   = 24000
	ChannelCount = 1
	BitDepth     = 16
)

// Env var names for the local whisper install.
const (
	EnvWhisperBin   = "WHISPER_BIN"
	EnvWhisperModel = "WHISPER_MODEL"
)

// Defaults used when the env vars are unset.
const (
	DefaultWhisperBin   = "whisper-cli"
	DefaultWhisperModel = "models/ggml-base.bin"
)

// Tone describes one earcon: a decaying sine, optionally repeated.
type Tone struct {
	Freq     float64       // Hz
	Duration time.Duration // per beep
	Volume   float64       // 0..1
	Decay    float64       // envelope exp(-t·Decay)
	Repeat   int           // extra beeps after the first
	Gap      time.Duration // silence between beeps
}

// Earcon defaults: a short bright tick for accept, a low double beep for
// reject.
var (
	AcceptTone = Tone{Freq: 1200, Duration: 150 * time.Millisecond, Volume: 0.5, Decay: 60}
	RejectTone = Tone{Freq: 350, Duration: 80 * time.Millisecond, Volume: 0.6, Decay: 30, Repeat: 1, Gap: 50 * time.Millisecond}
)
