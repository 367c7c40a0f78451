package speech

import (
	"context"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"

	audiotranscriber "github.com/sklyt/whisper/pkg"

	"github.com/hammamikhairi/foodlens/internal/logger"
)

// Sink receives finished utterances. mailbox.Latest[string] satisfies it.
type Sink interface {
	Put(text string)
}

// envAnnotation matches whisper environmental annotations like
// "(música)", "[risas]", "(keyboard clicking)".
var envAnnotation = regexp.MustCompile(`[\(\[][\p{L}][\p{L}\s_]*[\)\]]`)

// timestamp matches a leading "[00:00:00.000 --> 00:00:05.000]".
var timestamp = regexp.MustCompile(`^\[[0-9:.,\s\->]+\]\s*`)

// hallucinations are whole-transcript outputs whisper produces on
// silence or noise.
var hallucinations = []string{
	"...",
	"gracias",
	"gracias.",
	"¡gracias!",
	"gracias por ver.",
	"gracias por ver el video.",
	"subtítulos realizados por la comunidad de amara.org",
	"subtítulos por la comunidad de amara.org",
	"adiós.",
	"thank you.",
	"you",
}

// EarOption configures the Ear.
type EarOption func(*Ear)

// WithChunkDuration sets how long each recorded chunk lasts.
func WithChunkDuration(d time.Duration) EarOption {
	return func(e *Ear) { e.chunkDuration = d }
}

// WithSilenceChunks sets how many empty chunks after speech end an
// utterance.
func WithSilenceChunks(n int) EarOption {
	return func(e *Ear) { e.silenceChunks = n }
}

// WithMaxUtterance caps how long one utterance may run before it is
// flushed.
func WithMaxUtterance(d time.Duration) EarOption {
	return func(e *Ear) { e.maxUtterance = d }
}

// WithTempDir sets the directory for temporary WAV files.
func WithTempDir(dir string) EarOption {
	return func(e *Ear) { e.tempDir = dir }
}

// WithLanguageHint drops chunks whisper marks as another language, e.g.
// "(speaking English)".
func WithLanguageHint(lang string) EarOption {
	return func(e *Ear) { e.language = lang }
}

// Ear listens continuously and turns speech into utterances using a
// local whisper model. There is no wake word: every utterance is handed
// to the sink and the command grammar decides whether it means anything.
//
// Chunks are recorded back to back. Once speech is heard the chunks are
// joined until silence (or the utterance cap), then the joined text is
// put on the sink.
type Ear struct {
	whisperBin string
	modelPath  string
	tempDir    string
	language   string
	out        Sink
	log        *logger.Logger

	chunkDuration time.Duration
	silenceChunks int
	maxUtterance  time.Duration

	// record returns the transcription of one chunk. Replaced in tests.
	record func(ctx context.Context, d time.Duration) string

	mu    sync.Mutex
	muted bool
}

// NewEar creates a continuous listener.
//
//   - whisperBin: path to the whisper-cli executable
//   - modelPath:  path to the GGML model file
//   - out:        where finished utterances go
func NewEar(whisperBin, modelPath string, out Sink, log *logger.Logger, opts ...EarOption) *Ear {
	e := &Ear{
		whisperBin:    whisperBin,
		modelPath:     modelPath,
		tempDir:       ".foodlens-stt",
		out:           out,
		log:           log.With("component", "ear"),
		chunkDuration: 1500 * time.Millisecond,
		silenceChunks: 1,
		maxUtterance:  10 * time.Second,
	}
	e.record = e.recordChunk
	for _, opt := range opts {
		opt(e)
	}

	if _, err := exec.LookPath(e.whisperBin); err != nil {
		e.log.Error("whisper binary %q not found in PATH: %v", e.whisperBin, err)
	}
	return e
}

// Mute temporarily disables listening (e.g. during earcon playback).
func (e *Ear) Mute() {
	e.mu.Lock()
	e.muted = true
	e.mu.Unlock()
}

// Unmute re-enables listening.
func (e *Ear) Unmute() {
	e.mu.Lock()
	e.muted = false
	e.mu.Unlock()
}

func (e *Ear) isMuted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.muted
}

// Run listens until ctx is cancelled. Call this in a goroutine.
func (e *Ear) Run(ctx context.Context) {
	e.log.Info("started (chunk=%s, silence=%d, max=%s)", e.chunkDuration, e.silenceChunks, e.maxUtterance)

	for {
		select {
		case <-ctx.Done():
			e.log.Info("stopped")
			return
		default:
		}

		if e.isMuted() {
			select {
			case <-time.After(100 * time.Millisecond):
			case <-ctx.Done():
			}
			continue
		}

		if text := e.utterance(ctx); text != "" {
			e.log.Info("heard %q", text)
			e.out.Put(text)
		}
	}
}

// utterance records chunks until speech has been heard and then gone
// quiet. It returns "" when a chunk is silent and nothing was said.
func (e *Ear) utterance(ctx context.Context) string {
	var (
		parts   []string
		silent  int
		started time.Time
	)
	for {
		if ctx.Err() != nil {
			return ""
		}

		chunk := e.clean(e.record(ctx, e.chunkDuration))
		if e.isMuted() {
			// Whatever was recorded overlaps an earcon.
			chunk = ""
		}

		if chunk == "" {
			if len(parts) == 0 {
				return ""
			}
			silent++
			if silent >= e.silenceChunks {
				break
			}
			continue
		}

		if len(parts) == 0 {
			started = time.Now()
		}
		silent = 0
		parts = append(parts, chunk)
		e.log.Debug("chunk %q", chunk)

		if time.Since(started) >= e.maxUtterance {
			e.log.Debug("utterance cap reached")
			break
		}
	}
	return strings.Join(parts, " ")
}

// recordChunk does one recording cycle with the given duration and
// returns the transcribed text.
func (e *Ear) recordChunk(ctx context.Context, duration time.Duration) string {
	var result string
	var wg sync.WaitGroup
	wg.Add(1)

	callback := func(text string) {
		result = text
		wg.Done()
	}

	verbose := e.log.GetLevel() >= logger.LevelVerbose
	t, err := audiotranscriber.NewTranscriber(
		e.whisperBin,
		e.modelPath,
		e.tempDir,
		"wav",
		callback,
		verbose,
	)
	if err != nil {
		e.log.Error("transcriber init failed: %v", err)
		sleepCtx(ctx, 2*time.Second)
		return ""
	}

	if err := t.Start(); err != nil {
		e.log.Error("recording start failed: %v", err)
		sleepCtx(ctx, 2*time.Second)
		return ""
	}

	select {
	case <-time.After(duration):
	case <-ctx.Done():
	}
	t.Stop()
	wg.Wait()

	if ctx.Err() != nil {
		return ""
	}
	return result
}

// clean strips whitespace, timestamps and whisper annotations, and
// drops known hallucinations entirely.
func (e *Ear) clean(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = timestamp.ReplaceAllString(s, "")

	if e.language != "" {
		l := strings.ToLower(s)
		if strings.Contains(l, "(speaking ") && !strings.Contains(l, "(speaking "+strings.ToLower(e.language)) {
			return ""
		}
	}

	s = envAnnotation.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")

	lower := strings.ToLower(s)
	for _, h := range hallucinations {
		if lower == h {
			return ""
		}
	}
	return s
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
