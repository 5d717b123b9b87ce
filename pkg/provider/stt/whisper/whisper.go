// Package whisper provides whisper.cpp-backed speech engines.
//
// whisper.cpp is a batch transcription engine, so the recognisers in this
// package simulate streaming: incoming PCM is buffered, an energy-based
// silence detector decides when the speaker has finished, and the buffered
// utterance is then transcribed in one pass. Interim hypotheses are produced
// on demand by transcribing the audio buffered so far, at most once per
// partial interval of new audio.
//
// Two backends are available:
//
//   - [NewNative] loads a ggml model in-process through the CGO bindings.
//     libwhisper.a and whisper.h must be available at link time via
//     LIBRARY_PATH and C_INCLUDE_PATH.
//   - [NewServer] talks to a running whisper-server over its REST API
//     (POST /inference).
//
// Usage:
//
//	eng, err := whisper.NewNative("models/ggml-small.bin", whisper.WithLanguage("hi"))
//	rec, err := eng.NewRecognizer(16000)
//	if final, _ := rec.AcceptFrame(pcm); final {
//	    fmt.Println(rec.Final())
//	}
package whisper

import (
	"log/slog"
	"time"

	"github.com/MrWong99/vaani/pkg/audio"
	"github.com/MrWong99/vaani/pkg/provider/stt"
)

const (
	// defaultSpeechRMS is the RMS energy (16-bit PCM units) at or above which
	// a frame counts as speech. 300 is just above room noise.
	defaultSpeechRMS = 300.0

	defaultLanguage         = "hi"
	defaultSilenceThreshold = 500 * time.Millisecond
	defaultMaxBuffer        = 10 * time.Second
	defaultPartialInterval  = 500 * time.Millisecond
)

// settings holds the endpointing parameters shared by both backends.
type settings struct {
	language         string
	speechRMS        float64
	silenceThreshold time.Duration
	maxBuffer        time.Duration
	partialInterval  time.Duration
}

func defaultSettings() settings {
	return settings{
		language:         defaultLanguage,
		speechRMS:        defaultSpeechRMS,
		silenceThreshold: defaultSilenceThreshold,
		maxBuffer:        defaultMaxBuffer,
		partialInterval:  defaultPartialInterval,
	}
}

// Option configures either backend.
type Option func(*settings)

// WithLanguage sets the whisper language code (e.g. "hi", "en"). "auto" lets
// whisper detect the language. Defaults to "hi".
func WithLanguage(lang string) Option {
	return func(s *settings) { s.language = lang }
}

// WithSpeechRMS sets the RMS level at or above which a frame counts as
// speech. Defaults to 300.
func WithSpeechRMS(rms float64) Option {
	return func(s *settings) { s.speechRMS = rms }
}

// WithSilenceThreshold sets how much trailing silence ends an utterance.
// Defaults to 500 ms.
func WithSilenceThreshold(d time.Duration) Option {
	return func(s *settings) { s.silenceThreshold = d }
}

// WithMaxBuffer sets the longest utterance buffered before transcription is
// forced regardless of silence. Defaults to 10 s.
func WithMaxBuffer(d time.Duration) Option {
	return func(s *settings) { s.maxBuffer = d }
}

// WithPartialInterval sets how much new audio must be buffered before
// [Recognizer.Partial] transcribes again. In between it returns the previous
// hypothesis. Non-positive disables interim hypotheses. Defaults to 500 ms.
func WithPartialInterval(d time.Duration) Option {
	return func(s *settings) { s.partialInterval = d }
}

// transcribeFunc turns buffered mono PCM into text.
type transcribeFunc func(pcm []byte, sampleRate int) (string, error)

// Recognizer implements [stt.Recognizer] by buffering speech and handing each
// completed utterance to a transcription backend.
type Recognizer struct {
	cfg        settings
	sampleRate int
	transcribe transcribeFunc

	buffer    []byte
	hadSpeech bool
	silence   time.Duration
	final     string

	// partial caches the transcription of buffer[:partialLen].
	partial    string
	partialLen int
}

var _ stt.Recognizer = (*Recognizer)(nil)

func newRecognizer(cfg settings, sampleRate int, fn transcribeFunc) *Recognizer {
	return &Recognizer{cfg: cfg, sampleRate: sampleRate, transcribe: fn}
}

// Reset discards buffered audio and hypotheses.
func (r *Recognizer) Reset() {
	r.buffer = nil
	r.hadSpeech = false
	r.silence = 0
	r.final = ""
	r.partial = ""
	r.partialLen = 0
}

// AcceptFrame buffers pcm and transcribes the utterance once enough trailing
// silence has been seen or the buffer is full. Leading silence is dropped.
func (r *Recognizer) AcceptFrame(pcm []byte) (bool, error) {
	format := audio.Format{SampleRate: r.sampleRate, Channels: 1}
	frameDur := format.FrameDuration(len(pcm) / audio.BytesPerSample)

	if audio.RMS(pcm) < r.cfg.speechRMS {
		if !r.hadSpeech {
			return false, nil
		}
		r.buffer = append(r.buffer, pcm...)
		r.silence += frameDur
		if r.silence >= r.cfg.silenceThreshold {
			return r.flush()
		}
		return false, nil
	}

	r.hadSpeech = true
	r.silence = 0
	r.buffer = append(r.buffer, pcm...)
	if r.cfg.maxBuffer > 0 && format.FrameDuration(len(r.buffer)/audio.BytesPerSample) >= r.cfg.maxBuffer {
		return r.flush()
	}
	return false, nil
}

// flush transcribes the buffered utterance and starts a new one.
func (r *Recognizer) flush() (bool, error) {
	pcm := r.buffer
	r.Reset()
	text, err := r.transcribe(pcm, r.sampleRate)
	if err != nil {
		return true, err
	}
	r.final = text
	return true, nil
}

// Partial transcribes the speech buffered so far. The listeners ask after
// every frame, so the transcription only reruns once the buffer has grown by
// the partial interval; until then the cached hypothesis is returned.
func (r *Recognizer) Partial() string {
	if !r.hadSpeech || len(r.buffer) == 0 || r.cfg.partialInterval <= 0 {
		return ""
	}
	format := audio.Format{SampleRate: r.sampleRate, Channels: 1}
	if format.FrameDuration((len(r.buffer)-r.partialLen)/audio.BytesPerSample) < r.cfg.partialInterval {
		return r.partial
	}
	text, err := r.transcribe(r.buffer, r.sampleRate)
	if err != nil {
		slog.Warn("whisper: partial transcription failed", "err", err)
		return ""
	}
	r.partial = text
	r.partialLen = len(r.buffer)
	return text
}

// Final returns the text of the last transcribed utterance.
func (r *Recognizer) Final() string { return r.final }
