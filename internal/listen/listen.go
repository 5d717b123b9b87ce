// Package listen implements the two listening phases of a voice turn.
//
// [Listener.WaitForWake] pulls small frames until the recogniser's hypothesis
// contains a wake word. [Listener.CaptureCommand] then pulls larger,
// noise-gated frames until the recogniser commits an utterance or the time
// budget runs out, in which case the interim hypothesis is recovered if
// there is one.
//
// The listener does not own the audio source or the recogniser session: the
// caller opens the source, creates one recogniser and passes both in. Every
// phase resets the recogniser on entry. A Listener is not safe for concurrent
// use; one phase runs at a time.
package listen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MrWong99/vaani/internal/nlu"
	"github.com/MrWong99/vaani/pkg/audio"
	"github.com/MrWong99/vaani/pkg/provider/stt"
)

// ErrEngineUnavailable is returned immediately by every phase of a listener
// that was built without a recogniser.
var ErrEngineUnavailable = errors.New("listen: speech engine unavailable")

const (
	// DefaultWakeFrameSize is the wake phase frame size in samples.
	DefaultWakeFrameSize = 1024

	// DefaultCommandFrameSize is the command phase frame size in samples.
	DefaultCommandFrameSize = 4000

	// DefaultTimeout bounds a command capture.
	DefaultTimeout = 4500 * time.Millisecond

	// DefaultMinTokens is the fewest tokens a committed utterance needs.
	DefaultMinTokens = 1
)

// Outcome is how a command capture ended.
type Outcome int

const (
	// OutcomeNone means the capture failed with an error.
	OutcomeNone Outcome = iota

	// OutcomeCaptured means the recogniser committed an utterance.
	OutcomeCaptured

	// OutcomeRecovered means the budget ran out and the interim hypothesis
	// was used.
	OutcomeRecovered

	// OutcomeTimedOut means the budget ran out with nothing recognised.
	OutcomeTimedOut
)

// String returns the outcome name used in logs and metrics.
func (o Outcome) String() string {
	switch o {
	case OutcomeCaptured:
		return "captured"
	case OutcomeRecovered:
		return "recovered"
	case OutcomeTimedOut:
		return "timed_out"
	default:
		return "none"
	}
}

// Utterance is one captured span of recognised speech.
type Utterance struct {
	// Text is the recogniser's text, trimmed.
	Text string

	// Tokens are the normalised whitespace tokens of Text.
	Tokens []string

	// Wake is true when some token is exactly a wake word.
	Wake bool

	// Recovered is true when Text came from the interim hypothesis of a
	// capture that ran out of time.
	Recovered bool
}

// WakeEvent describes a detected wake word.
type WakeEvent struct {
	// Text is the hypothesis that contained the wake word.
	Text string

	// Word is the matched wake word.
	Word string
}

// Option configures a [Listener].
type Option func(*Listener)

// WithNoiseGate sets the gate applied to command frames.
func WithNoiseGate(g NoiseGate) Option {
	return func(l *Listener) { l.gate = g }
}

// WithTimeout sets the default command budget. A non-positive value
// disables the budget.
func WithTimeout(d time.Duration) Option {
	return func(l *Listener) { l.timeout = d }
}

// WithFrameSizes sets the wake and command frame sizes in samples.
// Non-positive values keep the defaults.
func WithFrameSizes(wake, command int) Option {
	return func(l *Listener) {
		if wake > 0 {
			l.wakeFrame = wake
		}
		if command > 0 {
			l.commandFrame = command
		}
	}
}

// WithMinTokens sets how many tokens a committed utterance needs.
func WithMinTokens(n int) Option {
	return func(l *Listener) { l.minTokens = n }
}

// WithClock replaces time.Now for the command budget.
func WithClock(now func() time.Time) Option {
	return func(l *Listener) { l.now = now }
}

// WithRecorder saves the accepted audio of every captured command.
func WithRecorder(r *Recorder) Option {
	return func(l *Listener) { l.recorder = r }
}

// Listener runs the wake and command phases over one audio source and one
// recogniser session.
type Listener struct {
	src  audio.Source
	rec  stt.Recognizer
	wake *WakeWords

	gate         NoiseGate
	timeout      time.Duration
	wakeFrame    int
	commandFrame int
	minTokens    int
	now          func() time.Time
	recorder     *Recorder
}

// New creates a Listener. rec may be nil, in which case every phase returns
// [ErrEngineUnavailable]. wake may be nil for a listener that never wakes.
func New(src audio.Source, rec stt.Recognizer, wake *WakeWords, opts ...Option) *Listener {
	if wake == nil {
		wake = NewWakeWords(nil)
	}
	l := &Listener{
		src:          src,
		rec:          rec,
		wake:         wake,
		timeout:      DefaultTimeout,
		wakeFrame:    DefaultWakeFrameSize,
		commandFrame: DefaultCommandFrameSize,
		minTokens:    DefaultMinTokens,
		now:          time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// SetNoiseThreshold changes the gate threshold. It must not be called while
// a phase is running.
func (l *Listener) SetNoiseThreshold(threshold float64) { l.gate.Threshold = threshold }

// SetTimeout changes the default command budget. It must not be called
// while a phase is running.
func (l *Listener) SetTimeout(d time.Duration) { l.timeout = d }

// WaitForWake blocks until a wake word appears in the recogniser's
// hypothesis. Each frame is fed ungated; the committed text is checked when
// the recogniser reports an utterance boundary, the interim hypothesis
// otherwise. On detection the recogniser is reset again so the command phase
// starts clean.
//
// WaitForWake has no time limit. It returns ctx.Err() once ctx is done and
// the error of a failed read or recognition.
func (l *Listener) WaitForWake(ctx context.Context) (WakeEvent, error) {
	if l.rec == nil {
		return WakeEvent{}, ErrEngineUnavailable
	}
	l.rec.Reset()

	for {
		if err := ctx.Err(); err != nil {
			return WakeEvent{}, err
		}
		frame, err := l.src.Read(l.wakeFrame)
		if err != nil {
			return WakeEvent{}, fmt.Errorf("listen: wake: read: %w", err)
		}
		final, err := l.rec.AcceptFrame(frame)
		if err != nil {
			return WakeEvent{}, fmt.Errorf("listen: wake: recognise: %w", err)
		}

		var text string
		if final {
			text = l.rec.Final()
		} else {
			text = l.rec.Partial()
		}
		if word, ok := l.wake.Find(nlu.Normalize(text)); ok {
			l.rec.Reset()
			slog.Debug("wake word detected", "word", word, "text", text)
			return WakeEvent{Text: text, Word: word}, nil
		}
	}
}

// CaptureOption overrides a setting for one [Listener.CaptureCommand] call.
type CaptureOption func(*captureSettings)

type captureSettings struct {
	timeout time.Duration
}

// Within overrides the command budget for one call. A non-positive value
// disables the budget.
func Within(d time.Duration) CaptureOption {
	return func(s *captureSettings) { s.timeout = d }
}

// CaptureCommand captures one command utterance.
//
// Before every read it checks the budget: once more than the budget has
// elapsed since entry, the interim hypothesis is returned as a recovered
// utterance, or [OutcomeTimedOut] if there is none. The budget is wall-clock
// time from entry, so frames rejected by the noise gate still consume it.
// Rejected frames are not fed to the recogniser. A committed utterance with
// no text or too few tokens is ignored and listening continues.
//
// A timeout is an outcome, not an error. Errors come from ctx, the audio
// source and the recogniser.
func (l *Listener) CaptureCommand(ctx context.Context, opts ...CaptureOption) (Utterance, Outcome, error) {
	if l.rec == nil {
		return Utterance{}, OutcomeNone, ErrEngineUnavailable
	}
	cs := captureSettings{timeout: l.timeout}
	for _, o := range opts {
		o(&cs)
	}

	l.rec.Reset()
	start := l.now()
	var accepted []byte

	for {
		if err := ctx.Err(); err != nil {
			return Utterance{}, OutcomeNone, err
		}
		if cs.timeout > 0 && l.now().Sub(start) > cs.timeout {
			partial := strings.TrimSpace(l.rec.Partial())
			if partial == "" {
				return Utterance{}, OutcomeTimedOut, nil
			}
			u := l.utterance(partial, true)
			l.record(accepted, OutcomeRecovered)
			return u, OutcomeRecovered, nil
		}

		frame, err := l.src.Read(l.commandFrame)
		if err != nil {
			return Utterance{}, OutcomeNone, fmt.Errorf("listen: command: read: %w", err)
		}
		if !l.gate.Accept(frame) {
			continue
		}
		if l.recorder != nil {
			accepted = append(accepted, frame...)
		}

		final, err := l.rec.AcceptFrame(frame)
		if err != nil {
			return Utterance{}, OutcomeNone, fmt.Errorf("listen: command: recognise: %w", err)
		}
		if !final {
			continue
		}
		text := strings.TrimSpace(l.rec.Final())
		if text == "" {
			continue
		}
		u := l.utterance(text, false)
		if len(u.Tokens) < l.minTokens {
			continue
		}
		l.record(accepted, OutcomeCaptured)
		return u, OutcomeCaptured, nil
	}
}

func (l *Listener) utterance(text string, recovered bool) Utterance {
	tokens := nlu.Tokens(text)
	return Utterance{
		Text:      text,
		Tokens:    tokens,
		Wake:      l.wake.ContainsAny(tokens),
		Recovered: recovered,
	}
}

func (l *Listener) record(pcm []byte, outcome Outcome) {
	if l.recorder == nil || len(pcm) == 0 {
		return
	}
	path, err := l.recorder.Save(pcm, l.src.Format(), outcome)
	if err != nil {
		slog.Warn("failed to save command recording", "err", err)
		return
	}
	slog.Debug("command recorded", "path", path)
}
