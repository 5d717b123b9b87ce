// Package vosk provides an offline Vosk (Kaldi) streaming speech engine.
//
// Vosk is a true streaming recogniser: every accepted frame updates an interim
// hypothesis, and the engine itself decides when an utterance is complete
// based on its internal endpointing. Results are exchanged as JSON documents
// ({"text": ...} for finals, {"partial": ...} for interim results).
//
// The native library (libvosk) must be available at link and run time.
//
// Usage:
//
//	eng, err := vosk.New("models/vosk-model-small-hi-0.22")
//	rec, err := eng.NewRecognizer(16000)
//	if final, _ := rec.AcceptFrame(pcm); final {
//	    fmt.Println(rec.Final())
//	}
package vosk

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	voskapi "github.com/alphacep/vosk-api/go"

	"github.com/MrWong99/vaani/pkg/provider/stt"
)

// Option configures an [Engine].
type Option func(*Engine)

// WithLogLevel sets the native Vosk log level. -1 silences Kaldi's log output,
// which is the default.
func WithLogLevel(level int) Option {
	return func(e *Engine) { e.logLevel = level }
}

// WithWords asks the recogniser to include per-word timing in its results.
func WithWords(enabled bool) Option {
	return func(e *Engine) { e.words = enabled }
}

// Engine implements [stt.Engine] on top of a loaded Vosk model.
type Engine struct {
	mu       sync.Mutex
	model    *voskapi.VoskModel
	recs     []*Recognizer
	logLevel int
	words    bool
}

var _ stt.Engine = (*Engine)(nil)

// New loads the Vosk model directory at modelPath.
func New(modelPath string, opts ...Option) (*Engine, error) {
	if modelPath == "" {
		return nil, errors.New("vosk: modelPath must not be empty")
	}
	e := &Engine{logLevel: -1}
	for _, o := range opts {
		o(e)
	}
	voskapi.SetLogLevel(e.logLevel)

	model, err := voskapi.NewModel(modelPath)
	if err != nil {
		return nil, fmt.Errorf("vosk: load model %q: %w", modelPath, err)
	}
	e.model = model
	slog.Info("vosk model loaded", "path", modelPath)
	return e, nil
}

// NewRecognizer creates a recogniser session for audio at sampleRate Hz.
func (e *Engine) NewRecognizer(sampleRate int) (stt.Recognizer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model == nil {
		return nil, stt.ErrEngineClosed
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("vosk: invalid sample rate %d", sampleRate)
	}
	rec, err := voskapi.NewRecognizer(e.model, float64(sampleRate))
	if err != nil {
		return nil, fmt.Errorf("vosk: create recognizer: %w", err)
	}
	if e.words {
		rec.SetWords(1)
	}
	r := newRecognizer(rec)
	e.recs = append(e.recs, r)
	return r, nil
}

// Close frees every recogniser handed out by the engine and then the model.
// Recognisers fail with [stt.ErrEngineClosed] afterwards.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range e.recs {
		r.free()
	}
	e.recs = nil
	if e.model != nil {
		e.model.Free()
		e.model = nil
	}
	return nil
}

// native is the subset of *voskapi.VoskRecognizer used by [Recognizer].
type native interface {
	AcceptWaveform(buffer []byte) int
	Result() string
	PartialResult() string
	Reset()
	Free()
}

// Recognizer implements [stt.Recognizer] over a native Vosk recogniser.
type Recognizer struct {
	mu    sync.Mutex
	rec   native // nil once freed
	final string
}

var _ stt.Recognizer = (*Recognizer)(nil)

func newRecognizer(rec native) *Recognizer {
	return &Recognizer{rec: rec}
}

func (r *Recognizer) free() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rec != nil {
		r.rec.Free()
		r.rec = nil
	}
}

// Reset starts a new utterance.
func (r *Recognizer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rec != nil {
		r.rec.Reset()
	}
	r.final = ""
}

// AcceptFrame feeds pcm to Vosk. When Vosk reports an endpoint the final text
// is read immediately so that Final stays stable until the next endpoint.
func (r *Recognizer) AcceptFrame(pcm []byte) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rec == nil {
		return false, stt.ErrEngineClosed
	}
	switch r.rec.AcceptWaveform(pcm) {
	case 0:
		return false, nil
	case 1:
		text, err := field(r.rec.Result(), "text")
		if err != nil {
			return true, err
		}
		r.final = text
		return true, nil
	default:
		return false, errors.New("vosk: accept waveform failed")
	}
}

// Partial returns the current interim hypothesis.
func (r *Recognizer) Partial() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rec == nil {
		return ""
	}
	text, err := field(r.rec.PartialResult(), "partial")
	if err != nil {
		slog.Debug("vosk: bad partial result", "err", err)
		return ""
	}
	return text
}

// Final returns the text of the last committed utterance.
func (r *Recognizer) Final() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.final
}

// field extracts a string field from a Vosk JSON result.
func field(doc, key string) (string, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal([]byte(doc), &m); err != nil {
		return "", fmt.Errorf("vosk: decode result: %w", err)
	}
	raw, ok := m[key]
	if !ok {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("vosk: decode %q: %w", key, err)
	}
	return strings.TrimSpace(s), nil
}
