package whisper

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/MrWong99/vaani/pkg/audio"
	"github.com/MrWong99/vaani/pkg/provider/stt"
)

// modelSampleRate is the only input rate whisper.cpp accepts.
const modelSampleRate = 16000

// NativeEngine implements [stt.Engine] with an in-process whisper.cpp model.
// The model is loaded once and shared; every transcription runs in a fresh
// whisper context.
type NativeEngine struct {
	mu    sync.Mutex
	model whisperlib.Model
	cfg   settings
}

var _ stt.Engine = (*NativeEngine)(nil)

// NewNative loads the ggml model at modelPath.
func NewNative(modelPath string, opts ...Option) (*NativeEngine, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	cfg := defaultSettings()
	for _, o := range opts {
		o(&cfg)
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}
	return &NativeEngine{model: model, cfg: cfg}, nil
}

// NewRecognizer creates a recogniser session for audio at sampleRate Hz.
// whisper.cpp expects 16 kHz input; other rates are resampled.
func (e *NativeEngine) NewRecognizer(sampleRate int) (stt.Recognizer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model == nil {
		return nil, stt.ErrEngineClosed
	}
	return newRecognizer(e.cfg, sampleRate, e.infer), nil
}

// Close releases the model.
func (e *NativeEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model == nil {
		return nil
	}
	err := e.model.Close()
	e.model = nil
	return err
}

// infer runs whisper.cpp over pcm and joins the resulting segments.
func (e *NativeEngine) infer(pcm []byte, sampleRate int) (string, error) {
	e.mu.Lock()
	model := e.model
	e.mu.Unlock()
	if model == nil {
		return "", stt.ErrEngineClosed
	}

	pcm = audio.ResampleMono16(pcm, sampleRate, modelSampleRate)
	samples := audio.PCMToFloat32Mono(pcm, 1)

	// Contexts are not thread-safe; the model is.
	wctx, err := model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whisper: create context: %w", err)
	}
	if err := wctx.SetLanguage(e.cfg.language); err != nil {
		slog.Warn("whisper: failed to set language, using default", "language", e.cfg.language, "err", err)
	}
	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whisper: read segment: %w", err)
		}
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}
