package resilience

import (
	"context"
	"errors"

	"github.com/MrWong99/vaani/pkg/audio"
	"github.com/MrWong99/vaani/pkg/provider/tts"
)

// TTSFallback implements [tts.Synthesizer] with failover across several
// voices. Blank text is rejected up front and never trips a breaker.
type TTSFallback struct {
	group *FallbackGroup[tts.Synthesizer]
}

var _ tts.Synthesizer = (*TTSFallback)(nil)

// NewTTSFallback creates a [TTSFallback] with primary as the preferred backend.
func NewTTSFallback(primary tts.Synthesizer, primaryName string, cfg FallbackConfig) *TTSFallback {
	if cfg.Kind == "" {
		cfg.Kind = "tts"
	}
	if cfg.CircuitBreaker.Ignore == nil {
		cfg.CircuitBreaker.Ignore = func(err error) bool {
			return IsCallerError(err) || errors.Is(err, tts.ErrEmptyText)
		}
	}
	return &TTSFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers an additional synthesizer as a fallback.
func (f *TTSFallback) AddFallback(name string, synth tts.Synthesizer) {
	f.group.AddFallback(name, synth)
}

// Healthy reports whether any backend is currently accepting calls.
func (f *TTSFallback) Healthy() bool { return f.group.Healthy() }

// Synthesize renders text with the first healthy synthesizer. A clip without
// samples counts as a failure.
func (f *TTSFallback) Synthesize(ctx context.Context, text string) (audio.Clip, error) {
	text, err := tts.CheckText(text)
	if err != nil {
		return audio.Clip{}, err
	}
	return ExecuteWithResult(ctx, f.group, func(s tts.Synthesizer) (audio.Clip, error) {
		clip, err := s.Synthesize(ctx, text)
		if err != nil {
			return audio.Clip{}, err
		}
		if len(clip.PCM) == 0 {
			return audio.Clip{}, errNoAudio
		}
		return clip, nil
	})
}

var errNoAudio = errors.New("tts: synthesizer returned no audio")
