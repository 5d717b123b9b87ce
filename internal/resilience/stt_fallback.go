package resilience

import (
	"context"
	"errors"

	"github.com/MrWong99/vaani/pkg/provider/stt"
)

// STTFallback implements [stt.Engine] with failover at session creation. Once
// a recognizer has been handed out it is used as is; a model that loads but
// misbehaves mid-utterance is not detected here.
type STTFallback struct {
	group *FallbackGroup[stt.Engine]
}

var _ stt.Engine = (*STTFallback)(nil)

// NewSTTFallback creates an [STTFallback] with primary as the preferred engine.
func NewSTTFallback(primary stt.Engine, primaryName string, cfg FallbackConfig) *STTFallback {
	if cfg.Kind == "" {
		cfg.Kind = "stt"
	}
	return &STTFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers an additional engine as a fallback.
func (f *STTFallback) AddFallback(name string, engine stt.Engine) {
	f.group.AddFallback(name, engine)
}

// Healthy reports whether any engine is currently accepting calls.
func (f *STTFallback) Healthy() bool { return f.group.Healthy() }

// NewRecognizer opens a session on the first engine that can create one.
func (f *STTFallback) NewRecognizer(sampleRate int) (stt.Recognizer, error) {
	return ExecuteWithResult(context.Background(), f.group, func(e stt.Engine) (stt.Recognizer, error) {
		return e.NewRecognizer(sampleRate)
	})
}

// Close closes every engine and joins their errors.
func (f *STTFallback) Close() error {
	var errs []error
	for _, e := range f.group.entries {
		if err := e.value.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
