// Package mock provides a test double for [tts.Synthesizer].
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/vaani/pkg/audio"
	"github.com/MrWong99/vaani/pkg/provider/tts"
)

// Synthesizer is a mock implementation of [tts.Synthesizer]. Every call
// returns Clip (or a one-sample 16 kHz clip when Clip is empty) unless Err is
// set.
type Synthesizer struct {
	mu sync.Mutex

	// Clip is returned by Synthesize.
	Clip audio.Clip

	// Err, if non-nil, is returned by every Synthesize call.
	Err error

	// Texts records the text of every Synthesize call.
	Texts []string
}

// Synthesize records the call and returns Clip or Err.
func (s *Synthesizer) Synthesize(_ context.Context, text string) (audio.Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Texts = append(s.Texts, text)
	if s.Err != nil {
		return audio.Clip{}, s.Err
	}
	if s.Clip.PCM == nil {
		return audio.Clip{PCM: []byte{0, 0}, Format: audio.Format{SampleRate: 16000, Channels: 1}}, nil
	}
	return s.Clip, nil
}

// Spoken returns a copy of all synthesised texts. Thread-safe.
func (s *Synthesizer) Spoken() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.Texts...)
}

var _ tts.Synthesizer = (*Synthesizer)(nil)
