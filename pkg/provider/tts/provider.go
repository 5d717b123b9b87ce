// Package tts defines the Synthesizer interface for Text-to-Speech backends.
//
// A Synthesizer turns one short reply into a complete [audio.Clip]. Replies
// in a voice assistant are a sentence or two, so synthesis is a single
// blocking call rather than a stream; the caller plays the clip on an
// [audio.Sink] once it is ready.
//
// Implementations must be safe for concurrent use.
package tts

import (
	"context"
	"errors"
	"strings"

	"github.com/MrWong99/vaani/pkg/audio"
)

// ErrEmptyText is returned when asked to synthesise blank text.
var ErrEmptyText = errors.New("tts: empty text")

// Synthesizer renders text as speech.
type Synthesizer interface {
	// Synthesize returns the spoken rendition of text. It returns ErrEmptyText
	// for blank input.
	Synthesize(ctx context.Context, text string) (audio.Clip, error)
}

// CheckText trims text and returns ErrEmptyText when nothing is left.
func CheckText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}
	return text, nil
}
