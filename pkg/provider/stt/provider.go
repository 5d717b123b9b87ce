// Package stt defines the Recognizer and Engine interfaces for streaming
// Speech-to-Text backends.
//
// A Recognizer is a stateful session fed one PCM frame at a time by a single
// caller. After every frame it reports whether the engine committed an
// utterance-final result; the committed text is then available from Final,
// while Partial exposes the engine's current interim hypothesis. The caller
// owns the session and decides when to Reset it.
//
// An Engine owns the loaded acoustic model and hands out recognizers. Loading
// a model is expensive, so engines are created once at startup and shared.
//
// Recognizers are NOT safe for concurrent use. Engines are.
package stt

import "errors"

// ErrEngineClosed is returned by NewRecognizer after the engine was closed.
var ErrEngineClosed = errors.New("stt: engine is closed")

// Recognizer is a single streaming recognition session over 16-bit signed
// little-endian mono PCM at the sample rate it was created with.
type Recognizer interface {
	// Reset discards all buffered audio and hypotheses and starts a fresh
	// utterance.
	Reset()

	// AcceptFrame feeds one frame of PCM audio. It returns true when the engine
	// considers the current utterance complete; Final then returns its text.
	// An error means the frame could not be processed. The session stays
	// usable after an error.
	AcceptFrame(pcm []byte) (final bool, err error)

	// Partial returns the engine's current interim hypothesis, or "" if there
	// is none.
	Partial() string

	// Final returns the text of the most recently committed utterance, or ""
	// if the engine committed silence.
	Final() string
}

// Engine is a loaded speech model that creates recognizer sessions.
type Engine interface {
	// NewRecognizer creates a session for audio at sampleRate Hz.
	NewRecognizer(sampleRate int) (Recognizer, error)

	// Close releases the model. Recognizers created from the engine must not
	// be used afterwards.
	Close() error
}
