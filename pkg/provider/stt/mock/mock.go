// Package mock provides test doubles for the stt package interfaces.
//
// Recognizer replays a scripted list of per-frame results and records every
// frame it receives. Engine hands out a preconfigured Recognizer and records
// the requested sample rates.
//
// Example:
//
//	rec := &mock.Recognizer{
//	    Script: []mock.Step{
//	        {Partial: "samay"},
//	        {Final: true, Text: "samay batao"},
//	    },
//	}
//	final, _ := rec.AcceptFrame(frame) // false, Partial() == "samay"
//	final, _ = rec.AcceptFrame(frame)  // true, Final() == "samay batao"
package mock

import (
	"sync"

	"github.com/MrWong99/vaani/pkg/provider/stt"
)

// Step is the scripted outcome of one AcceptFrame call.
type Step struct {
	// Final reports the frame as completing an utterance.
	Final bool

	// Text becomes the value of Final() when Final is true.
	Text string

	// Partial, if non-empty, replaces the value returned by Partial().
	Partial string

	// Err is returned from AcceptFrame.
	Err error
}

// Recognizer is a mock implementation of [stt.Recognizer].
type Recognizer struct {
	mu sync.Mutex

	// Script holds the outcome of each AcceptFrame call in order. Once it is
	// exhausted AcceptFrame returns (false, nil).
	Script []Step

	// --- Call records ---

	// Frames records a copy of every frame passed to AcceptFrame.
	Frames [][]byte

	// ResetCallCount is the number of times Reset was called.
	ResetCallCount int

	step    int
	partial string
	final   string
}

// Reset records the call and clears the current partial and final text. The
// script position is kept.
func (r *Recognizer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ResetCallCount++
	r.partial = ""
	r.final = ""
}

// AcceptFrame records the frame and applies the next scripted step.
func (r *Recognizer) AcceptFrame(pcm []byte) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]byte, len(pcm))
	copy(cp, pcm)
	r.Frames = append(r.Frames, cp)

	if r.step >= len(r.Script) {
		return false, nil
	}
	s := r.Script[r.step]
	r.step++
	if s.Partial != "" {
		r.partial = s.Partial
	}
	if s.Final {
		r.final = s.Text
		r.partial = ""
	}
	return s.Final, s.Err
}

// Partial returns the current scripted partial.
func (r *Recognizer) Partial() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.partial
}

// Final returns the last scripted final text.
func (r *Recognizer) Final() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.final
}

// FrameCount returns the number of AcceptFrame calls. Thread-safe.
func (r *Recognizer) FrameCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Frames)
}

var _ stt.Recognizer = (*Recognizer)(nil)

// Engine is a mock implementation of [stt.Engine].
type Engine struct {
	mu sync.Mutex

	// Recognizer is returned by NewRecognizer. When nil a fresh empty
	// [Recognizer] is returned.
	Recognizer stt.Recognizer

	// NewRecognizerErr, if non-nil, is returned by NewRecognizer.
	NewRecognizerErr error

	// SampleRates records the sampleRate argument of every NewRecognizer call.
	SampleRates []int

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int
}

// NewRecognizer records the call and returns Recognizer or NewRecognizerErr.
func (e *Engine) NewRecognizer(sampleRate int) (stt.Recognizer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.SampleRates = append(e.SampleRates, sampleRate)
	if e.NewRecognizerErr != nil {
		return nil, e.NewRecognizerErr
	}
	if e.Recognizer != nil {
		return e.Recognizer, nil
	}
	return &Recognizer{}, nil
}

// Close records the call.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.CloseCallCount++
	return nil
}

var _ stt.Engine = (*Engine)(nil)
