// Package mock provides in-memory implementations of [audio.Source] and
// [audio.Sink] for unit tests.
//
// Source replays a scripted list of frames and records every Read; Sink
// records every clip it is asked to play.
//
// Typical usage:
//
//	src := &mock.Source{
//	    Frames: [][]byte{loud, loud},
//	    Tail:   quiet, // returned forever once Frames is exhausted
//	}
//	frame, err := src.Read(4000)
package mock

import (
	"context"
	"io"
	"sync"

	"github.com/MrWong99/vaani/pkg/audio"
)

// ─── Source ───────────────────────────────────────────────────────────────────

// Source is a mock implementation of [audio.Source].
type Source struct {
	mu sync.Mutex

	// Frames are returned by Read in order.
	Frames [][]byte

	// Tail, if non-nil, is returned by every Read after Frames is exhausted.
	// When nil, an exhausted Source returns io.EOF.
	Tail []byte

	// ReadErr, if non-nil, is returned by Read once ReadErrAt frames have been
	// delivered.
	ReadErr error

	// ReadErrAt is the number of successful reads before ReadErr is returned.
	ReadErrAt int

	// OpenErr is returned by Open.
	OpenErr error

	// SourceFormat is returned by Format. Defaults to 16 kHz mono.
	SourceFormat audio.Format

	// OnRead, if set, is called after every Read with the zero-based read
	// index. Tests use it to advance a fake clock.
	OnRead func(i int)

	// --- Call records ---

	// ReadSizes records the frameSize argument of every Read.
	ReadSizes []int

	// OpenCallCount is the number of times Open was called.
	OpenCallCount int

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int

	next int
}

// Open records the call and returns OpenErr.
func (s *Source) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.OpenCallCount++
	return s.OpenErr
}

// Read returns the next scripted frame.
func (s *Source) Read(frameSize int) ([]byte, error) {
	s.mu.Lock()
	i := len(s.ReadSizes)
	s.ReadSizes = append(s.ReadSizes, frameSize)

	var (
		frame []byte
		err   error
	)
	switch {
	case s.ReadErr != nil && i >= s.ReadErrAt:
		err = s.ReadErr
	case s.next < len(s.Frames):
		frame = s.Frames[s.next]
		s.next++
	case s.Tail != nil:
		frame = s.Tail
	default:
		err = io.EOF
	}
	onRead := s.OnRead
	s.mu.Unlock()

	if onRead != nil {
		onRead(i)
	}
	return frame, err
}

// Close records the call.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCallCount++
	return nil
}

// Format returns SourceFormat, defaulting to 16 kHz mono.
func (s *Source) Format() audio.Format {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SourceFormat.SampleRate == 0 {
		return audio.Format{SampleRate: 16000, Channels: 1}
	}
	return s.SourceFormat
}

// ReadCount returns the number of Read calls so far. Thread-safe.
func (s *Source) ReadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ReadSizes)
}

var _ audio.Source = (*Source)(nil)

// ─── Sink ─────────────────────────────────────────────────────────────────────

// Sink is a mock implementation of [audio.Sink].
type Sink struct {
	mu sync.Mutex

	// PlayErr, if non-nil, is returned by every Play call.
	PlayErr error

	// Played records every clip passed to Play.
	Played []audio.Clip

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int
}

// Play records the clip and returns PlayErr.
func (s *Sink) Play(_ context.Context, clip audio.Clip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Played = append(s.Played, clip)
	return s.PlayErr
}

// Close records the call.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCallCount++
	return nil
}

// PlayCount returns the number of Play calls. Thread-safe.
func (s *Sink) PlayCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Played)
}

var _ audio.Sink = (*Sink)(nil)
