// Package audio defines the interfaces for local audio capture and playback
// used by the vaani voice pipeline.
//
// The two primary abstractions are:
//
//   - [Source]: a blocking, frame-oriented capture device (microphone, WAV
//     file replay). The listeners pull fixed-size frames from it.
//   - [Sink]: a playback device that renders a complete PCM [Clip].
//
// All PCM in this package is 16-bit signed little-endian. Implementations of
// both interfaces live in sub-packages (audio/portaudio, audio/wavfile) so
// that callers only link the native libraries they actually use.
package audio

import (
	"context"
	"errors"
	"time"
)

// ErrDevice is the sentinel wrapped by Source and Sink implementations when
// the underlying device fails to open, read, or write. Callers use
// errors.Is(err, ErrDevice) to tell device faults from end-of-stream.
var ErrDevice = errors.New("audio: device error")

// BytesPerSample is the width of one PCM sample in bytes.
const BytesPerSample = 2

// Format describes the sample rate and channel count of an audio stream.
type Format struct {
	SampleRate int
	Channels   int
}

// FrameDuration returns how long a frame of frameSize samples per channel
// lasts at the given format. Returns 0 for an invalid format.
func (f Format) FrameDuration(frameSize int) time.Duration {
	if f.SampleRate <= 0 || frameSize <= 0 {
		return 0
	}
	return time.Duration(frameSize) * time.Second / time.Duration(f.SampleRate)
}

// Source is a blocking capture device.
//
// Read blocks until frameSize samples per channel are available and returns
// them as raw PCM bytes (len = frameSize * Channels * BytesPerSample, except
// possibly for the final frame of a finite source). A finite source returns
// io.EOF once exhausted. Device faults are reported wrapped in [ErrDevice].
//
// A Source is owned by a single goroutine; implementations need not be safe
// for concurrent use.
type Source interface {
	// Open acquires the device. Calling Open on an open Source is a no-op.
	Open() error

	// Read returns the next frame of frameSize samples per channel.
	Read(frameSize int) ([]byte, error)

	// Close releases the device. Calling Close more than once is safe.
	Close() error

	// Format reports the PCM format Read produces.
	Format() Format
}

// Clip is a complete piece of PCM audio ready for playback.
type Clip struct {
	// PCM holds 16-bit little-endian samples, interleaved if Channels > 1.
	PCM []byte

	// Format of PCM.
	Format Format
}

// Duration returns the playback length of the clip.
func (c Clip) Duration() time.Duration {
	if c.Format.SampleRate <= 0 || c.Format.Channels <= 0 {
		return 0
	}
	samples := len(c.PCM) / (BytesPerSample * c.Format.Channels)
	return time.Duration(samples) * time.Second / time.Duration(c.Format.SampleRate)
}

// Sink plays audio clips. Play blocks until the clip has been rendered or ctx
// is cancelled. Capture and playback are strictly sequential in vaani, so a
// Sink is never used while a Source is being read.
type Sink interface {
	Play(ctx context.Context, clip Clip) error
	Close() error
}
