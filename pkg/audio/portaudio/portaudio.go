// Package portaudio implements [audio.Source] and [audio.Sink] on top of the
// PortAudio default input and output devices.
//
// PortAudio must be initialised once per process; [Init] does that and
// returns the matching terminate function. Both the microphone and the
// speaker use 16-bit mono PCM.
package portaudio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	pa "github.com/gordonklaus/portaudio"

	"github.com/MrWong99/vaani/pkg/audio"
)

const (
	defaultSampleRate = 16000

	// defaultBufferSamples is the PortAudio host buffer size. Reads of any
	// frame size are assembled from whole host buffers.
	defaultBufferSamples = 512
)

// Init initialises PortAudio. The returned function terminates it and must
// be called after every stream has been closed.
func Init() (terminate func() error, err error) {
	if err := pa.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: initialise: %w: %w", audio.ErrDevice, err)
	}
	return pa.Terminate, nil
}

// Option configures a [Microphone].
type Option func(*Microphone)

// WithSampleRate sets the capture sample rate in Hz. Default: 16000.
func WithSampleRate(rate int) Option {
	return func(m *Microphone) {
		if rate > 0 {
			m.sampleRate = rate
		}
	}
}

// WithBufferSamples sets the host buffer size in samples. Default: 512.
func WithBufferSamples(n int) Option {
	return func(m *Microphone) {
		if n > 0 {
			m.bufferSamples = n
		}
	}
}

// Microphone captures mono PCM from the default input device.
type Microphone struct {
	sampleRate    int
	bufferSamples int

	stream  *pa.Stream
	buf     []int16
	pending []int16
}

var _ audio.Source = (*Microphone)(nil)

// NewMicrophone returns an unopened [Microphone].
func NewMicrophone(opts ...Option) *Microphone {
	m := &Microphone{
		sampleRate:    defaultSampleRate,
		bufferSamples: defaultBufferSamples,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Open opens and starts the default input stream.
func (m *Microphone) Open() error {
	if m.stream != nil {
		return nil
	}
	m.buf = make([]int16, m.bufferSamples)
	stream, err := pa.OpenDefaultStream(1, 0, float64(m.sampleRate), len(m.buf), m.buf)
	if err != nil {
		return fmt.Errorf("portaudio: open input: %w: %w", audio.ErrDevice, err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return fmt.Errorf("portaudio: start input: %w: %w", audio.ErrDevice, err)
	}
	m.stream = stream
	m.pending = m.pending[:0]
	slog.Debug("microphone opened", "sample_rate", m.sampleRate, "buffer", m.bufferSamples)
	return nil
}

// Read blocks until frameSize samples have been captured.
func (m *Microphone) Read(frameSize int) ([]byte, error) {
	if m.stream == nil {
		return nil, fmt.Errorf("portaudio: read on closed microphone: %w", audio.ErrDevice)
	}
	for len(m.pending) < frameSize {
		if err := m.stream.Read(); err != nil {
			if errors.Is(err, pa.InputOverflowed) {
				// Dropped host samples; the data in buf is still valid.
				slog.Debug("microphone input overflowed")
			} else {
				return nil, fmt.Errorf("portaudio: read: %w: %w", audio.ErrDevice, err)
			}
		}
		m.pending = append(m.pending, m.buf...)
	}
	frame := audio.Int16ToBytes(m.pending[:frameSize])
	m.pending = append(m.pending[:0], m.pending[frameSize:]...)
	return frame, nil
}

// Close stops and closes the input stream.
func (m *Microphone) Close() error {
	if m.stream == nil {
		return nil
	}
	stream := m.stream
	m.stream = nil
	if err := stream.Stop(); err != nil {
		slog.Warn("microphone stop failed", "err", err)
	}
	return stream.Close()
}

// Format reports 16-bit mono at the configured sample rate.
func (m *Microphone) Format() audio.Format {
	return audio.Format{SampleRate: m.sampleRate, Channels: 1}
}

// Speaker plays mono PCM on the default output device. Clips in another
// format are converted to the speaker's sample rate before playback.
type Speaker struct {
	sampleRate    int
	bufferSamples int
}

var _ audio.Sink = (*Speaker)(nil)

// NewSpeaker returns a [Speaker] playing at sampleRate Hz.
func NewSpeaker(sampleRate int) *Speaker {
	if sampleRate <= 0 {
		sampleRate = defaultSampleRate
	}
	return &Speaker{sampleRate: sampleRate, bufferSamples: defaultBufferSamples}
}

// Play renders clip, blocking until the last buffer has been written or ctx
// is cancelled. A stream is opened per clip so the output device is idle
// while the microphone is listening.
func (s *Speaker) Play(ctx context.Context, clip audio.Clip) error {
	clip = audio.ConvertClip(clip, audio.Format{SampleRate: s.sampleRate, Channels: 1})
	samples := audio.BytesToInt16(clip.PCM)
	if len(samples) == 0 {
		return nil
	}

	out := make([]int16, s.bufferSamples)
	stream, err := pa.OpenDefaultStream(0, 1, float64(s.sampleRate), len(out), out)
	if err != nil {
		return fmt.Errorf("portaudio: open output: %w: %w", audio.ErrDevice, err)
	}
	defer stream.Close()
	if err := stream.Start(); err != nil {
		return fmt.Errorf("portaudio: start output: %w: %w", audio.ErrDevice, err)
	}
	defer stream.Stop()

	for off := 0; off < len(samples); off += len(out) {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := copy(out, samples[off:])
		clear(out[n:])
		if err := stream.Write(); err != nil {
			return fmt.Errorf("portaudio: write: %w: %w", audio.ErrDevice, err)
		}
	}
	return nil
}

// Close is a no-op; streams are closed after every clip.
func (s *Speaker) Close() error { return nil }
