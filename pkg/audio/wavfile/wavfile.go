// Package wavfile replays WAV recordings as an [audio.Source], writes played
// clips as WAV files through a [Sink] and decodes WAV payloads into
// [audio.Clip] values.
//
// Only 16-bit PCM WAV is supported. Multi-channel recordings are down-mixed
// to mono so that the replayed frames match what a microphone would deliver.
package wavfile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sync"

	"github.com/go-audio/wav"
	"github.com/spf13/afero"
	wave "github.com/zenwerk/go-wave"

	"github.com/MrWong99/vaani/pkg/audio"
)

// ErrUnsupported is returned for WAV data that is not 16-bit PCM.
var ErrUnsupported = errors.New("wavfile: unsupported wav format")

// Decode reads a complete 16-bit PCM WAV stream into a clip.
func Decode(r io.ReadSeeker) (audio.Clip, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return audio.Clip{}, fmt.Errorf("%w: not a valid wav file", ErrUnsupported)
	}
	if dec.BitDepth != 16 {
		return audio.Clip{}, fmt.Errorf("%w: bit depth %d", ErrUnsupported, dec.BitDepth)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return audio.Clip{}, fmt.Errorf("wavfile: decode: %w", err)
	}

	samples := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = int16(v)
	}
	return audio.Clip{
		PCM: audio.Int16ToBytes(samples),
		Format: audio.Format{
			SampleRate: int(dec.SampleRate),
			Channels:   int(dec.NumChans),
		},
	}, nil
}

// Encode returns clip as a 16-bit PCM WAV file. A trailing partial sample
// frame is dropped.
func Encode(clip audio.Clip) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, clip); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write encodes clip as a 16-bit PCM WAV file to out. out is not closed.
func Write(out io.Writer, clip audio.Clip) error {
	channels := max(clip.Format.Channels, 1)
	w, err := wave.NewWriter(wave.WriterParam{
		Out:           nopCloser{out},
		Channel:       channels,
		SampleRate:    clip.Format.SampleRate,
		BitsPerSample: 16,
	})
	if err != nil {
		return fmt.Errorf("wavfile: encode: %w", err)
	}
	block := channels * audio.BytesPerSample
	// The writer rejects writes shorter than one block.
	if pcm := clip.PCM[:len(clip.PCM)/block*block]; len(pcm) > 0 {
		if _, err := w.Write(pcm); err != nil {
			return fmt.Errorf("wavfile: encode: %w", err)
		}
	}
	// Close writes the header and data.
	if err := w.Close(); err != nil {
		return fmt.Errorf("wavfile: encode: %w", err)
	}
	return nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// Source replays a WAV file frame by frame. The whole file is decoded on
// Open; Read then slices it. Once exhausted, Read returns io.EOF.
type Source struct {
	fs   afero.Fs
	path string

	pcm    []byte
	format audio.Format
	pos    int
	open   bool
}

var _ audio.Source = (*Source)(nil)

// NewSource returns a Source that will replay the WAV file at path on fs.
func NewSource(fs afero.Fs, path string) *Source {
	return &Source{fs: fs, path: path}
}

// Open decodes the file.
func (s *Source) Open() error {
	if s.open {
		return nil
	}
	f, err := s.fs.Open(s.path)
	if err != nil {
		return fmt.Errorf("wavfile: open %q: %w: %w", s.path, audio.ErrDevice, err)
	}
	defer f.Close()

	clip, err := Decode(f)
	if err != nil {
		return fmt.Errorf("wavfile: %q: %w: %w", s.path, audio.ErrDevice, err)
	}
	if clip.Format.Channels == 2 {
		clip.PCM = audio.StereoToMono(clip.PCM)
		clip.Format.Channels = 1
	}
	s.pcm = clip.PCM
	s.format = clip.Format
	s.pos = 0
	s.open = true
	return nil
}

// Read returns the next frameSize samples. The final frame may be short.
func (s *Source) Read(frameSize int) ([]byte, error) {
	if !s.open {
		return nil, fmt.Errorf("wavfile: read before open: %w", audio.ErrDevice)
	}
	if s.pos >= len(s.pcm) {
		return nil, io.EOF
	}
	end := min(s.pos+frameSize*audio.BytesPerSample, len(s.pcm))
	frame := s.pcm[s.pos:end]
	s.pos = end
	return frame, nil
}

// Close releases the decoded samples.
func (s *Source) Close() error {
	s.pcm = nil
	s.open = false
	return nil
}

// Format reports the decoded format (always mono after Open).
func (s *Source) Format() audio.Format {
	return s.format
}

// Sink writes every played clip to a numbered WAV file in a directory. It
// stands in for a speaker in offline runs.
type Sink struct {
	fs  afero.Fs
	dir string

	mu sync.Mutex
	n  int
}

var _ audio.Sink = (*Sink)(nil)

// NewSink returns a Sink writing reply-NNN.wav files into dir on fs.
func NewSink(fs afero.Fs, dir string) *Sink {
	return &Sink{fs: fs, dir: dir}
}

// Play writes clip as the next numbered file.
func (s *Sink) Play(ctx context.Context, clip audio.Clip) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("wavfile: create %q: %w: %w", s.dir, audio.ErrDevice, err)
	}
	s.n++
	name := path.Join(s.dir, fmt.Sprintf("reply-%03d.wav", s.n))
	f, err := s.fs.Create(name)
	if err != nil {
		return fmt.Errorf("wavfile: create %q: %w: %w", name, audio.ErrDevice, err)
	}
	if err := Write(f, clip); err != nil {
		_ = f.Close()
		return fmt.Errorf("wavfile: write %q: %w: %w", name, audio.ErrDevice, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("wavfile: close %q: %w: %w", name, audio.ErrDevice, err)
	}
	return nil
}

// Close is a no-op.
func (s *Sink) Close() error { return nil }
