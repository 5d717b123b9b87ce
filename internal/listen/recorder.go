package listen

import (
	"fmt"
	"path"
	"time"

	"github.com/spf13/afero"
	wave "github.com/zenwerk/go-wave"

	"github.com/MrWong99/vaani/pkg/audio"
)

// Recorder writes the accepted frames of each captured command to a WAV file.
// It is a debugging aid; recordings are never read back.
type Recorder struct {
	fs  afero.Fs
	dir string
	now func() time.Time
}

// NewRecorder returns a Recorder writing into dir on fs.
func NewRecorder(fs afero.Fs, dir string) *Recorder {
	return &Recorder{fs: fs, dir: dir, now: time.Now}
}

// Save writes pcm as a 16-bit WAV file named after the current time and the
// capture outcome, and returns its path.
func (r *Recorder) Save(pcm []byte, format audio.Format, outcome Outcome) (string, error) {
	if err := r.fs.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("listen: recorder: mkdir %q: %w", r.dir, err)
	}
	name := path.Join(r.dir, fmt.Sprintf("command-%s-%s.wav", r.now().Format("20060102-150405.000"), outcome))
	f, err := r.fs.Create(name)
	if err != nil {
		return "", fmt.Errorf("listen: recorder: create %q: %w", name, err)
	}

	w, err := wave.NewWriter(wave.WriterParam{
		Out:           f,
		Channel:       max(format.Channels, 1),
		SampleRate:    format.SampleRate,
		BitsPerSample: 16,
	})
	if err != nil {
		_ = f.Close()
		return "", fmt.Errorf("listen: recorder: %w", err)
	}
	if _, err := w.WriteSample16(audio.BytesToInt16(pcm)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("listen: recorder: write: %w", err)
	}
	// Close flushes the header and closes f.
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("listen: recorder: close: %w", err)
	}
	return name, nil
}
