// Package piper provides a Synthesizer backed by a Piper HTTP server
// (python -m piper.http_server). Piper runs fully offline and ships Hindi
// voices such as hi_IN-priyamvada-medium.
//
// Usage:
//
//	s, err := piper.New("http://localhost:5000", piper.WithLengthScale(1.2))
//	clip, err := s.Synthesize(ctx, "मैं तैयार हूँ")
package piper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MrWong99/vaani/pkg/audio"
	"github.com/MrWong99/vaani/pkg/audio/wavfile"
	"github.com/MrWong99/vaani/pkg/provider/tts"
)

const (
	defaultTimeout = 30 * time.Second

	// defaultLengthScale slows speech slightly; 1.0 is the voice's natural
	// pace.
	defaultLengthScale = 1.2
)

// Option configures a [Synthesizer].
type Option func(*Synthesizer)

// WithLengthScale sets Piper's length_scale (values above 1 speak slower).
func WithLengthScale(scale float64) Option {
	return func(s *Synthesizer) { s.lengthScale = scale }
}

// WithSpeaker selects a speaker id for multi-speaker voices.
func WithSpeaker(id int) Option {
	return func(s *Synthesizer) { s.speaker = &id }
}

// WithTimeout sets the per-request HTTP timeout. Default: 30 s.
func WithTimeout(d time.Duration) Option {
	return func(s *Synthesizer) { s.httpClient.Timeout = d }
}

// Synthesizer implements [tts.Synthesizer] against a Piper HTTP server.
type Synthesizer struct {
	serverURL   string
	lengthScale float64
	speaker     *int
	httpClient  *http.Client
}

var _ tts.Synthesizer = (*Synthesizer)(nil)

// New returns a Synthesizer for the Piper server at serverURL.
func New(serverURL string, opts ...Option) (*Synthesizer, error) {
	if serverURL == "" {
		return nil, errors.New("piper: serverURL must not be empty")
	}
	s := &Synthesizer{
		serverURL:   strings.TrimRight(serverURL, "/"),
		lengthScale: defaultLengthScale,
		httpClient:  &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

type synthesisRequest struct {
	Text        string  `json:"text"`
	LengthScale float64 `json:"length_scale,omitempty"`
	Speaker     *int    `json:"speaker_id,omitempty"`
}

// Synthesize posts text to the server and decodes the returned WAV.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) (audio.Clip, error) {
	text, err := tts.CheckText(text)
	if err != nil {
		return audio.Clip{}, err
	}
	body, err := json.Marshal(synthesisRequest{Text: text, LengthScale: s.lengthScale, Speaker: s.speaker})
	if err != nil {
		return audio.Clip{}, fmt.Errorf("piper: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.serverURL+"/", bytes.NewReader(body))
	if err != nil {
		return audio.Clip{}, fmt.Errorf("piper: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/wav")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("piper: POST /: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return audio.Clip{}, fmt.Errorf("piper: POST / returned status %d", resp.StatusCode)
	}
	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("piper: read response: %w", err)
	}
	clip, err := wavfile.Decode(bytes.NewReader(wav))
	if err != nil {
		return audio.Clip{}, fmt.Errorf("piper: %w", err)
	}
	return clip, nil
}
