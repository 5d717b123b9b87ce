// Package coqui provides a Synthesizer backed by a locally running Coqui TTS
// server.
//
// Two API modes are supported:
//
//   - APIModeStandard (default): the standard Coqui TTS server
//     (ghcr.io/coqui-ai/tts-cpu). Synthesis is GET /api/tts with URL query
//     parameters.
//
//   - APIModeXTTS: the Coqui XTTS v2 API server. Synthesis is
//     POST /tts_to_audio/ with a JSON body and a reference speaker.
//
// Both servers answer with a WAV file which is decoded into an [audio.Clip].
//
// Typical usage:
//
//	s, err := coqui.New("http://localhost:8002",
//	    coqui.WithAPIMode(coqui.APIModeXTTS),
//	    coqui.WithSpeaker("speakers/priya.wav"),
//	)
//	clip, err := s.Synthesize(ctx, "हाँ बताइए")
package coqui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrWong99/vaani/pkg/audio"
	"github.com/MrWong99/vaani/pkg/audio/wavfile"
	"github.com/MrWong99/vaani/pkg/provider/tts"
)

const (
	defaultLanguage = "hi"
	defaultTimeout  = 30 * time.Second
	xttsEndpoint    = "/tts_to_audio/"
	apiTTSEndpoint  = "/api/tts"
)

// APIMode selects which Coqui server API the synthesizer targets.
type APIMode string

const (
	// APIModeXTTS targets the Coqui XTTS v2 API server (/tts_to_audio/).
	APIModeXTTS APIMode = "xtts"

	// APIModeStandard targets the standard Coqui TTS server (/api/tts).
	APIModeStandard APIMode = "standard"
)

// IsValid reports whether m is a known mode.
func (m APIMode) IsValid() bool {
	return m == APIModeXTTS || m == APIModeStandard
}

// Option is a functional option for configuring a Synthesizer.
type Option func(*Synthesizer)

// WithLanguage sets the language code sent to the server. Defaults to "hi".
func WithLanguage(lang string) Option {
	return func(s *Synthesizer) { s.language = lang }
}

// WithSpeaker sets the speaker: a speaker_id for the standard server, or the
// reference speaker_wav for XTTS.
func WithSpeaker(speaker string) Option {
	return func(s *Synthesizer) { s.speaker = speaker }
}

// WithTimeout sets the per-request HTTP timeout. Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(s *Synthesizer) { s.httpClient.Timeout = d }
}

// WithAPIMode sets the server API mode. Defaults to APIModeStandard.
func WithAPIMode(mode APIMode) Option {
	return func(s *Synthesizer) { s.apiMode = mode }
}

// Synthesizer implements [tts.Synthesizer] backed by a Coqui TTS server.
type Synthesizer struct {
	serverURL  string
	language   string
	speaker    string
	apiMode    APIMode
	httpClient *http.Client
}

var _ tts.Synthesizer = (*Synthesizer)(nil)

// New creates a Synthesizer targeting the server at serverURL
// (e.g. "http://localhost:5002").
func New(serverURL string, opts ...Option) (*Synthesizer, error) {
	if serverURL == "" {
		return nil, errors.New("coqui: serverURL must not be empty")
	}
	s := &Synthesizer{
		serverURL:  strings.TrimRight(serverURL, "/"),
		language:   defaultLanguage,
		apiMode:    APIModeStandard,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(s)
	}
	if !s.apiMode.IsValid() {
		return nil, fmt.Errorf("coqui: unknown api mode %q", s.apiMode)
	}
	return s, nil
}

// xttsRequest is the JSON body sent to POST /tts_to_audio/.
type xttsRequest struct {
	Text       string `json:"text"`
	SpeakerWav string `json:"speaker_wav"`
	Language   string `json:"language"`
}

// Synthesize renders text with the configured API mode.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) (audio.Clip, error) {
	text, err := tts.CheckText(text)
	if err != nil {
		return audio.Clip{}, err
	}

	var req *http.Request
	if s.apiMode == APIModeXTTS {
		req, err = s.xttsRequest(ctx, text)
	} else {
		req, err = s.standardRequest(ctx, text)
	}
	if err != nil {
		return audio.Clip{}, err
	}
	req.Header.Set("Accept", "audio/wav")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("coqui: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return audio.Clip{}, fmt.Errorf("coqui: %s %s returned status %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("coqui: read WAV response: %w", err)
	}
	clip, err := wavfile.Decode(bytes.NewReader(wav))
	if err != nil {
		return audio.Clip{}, fmt.Errorf("coqui: %w", err)
	}
	return clip, nil
}

func (s *Synthesizer) xttsRequest(ctx context.Context, text string) (*http.Request, error) {
	data, err := json.Marshal(xttsRequest{Text: text, SpeakerWav: s.speaker, Language: s.language})
	if err != nil {
		return nil, fmt.Errorf("coqui: marshal tts request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.serverURL+xttsEndpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("coqui: create tts request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (s *Synthesizer) standardRequest(ctx context.Context, text string) (*http.Request, error) {
	params := url.Values{}
	params.Set("text", text)
	if s.speaker != "" {
		params.Set("speaker_id", s.speaker)
	}
	if s.language != "" {
		params.Set("language_id", s.language)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.serverURL+apiTTSEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("coqui: create tts request: %w", err)
	}
	return req, nil
}
