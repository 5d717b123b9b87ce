// Package elevenlabs provides a Synthesizer backed by the ElevenLabs
// streaming WebSocket API. The multilingual flash models speak Hindi.
package elevenlabs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/coder/websocket"

	"github.com/MrWong99/vaani/pkg/audio"
	"github.com/MrWong99/vaani/pkg/provider/tts"
)

const (
	defaultEndpoint  = "wss://api.elevenlabs.io"
	streamPathFmt    = "/v1/text-to-speech/%s/stream-input?model_id=%s&output_format=%s"
	defaultModel     = "eleven_flash_v2_5"
	defaultOutputFmt = "pcm_16000"
)

// Option is a functional option for configuring the Synthesizer.
type Option func(*Synthesizer)

// WithModel sets the ElevenLabs model ID (e.g., "eleven_flash_v2_5").
func WithModel(model string) Option {
	return func(s *Synthesizer) { s.model = model }
}

// WithOutputFormat sets the PCM output format ("pcm_16000", "pcm_22050",
// "pcm_24000" or "pcm_44100").
func WithOutputFormat(format string) Option {
	return func(s *Synthesizer) { s.outputFormat = format }
}

// WithEndpoint overrides the WebSocket base URL.
func WithEndpoint(endpoint string) Option {
	return func(s *Synthesizer) { s.endpoint = strings.TrimRight(endpoint, "/") }
}

// Synthesizer implements [tts.Synthesizer] backed by the ElevenLabs
// streaming API.
type Synthesizer struct {
	apiKey       string
	voiceID      string
	model        string
	outputFormat string
	endpoint     string
	sampleRate   int
}

var _ tts.Synthesizer = (*Synthesizer)(nil)

// New creates a Synthesizer speaking with voiceID. apiKey and voiceID must be
// non-empty.
func New(apiKey, voiceID string, opts ...Option) (*Synthesizer, error) {
	if apiKey == "" {
		return nil, errors.New("elevenlabs: apiKey must not be empty")
	}
	if voiceID == "" {
		return nil, errors.New("elevenlabs: voiceID must not be empty")
	}
	s := &Synthesizer{
		apiKey:       apiKey,
		voiceID:      voiceID,
		model:        defaultModel,
		outputFormat: defaultOutputFmt,
		endpoint:     defaultEndpoint,
	}
	for _, o := range opts {
		o(s)
	}
	rate, err := pcmRate(s.outputFormat)
	if err != nil {
		return nil, err
	}
	s.sampleRate = rate
	return s, nil
}

// textMessage is the JSON payload sent for each text fragment.
type textMessage struct {
	Text          string         `json:"text"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
	XiAPIKey      string         `json:"xi_api_key,omitempty"`
}

// voiceSettings mirrors the ElevenLabs voice_settings object.
type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// audioResponse is a message received over the WebSocket.
type audioResponse struct {
	Audio   string `json:"audio"` // base64-encoded PCM
	IsFinal bool   `json:"isFinal"`
	Message string `json:"message,omitempty"`
}

// Synthesize opens a stream, sends text followed by the end-of-input marker
// and collects all audio until the server reports the final chunk.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) (audio.Clip, error) {
	text, err := tts.CheckText(text)
	if err != nil {
		return audio.Clip{}, err
	}

	url := s.endpoint + fmt.Sprintf(streamPathFmt, s.voiceID, s.model, s.outputFormat)
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("elevenlabs: dial: %w", err)
	}
	defer conn.CloseNow()
	conn.SetReadLimit(1 << 22)

	messages := []textMessage{
		// The first message must carry a single space and authenticates the stream.
		{Text: " ", VoiceSettings: &voiceSettings{Stability: 0.5, SimilarityBoost: 0.75}, XiAPIKey: s.apiKey},
		{Text: text + " "},
		{Text: ""},
	}
	for _, m := range messages {
		data, err := json.Marshal(m)
		if err != nil {
			return audio.Clip{}, fmt.Errorf("elevenlabs: marshal: %w", err)
		}
		if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
			return audio.Clip{}, fmt.Errorf("elevenlabs: send: %w", err)
		}
	}

	var pcm []byte
	for {
		_, msg, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure && len(pcm) > 0 {
				break
			}
			return audio.Clip{}, fmt.Errorf("elevenlabs: read: %w", err)
		}
		var resp audioResponse
		if err := json.Unmarshal(msg, &resp); err != nil {
			return audio.Clip{}, fmt.Errorf("elevenlabs: decode message: %w", err)
		}
		if resp.Audio != "" {
			chunk, err := base64.StdEncoding.DecodeString(resp.Audio)
			if err != nil {
				return audio.Clip{}, fmt.Errorf("elevenlabs: decode audio: %w", err)
			}
			pcm = append(pcm, chunk...)
		}
		if resp.IsFinal {
			break
		}
		if resp.Message != "" && resp.Audio == "" {
			return audio.Clip{}, fmt.Errorf("elevenlabs: server: %s", resp.Message)
		}
	}
	conn.Close(websocket.StatusNormalClosure, "done")

	return audio.Clip{PCM: pcm, Format: audio.Format{SampleRate: s.sampleRate, Channels: 1}}, nil
}

// pcmRate extracts the sample rate from a "pcm_<rate>" output format.
func pcmRate(format string) (int, error) {
	rate, ok := strings.CutPrefix(format, "pcm_")
	if !ok {
		return 0, fmt.Errorf("elevenlabs: output format %q is not raw PCM", format)
	}
	n, err := strconv.Atoi(rate)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("elevenlabs: bad sample rate in output format %q", format)
	}
	return n, nil
}
