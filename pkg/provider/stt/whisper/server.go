package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/MrWong99/vaani/pkg/audio"
	"github.com/MrWong99/vaani/pkg/audio/wavfile"
	"github.com/MrWong99/vaani/pkg/provider/stt"
)

// ServerOption configures a [ServerEngine].
type ServerOption func(*ServerEngine)

// WithModel sets the model identifier forwarded to whisper-server (e.g.
// "small"). When empty the server uses whichever model it was started with.
func WithModel(model string) ServerOption {
	return func(e *ServerEngine) { e.model = model }
}

// WithHTTPClient replaces the default HTTP client (30 s timeout).
func WithHTTPClient(c *http.Client) ServerOption {
	return func(e *ServerEngine) { e.httpClient = c }
}

// WithServerOptions applies the shared endpointing options.
func WithServerOptions(opts ...Option) ServerOption {
	return func(e *ServerEngine) {
		for _, o := range opts {
			o(&e.cfg)
		}
	}
}

// ServerEngine implements [stt.Engine] against a whisper-server REST endpoint.
type ServerEngine struct {
	serverURL  string
	model      string
	cfg        settings
	httpClient *http.Client
}

var _ stt.Engine = (*ServerEngine)(nil)

// NewServer returns an engine that posts utterances to the whisper-server at
// serverURL (e.g. "http://localhost:8080").
func NewServer(serverURL string, opts ...ServerOption) (*ServerEngine, error) {
	if serverURL == "" {
		return nil, errors.New("whisper: serverURL must not be empty")
	}
	e := &ServerEngine{
		serverURL:  serverURL,
		cfg:        defaultSettings(),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// NewRecognizer creates a recogniser session for audio at sampleRate Hz.
func (e *ServerEngine) NewRecognizer(sampleRate int) (stt.Recognizer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("whisper: invalid sample rate %d", sampleRate)
	}
	return newRecognizer(e.cfg, sampleRate, e.infer), nil
}

// Close is a no-op; the server owns the model.
func (e *ServerEngine) Close() error { return nil }

// infer uploads pcm as a WAV file to /inference and returns the text.
func (e *ServerEngine) infer(pcm []byte, sampleRate int) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("whisper: create form file: %w", err)
	}
	if err := wavfile.Write(fw, audio.Clip{PCM: pcm, Format: audio.Format{SampleRate: sampleRate, Channels: 1}}); err != nil {
		return "", fmt.Errorf("whisper: write wav data: %w", err)
	}
	if e.cfg.language != "" {
		if err := mw.WriteField("language", e.cfg.language); err != nil {
			return "", fmt.Errorf("whisper: write language field: %w", err)
		}
	}
	if e.model != "" {
		if err := mw.WriteField("model", e.model); err != nil {
			return "", fmt.Errorf("whisper: write model field: %w", err)
		}
	}
	if err := mw.WriteField("response_format", "json"); err != nil {
		return "", fmt.Errorf("whisper: write format field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("whisper: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, e.serverURL+"/inference", &body)
	if err != nil {
		return "", fmt.Errorf("whisper: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("whisper: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("whisper: server returned HTTP %d", resp.StatusCode)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("whisper: parse JSON response: %w", err)
	}
	return string(bytes.TrimSpace([]byte(result.Text))), nil
}
