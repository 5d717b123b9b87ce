package elevenlabs_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/coder/websocket"

	"github.com/MrWong99/vaani/pkg/provider/tts/elevenlabs"
)

// fakeServer accepts one stream, checks the handshake, and answers with two
// audio chunks followed by the final marker.
func fakeServer(t *testing.T, texts *[]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/v1/text-to-speech/voice-1/stream-input") {
			http.NotFound(w, r)
			return
		}
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()
		ctx := r.Context()

		for {
			_, msg, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var m struct {
				Text     string `json:"text"`
				XiAPIKey string `json:"xi_api_key"`
			}
			_ = json.Unmarshal(msg, &m)
			*texts = append(*texts, m.Text)
			if len(*texts) == 1 && m.XiAPIKey != "key" {
				conn.Close(websocket.StatusPolicyViolation, "bad key")
				return
			}
			if m.Text == "" {
				break
			}
		}
		for _, chunk := range [][]byte{{1, 0, 2, 0}, {3, 0}} {
			data, _ := json.Marshal(map[string]any{"audio": base64.StdEncoding.EncodeToString(chunk)})
			_ = conn.Write(ctx, websocket.MessageText, data)
		}
		_ = conn.Write(ctx, websocket.MessageText, []byte(`{"isFinal": true}`))
		conn.Close(websocket.StatusNormalClosure, "")
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSynthesize(t *testing.T) {
	t.Parallel()

	var texts []string
	srv := fakeServer(t, &texts)
	s, err := elevenlabs.New("key", "voice-1",
		elevenlabs.WithEndpoint("ws"+strings.TrimPrefix(srv.URL, "http")),
		elevenlabs.WithOutputFormat("pcm_22050"),
	)
	if err != nil {
		t.Fatal(err)
	}

	clip, err := s.Synthesize(context.Background(), "नमस्ते")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(clip.PCM) != 6 {
		t.Errorf("got %d PCM bytes, want 6", len(clip.PCM))
	}
	if clip.Format.SampleRate != 22050 || clip.Format.Channels != 1 {
		t.Errorf("format = %+v", clip.Format)
	}
	want := []string{" ", "नमस्ते ", ""}
	if len(texts) != len(want) {
		t.Fatalf("server saw %q, want %q", texts, want)
	}
	for i := range want {
		if texts[i] != want[i] {
			t.Errorf("message %d = %q, want %q", i, texts[i], want[i])
		}
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		key     string
		voice   string
		opts    []elevenlabs.Option
		wantErr bool
	}{
		{"ok", "k", "v", nil, false},
		{"no key", "", "v", nil, true},
		{"no voice", "k", "", nil, true},
		{"mp3 format", "k", "v", []elevenlabs.Option{elevenlabs.WithOutputFormat("mp3_44100_128")}, true},
		{"bad rate", "k", "v", []elevenlabs.Option{elevenlabs.WithOutputFormat("pcm_x")}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := elevenlabs.New(tc.key, tc.voice, tc.opts...)
			if (err != nil) != tc.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
