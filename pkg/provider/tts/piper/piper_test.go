package piper_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrWong99/vaani/pkg/audio"
	"github.com/MrWong99/vaani/pkg/audio/wavfile"
	"github.com/MrWong99/vaani/pkg/provider/tts"
	"github.com/MrWong99/vaani/pkg/provider/tts/piper"
)

func TestSynthesize(t *testing.T) {
	t.Parallel()

	var got struct {
		Text        string  `json:"text"`
		LengthScale float64 `json:"length_scale"`
		Speaker     *int    `json:"speaker_id"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method", http.StatusMethodNotAllowed)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_ = wavfile.Write(w, audio.Clip{
			PCM:    audio.Int16ToBytes(make([]int16, 2205)),
			Format: audio.Format{SampleRate: 22050, Channels: 1},
		})
	}))
	defer srv.Close()

	s, err := piper.New(srv.URL, piper.WithSpeaker(3))
	if err != nil {
		t.Fatal(err)
	}
	clip, err := s.Synthesize(context.Background(), "मैं तैयार हूँ")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if got.Text != "मैं तैयार हूँ" {
		t.Errorf("text = %q", got.Text)
	}
	if got.LengthScale != 1.2 {
		t.Errorf("length_scale = %f, want default 1.2", got.LengthScale)
	}
	if got.Speaker == nil || *got.Speaker != 3 {
		t.Errorf("speaker_id = %v, want 3", got.Speaker)
	}
	if d := clip.Duration(); d.Milliseconds() != 100 {
		t.Errorf("clip duration = %v, want 100ms", d)
	}
}

func TestSynthesize_Errors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s, _ := piper.New(srv.URL)
	if _, err := s.Synthesize(context.Background(), ""); !errors.Is(err, tts.ErrEmptyText) {
		t.Errorf("empty text err = %v, want ErrEmptyText", err)
	}
	if _, err := s.Synthesize(context.Background(), "नमस्ते"); err == nil {
		t.Error("expected error for HTTP 500")
	}
	if _, err := piper.New(""); err == nil {
		t.Error("expected error for empty server URL")
	}
}
