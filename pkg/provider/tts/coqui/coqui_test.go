package coqui_test

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
	"github.com/MrWong99/vaani/pkg/provider/tts/coqui"
)

func testWAV(t *testing.T) []byte {
	t.Helper()
	wav, err := wavfile.Encode(audio.Clip{
		PCM:    audio.Int16ToBytes([]int16{1, 2, 3, 4}),
		Format: audio.Format{SampleRate: 22050, Channels: 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	return wav
}

func TestSynthesize_Standard(t *testing.T) {
	t.Parallel()

	wav := testWAV(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/tts" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		if q.Get("text") != "हाँ बताइए" || q.Get("language_id") != "hi" || q.Get("speaker_id") != "p225" {
			http.Error(w, "bad query "+r.URL.RawQuery, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write(wav)
	}))
	defer srv.Close()

	s, err := coqui.New(srv.URL+"/", coqui.WithSpeaker("p225"))
	if err != nil {
		t.Fatal(err)
	}
	clip, err := s.Synthesize(context.Background(), "  हाँ बताइए ")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if clip.Format.SampleRate != 22050 || len(clip.PCM) != 8 {
		t.Errorf("clip = %+v, want 4 samples at 22050 Hz", clip.Format)
	}
}

func TestSynthesize_XTTS(t *testing.T) {
	t.Parallel()

	wav := testWAV(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/tts_to_audio/" {
			http.NotFound(w, r)
			return
		}
		var body struct {
			Text       string `json:"text"`
			SpeakerWav string `json:"speaker_wav"`
			Language   string `json:"language"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if body.Text != "अलविदा" || body.SpeakerWav != "ref.wav" || body.Language != "hi" {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		_, _ = w.Write(wav)
	}))
	defer srv.Close()

	s, err := coqui.New(srv.URL, coqui.WithAPIMode(coqui.APIModeXTTS), coqui.WithSpeaker("ref.wav"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Synthesize(context.Background(), "अलविदा"); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
}

func TestSynthesize_Errors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("text") == "garbage" {
			_, _ = w.Write([]byte("not a wav"))
			return
		}
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s, _ := coqui.New(srv.URL)
	if _, err := s.Synthesize(context.Background(), "   "); !errors.Is(err, tts.ErrEmptyText) {
		t.Errorf("blank text err = %v, want ErrEmptyText", err)
	}
	if _, err := s.Synthesize(context.Background(), "x"); err == nil {
		t.Error("expected error for HTTP 503")
	}
	if _, err := s.Synthesize(context.Background(), "garbage"); !errors.Is(err, wavfile.ErrUnsupported) {
		t.Errorf("garbage body err = %v, want ErrUnsupported", err)
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()
	if _, err := coqui.New(""); err == nil {
		t.Error("expected error for empty server URL")
	}
	if _, err := coqui.New("http://x", coqui.WithAPIMode("bogus")); err == nil {
		t.Error("expected error for unknown api mode")
	}
}
