package resilience

import (
	"errors"
	"testing"

	sttmock "github.com/MrWong99/vaani/pkg/provider/stt/mock"
)

func TestSTTFallback_NewRecognizer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		primaryErr   error
		fallbackErr  error
		wantErr      error
		wantFallback int
	}{
		{name: "primary loads"},
		{name: "primary missing model", primaryErr: errors.New("model not found"), wantFallback: 1},
		{name: "nothing loads", primaryErr: errors.New("model not found"), fallbackErr: errors.New("no whisper"), wantErr: ErrAllFailed, wantFallback: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			primary := &sttmock.Engine{NewRecognizerErr: tt.primaryErr}
			fallback := &sttmock.Engine{NewRecognizerErr: tt.fallbackErr}
			fb := NewSTTFallback(primary, "vosk", FallbackConfig{})
			fb.AddFallback("whisper", fallback)

			rec, err := fb.NewRecognizer(16000)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if err == nil && rec == nil {
				t.Fatal("nil recognizer without error")
			}
			if len(primary.SampleRates) != 1 || primary.SampleRates[0] != 16000 {
				t.Errorf("primary sample rates = %v", primary.SampleRates)
			}
			if got := len(fallback.SampleRates); got != tt.wantFallback {
				t.Errorf("fallback called %d times, want %d", got, tt.wantFallback)
			}
		})
	}
}

func TestSTTFallback_CloseClosesEveryEngine(t *testing.T) {
	t.Parallel()

	primary, fallback := &sttmock.Engine{}, &sttmock.Engine{}
	fb := NewSTTFallback(primary, "vosk", FallbackConfig{})
	fb.AddFallback("whisper", fallback)
	if err := fb.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if primary.CloseCallCount != 1 || fallback.CloseCallCount != 1 {
		t.Errorf("close counts = %d, %d, want 1, 1", primary.CloseCallCount, fallback.CloseCallCount)
	}
}
