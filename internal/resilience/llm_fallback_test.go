package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/vaani/pkg/provider/llm"
	llmmock "github.com/MrWong99/vaani/pkg/provider/llm/mock"
)

func TestLLMFallback_Complete(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		primary       *llmmock.Provider
		secondary     *llmmock.Provider
		want          string
		wantErr       error
		wantSecondary int
	}{
		{
			name:      "primary answers",
			primary:   &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "दिल्ली"}},
			secondary: &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "मुंबई"}},
			want:      "दिल्ली",
		},
		{
			name:          "primary down",
			primary:       &llmmock.Provider{CompleteErr: errors.New("primary down")},
			secondary:     &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "मुंबई"}},
			want:          "मुंबई",
			wantSecondary: 1,
		},
		{
			name:          "both down",
			primary:       &llmmock.Provider{CompleteErr: errors.New("primary down")},
			secondary:     &llmmock.Provider{CompleteErr: errors.New("secondary down")},
			wantErr:       ErrAllFailed,
			wantSecondary: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fb := NewLLMFallback(tt.primary, "primary", FallbackConfig{})
			fb.AddFallback("secondary", tt.secondary)

			req := llm.CompletionRequest{Messages: []llm.Message{{Role: llm.RoleUser, Content: "राजधानी"}}}
			resp, err := fb.Complete(context.Background(), req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if err == nil && resp.Content != tt.want {
				t.Errorf("content = %q, want %q", resp.Content, tt.want)
			}
			if tt.primary.CallCount() != 1 {
				t.Errorf("primary called %d times, want 1", tt.primary.CallCount())
			}
			if got := tt.secondary.CallCount(); got != tt.wantSecondary {
				t.Errorf("secondary called %d times, want %d", got, tt.wantSecondary)
			}
		})
	}
}

func TestLLMFallback_PassesRequestThrough(t *testing.T) {
	t.Parallel()

	primary := &llmmock.Provider{}
	fb := NewLLMFallback(primary, "primary", FallbackConfig{})
	req := llm.CompletionRequest{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: "hello"}},
		MaxTokens:   64,
		Temperature: 0.6,
	}
	if _, err := fb.Complete(context.Background(), req); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	got := primary.CompleteCalls[0].Req
	if got.MaxTokens != 64 || got.Temperature != 0.6 || got.Messages[0].Content != "hello" {
		t.Errorf("request = %+v", got)
	}
	if !fb.Healthy() {
		t.Error("Healthy() = false")
	}
}
