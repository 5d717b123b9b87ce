package resilience

import (
	"context"

	"github.com/MrWong99/vaani/pkg/provider/llm"
)

// LLMFallback implements [llm.Provider] with failover across several backends.
type LLMFallback struct {
	group *FallbackGroup[llm.Provider]
}

var _ llm.Provider = (*LLMFallback)(nil)

// NewLLMFallback creates an [LLMFallback] with primary as the preferred backend.
func NewLLMFallback(primary llm.Provider, primaryName string, cfg FallbackConfig) *LLMFallback {
	if cfg.Kind == "" {
		cfg.Kind = "llm"
	}
	return &LLMFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers an additional LLM provider as a fallback.
func (f *LLMFallback) AddFallback(name string, provider llm.Provider) {
	f.group.AddFallback(name, provider)
}

// Healthy reports whether any backend is currently accepting calls.
func (f *LLMFallback) Healthy() bool { return f.group.Healthy() }

// Complete sends req to the first healthy provider. An empty answer counts as
// a failure so that the next backend gets a chance.
func (f *LLMFallback) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return ExecuteWithResult(ctx, f.group, func(p llm.Provider) (*llm.CompletionResponse, error) {
		resp, err := p.Complete(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp == nil {
			return nil, llm.ErrEmptyResponse
		}
		return resp, nil
	})
}
