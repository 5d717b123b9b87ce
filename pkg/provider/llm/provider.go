// Package llm defines the Provider interface for Large Language Model backends.
//
// An LLM provider wraps a remote or local model API (OpenAI, Anthropic, a
// local Ollama or llama.cpp server) and exposes a single blocking completion
// call. The assistant uses it only as a generative fallback for utterances
// the intent pipeline could not resolve, so answers are short and one-shot:
// there is no conversation history and no tool calling.
//
// Implementations must be safe for concurrent use.
package llm

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when the backend answers without any choice.
var ErrEmptyResponse = errors.New("llm: empty response")

// Message roles understood by every provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of the prompt.
type Message struct {
	Role    string
	Content string
}

// Usage holds token accounting returned by the backend.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionRequest carries everything the model needs to answer.
type CompletionRequest struct {
	// SystemPrompt is sent first with the system role when non-empty.
	SystemPrompt string

	// Messages is the ordered prompt. At least one message is required.
	Messages []Message

	// Temperature controls randomness in [0, 2]. Zero uses the provider
	// default.
	Temperature float64

	// MaxTokens caps the completion length. Zero uses the provider default.
	MaxTokens int
}

// CompletionResponse is the model's answer.
type CompletionResponse struct {
	Content string
	Usage   Usage
}

// Provider is the abstraction over any LLM backend.
type Provider interface {
	// Complete sends req and waits for the full answer. It returns promptly
	// when ctx is cancelled.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// Validate reports whether req can be sent.
func (r CompletionRequest) Validate() error {
	if len(r.Messages) == 0 {
		return errors.New("llm: request has no messages")
	}
	return nil
}
