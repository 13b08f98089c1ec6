// Package llm defines the chat interface shared by the commentary providers.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/newthinker/tradermood/internal/core"
)

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultMaxTokens caps a reply when the request leaves MaxTokens unset.
const DefaultMaxTokens = 1024

// Provider defines the interface for LLM providers
type Provider interface {
	Name() string
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest holds the request parameters
type ChatRequest struct {
	SystemPrompt string
	Messages     []Message
	MaxTokens    int
	Temperature  float64
	JSONMode     bool
}

// MaxTokensOrDefault returns MaxTokens, or DefaultMaxTokens when unset.
func (r ChatRequest) MaxTokensOrDefault() int {
	if r.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return r.MaxTokens
}

// Message represents a chat message
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// ChatResponse holds the response from the LLM
type ChatResponse struct {
	Content      string
	Usage        Usage
	FinishReason string
}

// Usage tracks token consumption
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// WrapError tags a provider failure with ErrLLMTimeout when the context
// deadline passed and ErrLLMFailed otherwise.
func WrapError(provider string, err error) error {
	if err == nil {
		return nil
	}
	base := core.ErrLLMFailed
	if errors.Is(err, context.DeadlineExceeded) {
		base = core.ErrLLMTimeout
	}
	return core.WrapError(base, fmt.Errorf("%s: %w", provider, err))
}
