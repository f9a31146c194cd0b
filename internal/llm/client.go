// Package llm provides direct LLM completion clients used by the legacy
// command path when it is not routed through the learning platform API.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/capitalize-ai/learning-assistant/pkg/metrics"
)

// CompletionRequest represents a completion request.
type CompletionRequest struct {
	Model       string
	System      string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float64
}

// ChatMessage represents a chat message for LLM.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionResponse represents a completion response.
type CompletionResponse struct {
	Content    string
	Model      string
	TokensIn   int
	TokensOut  int
	StopReason string
	LatencyMs  int64
}

// Client is the interface for LLM providers.
type Client interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name.
	Name() string
}

// Provider is the type of LLM provider.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// NewClient creates a new LLM client based on provider.
func NewClient(provider Provider, apiKey string) (Client, error) {
	switch provider {
	case ProviderAnthropic:
		return NewAnthropicClient(apiKey)
	case ProviderOpenAI:
		return NewOpenAIClient(apiKey, "")
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", provider)
	}
}

// PromptCompleter turns a Client into a single-prompt completer.
type PromptCompleter struct {
	Client    Client
	Model     string
	MaxTokens int
}

// Complete sends prompt as a single user turn and returns the reply text.
func (p *PromptCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	resp, err := p.Client.Complete(ctx, &CompletionRequest{
		Model:     p.Model,
		Messages:  []ChatMessage{{Role: "user", Content: prompt}},
		MaxTokens: p.MaxTokens,
	})
	if err != nil {
		metrics.RecordLLMCompletion(p.modelLabel(), "error", time.Since(start).Seconds(), 0, 0)
		return "", fmt.Errorf("%s completion failed: %w", p.Client.Name(), err)
	}
	metrics.RecordLLMCompletion(resp.Model, "success", time.Since(start).Seconds(), resp.TokensIn, resp.TokensOut)
	return resp.Content, nil
}

func (p *PromptCompleter) modelLabel() string {
	if p.Model != "" {
		return p.Model
	}
	return p.Client.Name()
}
