package generator

import (
	"context"
	"fmt"
)

// LLMClient abstracts the completion endpoint so it can be swapped or faked.
type LLMClient interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// LLMSettings is the configuration injected into a gateway. Each endpoint
// gets its own settings so temperature, token limit and fallback text stay
// fixed per endpoint.
type LLMSettings struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	// Referer and Title are sent as HTTP-Referer / X-Title when set.
	Referer string
	Title   string
	// Fallback is returned when the model reply carries no text.
	Fallback string
}

// DefaultOpenRouterURL is used by the openrouter provider when BaseURL is empty.
const DefaultOpenRouterURL = "https://openrouter.ai/api/v1"

// DefaultOpenAIURL is used by the openai provider when BaseURL is empty.
const DefaultOpenAIURL = "https://api.openai.com/v1"

// NewLLM builds the client for settings.Provider.
func NewLLM(cfg LLMSettings) (LLMClient, error) {
	switch cfg.Provider {
	case "", "openrouter":
		if cfg.BaseURL == "" {
			cfg.BaseURL = DefaultOpenRouterURL
		}
		return NewOpenAILLMFromConfig(&cfg)
	case "openai":
		if cfg.BaseURL == "" {
			cfg.BaseURL = DefaultOpenAIURL
		}
		return NewOpenAILLMFromConfig(&cfg)
	case "mock":
		return MockLLM{Fallback: cfg.Fallback}, nil
	default:
		return nil, fmt.Errorf("llm provider %s not supported", cfg.Provider)
	}
}
