package generator

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAILLM implements LLMClient against any OpenAI compatible chat
// completions endpoint (OpenRouter, OpenAI) using the official SDK.
type OpenAILLM struct {
	completions openai.ChatCompletionService
	model       string
	temperature float64
	maxTokens   int
	fallback    string
}

func NewOpenAILLMFromConfig(cfg *LLMSettings, extra ...option.RequestOption) (*OpenAILLM, error) {
	if cfg == nil {
		return nil, errors.New("llm config is nil")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("llm api key missing; provide llm.api_key or OPENROUTER_API_KEY")
	}
	if cfg.Model == "" {
		return nil, errors.New("llm model is required")
	}
	// The service is built from these options alone. openai.NewClient would
	// also read OPENAI_* variables from the process environment.
	opts := []option.RequestOption{
		option.WithEnvironmentProduction(),
		option.WithAPIKey(cfg.APIKey),
		// one attempt only; upstream failures go straight back to the caller
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Referer != "" {
		opts = append(opts, option.WithHeader("HTTP-Referer", cfg.Referer))
	}
	if cfg.Title != "" {
		opts = append(opts, option.WithHeader("X-Title", cfg.Title))
	}
	opts = append(opts, extra...)

	return &OpenAILLM{
		completions: openai.NewChatCompletionService(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		fallback:    cfg.Fallback,
	}, nil
}

// Complete sends one chat completion request. A non-success response is
// returned as *UpstreamError with the upstream status and body untouched.
func (o *OpenAILLM) Complete(ctx context.Context, prompt Prompt) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt.System),
			openai.UserMessage(prompt.User),
		},
		Temperature: openai.Float(o.temperature),
	}
	if o.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(o.maxTokens))
	}

	var upstream *UpstreamError
	resp, err := o.completions.New(ctx, params, option.WithMiddleware(captureFailure(&upstream)))
	if err != nil {
		if upstream != nil {
			return "", upstream
		}
		return "", err
	}
	if len(resp.Choices) == 0 {
		return o.fallback, nil
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return o.fallback, nil
	}
	return text, nil
}

// captureFailure records the raw status and body of an error response before
// the SDK decodes it, then hands the SDK an identical body.
func captureFailure(dst **UpstreamError) option.Middleware {
	return func(req *http.Request, next option.MiddlewareNext) (*http.Response, error) {
		res, err := next(req)
		if err != nil || res.StatusCode < http.StatusBadRequest {
			return res, err
		}
		body, readErr := io.ReadAll(res.Body)
		_ = res.Body.Close()
		res.Body = io.NopCloser(bytes.NewReader(body))
		if readErr != nil {
			return res, nil
		}
		*dst = &UpstreamError{StatusCode: res.StatusCode, Body: string(body)}
		return res, nil
	}
}
