package generator

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Agent validates outline requests, builds their prompts and sends each to
// the gateway configured for its endpoint.
type Agent struct {
	outline LLMClient
	revise  LLMClient
	logger  *zap.Logger
}

func NewAgent(outline, revise LLMClient, logger *zap.Logger) (*Agent, error) {
	if outline == nil || revise == nil {
		return nil, errors.New("llm client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agent{outline: outline, revise: revise, logger: logger}, nil
}

// CreateOutline returns the model's plain-text six beat outline for req.
func (a *Agent) CreateOutline(ctx context.Context, req CreateRequest) (string, error) {
	prompt, err := BuildOutlinePrompt(req)
	if err != nil {
		return "", err
	}
	a.logger.Debug("creating outline", zap.String("mode", string(req.Mode.OrDefault())))
	return a.complete(ctx, a.outline, prompt)
}

// ReviseOutline returns the model's rewrite of req.Outline.
func (a *Agent) ReviseOutline(ctx context.Context, req ReviseRequest) (string, error) {
	prompt, err := BuildRevisionPrompt(req)
	if err != nil {
		return "", err
	}
	a.logger.Debug("revising outline", zap.Int("outline_len", len(req.Outline)))
	return a.complete(ctx, a.revise, prompt)
}

func (a *Agent) complete(ctx context.Context, llm LLMClient, prompt Prompt) (string, error) {
	text, err := llm.Complete(ctx, prompt)
	if err != nil {
		var upstream *UpstreamError
		if errors.As(err, &upstream) {
			a.logger.Warn("upstream rejected completion", zap.Int("status", upstream.StatusCode))
		} else {
			a.logger.Error("completion failed", zap.Error(err))
		}
		return "", err
	}
	return text, nil
}
