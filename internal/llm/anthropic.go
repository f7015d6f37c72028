package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/ppiankov/factcheck/internal/util"
)

const defaultAnthropicModel = "claude-3-5-sonnet-20241022"

// AnthropicProvider implements Provider for Anthropic Claude models
type AnthropicProvider struct {
	client *anthropic.Client
	config Config
}

// NewAnthropicProvider creates a new Anthropic provider
func NewAnthropicProvider(config Config) (*AnthropicProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}

	opts := []anthropic.ClientOption{
		anthropic.WithHTTPClient(util.NewHTTPClient(util.HTTPOptions{
			Timeout:    config.timeout(),
			HTTPProxy:  config.HTTPProxy,
			HTTPSProxy: config.HTTPSProxy,
			NoProxy:    config.NoProxy,
		})),
	}
	if config.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(strings.TrimSuffix(config.BaseURL, "/")))
	}

	return &AnthropicProvider{
		client: anthropic.NewClient(config.APIKey, opts...),
		config: config,
	}, nil
}

// Name returns the provider name
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// IsAvailable sends a minimal message
func (p *AnthropicProvider) IsAvailable(ctx context.Context) bool {
	_, err := p.Invoke(ctx, Request{Prompt: "Hi", MaxTokens: 10})
	if err != nil {
		p.config.logger().Warn("llm: anthropic availability check failed", "error", err)
		return false
	}
	return true
}

// Invoke runs one Messages API call
func (p *AnthropicProvider) Invoke(ctx context.Context, req Request) (*Response, error) {
	temperature := p.config.Temperature

	apiReq := anthropic.MessagesRequest{
		Model:     anthropic.Model(p.config.model(req, defaultAnthropicModel)),
		MaxTokens: p.config.maxTokens(req),
		System:    req.System,
		Messages: []anthropic.Message{
			anthropic.NewUserTextMessage(req.Prompt),
		},
		Temperature: &temperature,
	}

	resp, err := p.client.CreateMessages(ctx, apiReq)
	if err != nil {
		return nil, p.classify(err)
	}

	var text strings.Builder
	for _, c := range resp.Content {
		if c.Text != nil {
			text.WriteString(*c.Text)
		}
	}
	out := strings.TrimSpace(text.String())
	if out == "" {
		return nil, &CollaboratorError{Provider: p.Name(), Err: ErrEmptyResponse}
	}

	return &Response{
		Text:       out,
		Model:      string(resp.Model),
		TokensUsed: resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}, nil
}

func (p *AnthropicProvider) classify(err error) *CollaboratorError {
	var reqErr *anthropic.RequestError
	if errors.As(err, &reqErr) {
		return newCollaboratorError(p.Name(), reqErr.StatusCode, err)
	}
	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		ce := newCollaboratorError(p.Name(), 0, err)
		ce.Retryable = apiErr.IsRateLimitErr() || apiErr.IsOverloadedErr() || apiErr.IsApiErr()
		return ce
	}
	return newCollaboratorError(p.Name(), 0, err)
}
