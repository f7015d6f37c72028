package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-1.5-flash"

// GeminiProvider implements Provider for Google Gemini models
type GeminiProvider struct {
	config Config

	once      sync.Once
	client    *genai.Client
	clientErr error
}

// NewGeminiProvider creates a new Gemini provider. The client is dialed
// lazily on first use.
func NewGeminiProvider(config Config) (*GeminiProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	return &GeminiProvider{config: config}, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return "gemini"
}

func (p *GeminiProvider) getClient(ctx context.Context) (*genai.Client, error) {
	p.once.Do(func() {
		opts := []option.ClientOption{option.WithAPIKey(p.config.APIKey)}
		if p.config.BaseURL != "" {
			opts = append(opts, option.WithEndpoint(p.config.BaseURL))
		}
		p.client, p.clientErr = genai.NewClient(context.WithoutCancel(ctx), opts...)
	})
	return p.client, p.clientErr
}

// IsAvailable sends a minimal prompt
func (p *GeminiProvider) IsAvailable(ctx context.Context) bool {
	if _, err := p.Invoke(ctx, Request{Prompt: "Hi", MaxTokens: 10}); err != nil {
		p.config.logger().Warn("llm: gemini availability check failed", "error", err)
		return false
	}
	return true
}

// Invoke runs one GenerateContent call
func (p *GeminiProvider) Invoke(ctx context.Context, req Request) (*Response, error) {
	client, err := p.getClient(ctx)
	if err != nil {
		return nil, &CollaboratorError{Provider: p.Name(), Err: fmt.Errorf("create client: %w", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.timeout())
	defer cancel()

	name := p.config.model(req, defaultGeminiModel)
	model := client.GenerativeModel(name)
	model.SetTemperature(p.config.Temperature)
	model.SetMaxOutputTokens(int32(p.config.maxTokens(req)))
	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	if req.JSON {
		model.ResponseMIMEType = "application/json"
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return nil, newCollaboratorError(p.Name(), geminiStatus(err), err)
	}

	var text strings.Builder
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text.WriteString(string(t))
			}
		}
	}
	out := strings.TrimSpace(text.String())
	if out == "" {
		return nil, &CollaboratorError{Provider: p.Name(), Err: ErrEmptyResponse}
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	return &Response{
		Text:       out,
		Model:      name,
		TokensUsed: tokens,
	}, nil
}

// Close releases the underlying client
func (p *GeminiProvider) Close() error {
	if p.client == nil {
		return nil
	}
	return p.client.Close()
}

func geminiStatus(err error) int {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return gErr.Code
	}
	// gRPC transport errors carry their status only in the message
	msg := err.Error()
	switch {
	case strings.Contains(msg, "ResourceExhausted"), strings.Contains(msg, "RESOURCE_EXHAUSTED"):
		return 429
	case strings.Contains(msg, "Unavailable"), strings.Contains(msg, "UNAVAILABLE"):
		return 503
	case strings.Contains(msg, "InvalidArgument"), strings.Contains(msg, "INVALID_ARGUMENT"):
		return 400
	case strings.Contains(msg, "PermissionDenied"), strings.Contains(msg, "PERMISSION_DENIED"):
		return 403
	}
	return 0
}
