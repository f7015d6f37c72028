package llm

import (
	"context"
	"log/slog"
	"time"
)

// Collaborator is the single model capability the pipeline stages consume
type Collaborator interface {
	Invoke(ctx context.Context, req Request) (*Response, error)
}

// Provider is a configured Collaborator backed by a concrete model API
type Provider interface {
	Collaborator

	// Name returns the provider name
	Name() string

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// Request is one model invocation
type Request struct {
	// System sets the role and rules for the model
	System string

	// Prompt is the user message
	Prompt string

	// JSON asks the provider for a JSON-only answer where the API supports it
	JSON bool

	// Model overrides the configured model
	Model string

	// MaxTokens overrides the configured response limit
	MaxTokens int
}

// Response is the model output
type Response struct {
	Text       string
	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "gemini", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for hosted providers
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama, OpenAI-compatible gateways)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Temperature for sampling; fact-checking runs low
	Temperature float32

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string

	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:    "openai",
		Timeout:     60,
		MaxTokens:   2000,
		Temperature: 0.1,
	}
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.Timeout) * time.Second
}

func (c Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

func (c Config) maxTokens(req Request) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return 2000
}

func (c Config) model(req Request, fallback string) string {
	if req.Model != "" {
		return req.Model
	}
	if c.Model != "" {
		return c.Model
	}
	return fallback
}
