package llm

import (
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/factcheck/internal/model"
)

// NewProvider creates a provider based on configuration
func NewProvider(config Config) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "gemini", "google":
		return NewGeminiProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "":
		return nil, fmt.Errorf("no LLM provider configured (supported: openai, anthropic, gemini, ollama)")

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic, gemini, ollama)", config.Provider)
	}
}

// ConfigFromModel converts model.LLMConfig and the tools proxy settings to llm.Config.
// A missing API key is taken from the provider's usual environment variable.
func ConfigFromModel(m model.LLMConfig, tools model.ToolsConfig) Config {
	cfg := Config{
		Provider:    m.Provider,
		Model:       m.Model,
		APIKey:      m.APIKey,
		BaseURL:     m.BaseURL,
		Timeout:     m.Timeout,
		MaxTokens:   m.MaxTokens,
		Temperature: m.Temperature,
		HTTPProxy:   tools.HTTPProxy,
		HTTPSProxy:  tools.HTTPSProxy,
		NoProxy:     tools.NoProxy,
	}
	if cfg.APIKey == "" {
		cfg.APIKey = APIKeyFromEnv(cfg.Provider)
	}
	return cfg
}

// APIKeyFromEnv returns the conventional API key variable for a provider
func APIKeyFromEnv(provider string) string {
	switch strings.ToLower(provider) {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "anthropic", "claude":
		return os.Getenv("ANTHROPIC_API_KEY")
	case "gemini", "google":
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			return key
		}
		return os.Getenv("GOOGLE_API_KEY")
	}
	return ""
}
