package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ppiankov/factcheck/internal/util"
)

// OllamaProvider implements Provider for local Ollama models
type OllamaProvider struct {
	baseURL    string
	httpClient *http.Client
	config     Config
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	System  string        `json:"system,omitempty"`
	Format  string        `json:"format,omitempty"`
	Options ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float32 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"` // Max tokens
}

type ollamaResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count,omitempty"`
	EvalCount       int    `json:"eval_count,omitempty"`
}

type ollamaError struct {
	Error string `json:"error"`
}

// NewOllamaProvider creates a new Ollama provider
func NewOllamaProvider(config Config) (*OllamaProvider, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	return &OllamaProvider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: util.NewHTTPClient(util.HTTPOptions{
			Timeout:    config.timeout(),
			HTTPProxy:  config.HTTPProxy,
			HTTPSProxy: config.HTTPSProxy,
			NoProxy:    config.NoProxy,
		}),
		config: config,
	}, nil
}

// Name returns the provider name
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// IsAvailable checks that the Ollama server answers /api/tags
func (p *OllamaProvider) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.config.logger().Warn("llm: ollama unreachable", "base_url", p.baseURL, "error", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		p.config.logger().Warn("llm: ollama availability check failed", "base_url", p.baseURL, "status", resp.StatusCode)
		return false
	}
	return true
}

// Invoke runs one non-streaming generate call
func (p *OllamaProvider) Invoke(ctx context.Context, req Request) (*Response, error) {
	model := p.config.model(req, "")
	if model == "" {
		return nil, &CollaboratorError{Provider: p.Name(), Err: fmt.Errorf("ollama model must be specified (e.g., llama3.1:8b, mistral)")}
	}

	apiReq := ollamaRequest{
		Model:  model,
		Prompt: req.Prompt,
		System: req.System,
		Options: ollamaOptions{
			Temperature: p.config.Temperature,
			NumPredict:  p.config.maxTokens(req),
		},
	}
	if req.JSON {
		apiReq.Format = "json"
	}

	resp, err := p.makeRequest(ctx, apiReq)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(resp.Response)
	if text == "" {
		return nil, &CollaboratorError{Provider: p.Name(), Err: ErrEmptyResponse}
	}

	tokens := resp.PromptEvalCount + resp.EvalCount
	if tokens == 0 {
		// rough estimate: 4 characters per token
		tokens = (len(req.Prompt) + len(text)) / 4
	}

	return &Response{
		Text:       text,
		Model:      resp.Model,
		TokensUsed: tokens,
	}, nil
}

func (p *OllamaProvider) makeRequest(ctx context.Context, apiReq ollamaRequest) (*ollamaResponse, error) {
	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, &CollaboratorError{Provider: p.Name(), Err: fmt.Errorf("marshal request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, &CollaboratorError{Provider: p.Name(), Err: fmt.Errorf("create request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, newCollaboratorError(p.Name(), 0, fmt.Errorf("execute request: %w", err))
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, newCollaboratorError(p.Name(), 0, fmt.Errorf("read response: %w", err))
	}

	if httpResp.StatusCode != http.StatusOK {
		msg := string(respBody)
		var apiErr ollamaError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return nil, newCollaboratorError(p.Name(), httpResp.StatusCode, errors.New(msg))
	}

	var resp ollamaResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, &CollaboratorError{Provider: p.Name(), Err: fmt.Errorf("unmarshal response: %w", err)}
	}
	return &resp, nil
}
