package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/factcheck/internal/model"
)

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Claims []struct {
			Text string `json:"text"`
		} `json:"claims"`
	}

	tests := []struct {
		name  string
		input string
		want  int
		err   bool
	}{
		{"plain", `{"claims":[{"text":"a"}]}`, 1, false},
		{"fenced", "```json\n{\"claims\":[{\"text\":\"a\"},{\"text\":\"b\"}]}\n```", 2, false},
		{"bare fence", "```\n{\"claims\":[]}\n```", 0, false},
		{"prose around", "Sure! Here you go:\n{\"claims\":[{\"text\":\"a\"}]}\nHope it helps.", 1, false},
		{"no json", "I cannot help with that.", 0, true},
		{"broken", `{"claims":[{"text":}`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeJSON[payload](tt.input)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got.Claims, tt.want)
		})
	}
}

func TestDecodeJSON_Array(t *testing.T) {
	got, err := DecodeJSON[[]string]("```json\n[\"a\", \"b\"]\n```")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestWithDate(t *testing.T) {
	orig := Now
	Now = func() time.Time { return time.Date(2024, 3, 9, 23, 30, 0, 0, time.FixedZone("X", -5*3600)) }
	defer func() { Now = orig }()

	got := WithDate("Check this.")
	assert.True(t, strings.HasPrefix(got, "Current date: 2024-03-10 (UTC)."), got)
	assert.True(t, strings.HasSuffix(got, "Check this."))
}

func TestCollaboratorError(t *testing.T) {
	base := errors.New("boom")
	err := fmt.Errorf("structuring: %w", &CollaboratorError{Provider: "openai", StatusCode: 503, Retryable: true, Err: base})

	assert.True(t, IsRetryable(err))
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "status 503")
	assert.False(t, IsRetryable(base))
}

func TestNewCollaboratorError_Classification(t *testing.T) {
	assert.True(t, newCollaboratorError("x", 429, errors.New("slow")).Retryable)
	assert.True(t, newCollaboratorError("x", 502, errors.New("bad gateway")).Retryable)
	assert.False(t, newCollaboratorError("x", 401, errors.New("auth")).Retryable)
	assert.True(t, newCollaboratorError("x", 0, errors.New("dial tcp: connection refused")).Retryable)
	assert.False(t, newCollaboratorError("x", 0, fmt.Errorf("post: %w", context.Canceled)).Retryable)
	assert.True(t, newCollaboratorError("x", 0, fmt.Errorf("post: %w", context.DeadlineExceeded)).Retryable)
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		provider string
		key      string
		wantName string
		wantErr  bool
	}{
		{"openai", "k", "openai", false},
		{"anthropic", "k", "anthropic", false},
		{"claude", "k", "anthropic", false},
		{"gemini", "k", "gemini", false},
		{"ollama", "", "ollama", false},
		{"openai", "", "", true},
		{"", "", "", true},
		{"unknown", "k", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.provider+"/"+tt.key, func(t *testing.T) {
			p, err := NewProvider(Config{Provider: tt.provider, APIKey: tt.key})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, p.Name())
		})
	}
}

func TestConfigFromModel(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "env-key")

	cfg := ConfigFromModel(
		model.LLMConfig{Provider: "anthropic", Model: "claude", Timeout: 30, MaxTokens: 500},
		model.ToolsConfig{HTTPSProxy: "http://proxy:3128"},
	)
	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, "http://proxy:3128", cfg.HTTPSProxy)
	assert.Equal(t, 30, cfg.Timeout)

	cfg = ConfigFromModel(model.LLMConfig{Provider: "anthropic", APIKey: "explicit"}, model.ToolsConfig{})
	assert.Equal(t, "explicit", cfg.APIKey)
}

func TestGeminiStatus(t *testing.T) {
	assert.Equal(t, 429, geminiStatus(errors.New("rpc error: code = ResourceExhausted desc = quota")))
	assert.Equal(t, 503, geminiStatus(errors.New("rpc error: code = Unavailable desc = down")))
	assert.Equal(t, 0, geminiStatus(errors.New("something else")))
}
