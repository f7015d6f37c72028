package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
)

func newOpenAITestProvider(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	provider, err := NewOpenAIProvider(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "gpt-4o-mini",
		Timeout: 5,
	})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}
	return provider
}

func TestOpenAIProvider_Invoke_Success(t *testing.T) {
	provider := newOpenAITestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected Authorization header Bearer test-key, got %s", r.Header.Get("Authorization"))
		}

		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != openai.ChatMessageRoleSystem {
			t.Errorf("expected system + user messages, got %+v", req.Messages)
		}
		if req.ResponseFormat == nil || req.ResponseFormat.Type != openai.ChatCompletionResponseFormatTypeJSONObject {
			t.Errorf("expected JSON response format, got %+v", req.ResponseFormat)
		}

		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:    "chatcmpl-123",
			Model: "gpt-4o-mini",
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{
					Role:    "assistant",
					Content: `  {"claims": []}  `,
				},
				FinishReason: "stop",
			}},
			Usage: openai.Usage{TotalTokens: 100},
		})
	})

	resp, err := provider.Invoke(context.Background(), Request{
		System: "You decompose text into claims.",
		Prompt: "The Eiffel Tower is in Paris.",
		JSON:   true,
	})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if resp.Text != `{"claims": []}` {
		t.Errorf("Unexpected text: %q", resp.Text)
	}
	if resp.TokensUsed != 100 {
		t.Errorf("Expected 100 tokens, got %d", resp.TokensUsed)
	}
}

func TestOpenAIProvider_Invoke_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{"server error", http.StatusInternalServerError, true},
		{"rate limit", http.StatusTooManyRequests, true},
		{"unauthorized", http.StatusUnauthorized, false},
		{"bad request", http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := newOpenAITestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error": {"message": "boom", "type": "server_error"}}`))
			})

			_, err := provider.Invoke(context.Background(), Request{Prompt: "x"})
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if IsRetryable(err) != tt.retryable {
				t.Errorf("IsRetryable = %v, want %v (err: %v)", IsRetryable(err), tt.retryable, err)
			}
		})
	}
}

func TestOpenAIProvider_Invoke_MalformedJSON(t *testing.T) {
	provider := newOpenAITestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{malformed json`))
	})

	if _, err := provider.Invoke(context.Background(), Request{Prompt: "x"}); err == nil {
		t.Fatal("Expected error for malformed JSON, got nil")
	}
}

func TestOpenAIProvider_Invoke_EmptyChoices(t *testing.T) {
	provider := newOpenAITestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{ID: "chatcmpl-1"})
	})

	_, err := provider.Invoke(context.Background(), Request{Prompt: "x"})
	if err == nil {
		t.Fatal("Expected error for empty choices, got nil")
	}
	if IsRetryable(err) {
		t.Error("empty response must not be retryable")
	}
}

func TestOpenAIProvider_Invoke_ContextDeadline(t *testing.T) {
	provider := newOpenAITestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := provider.Invoke(ctx, Request{Prompt: "x"}); err == nil {
		t.Fatal("Expected timeout error, got nil")
	}
}

func TestOpenAIProvider_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models" {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"data": [{"id": "gpt-4o-mini"}]}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	if !provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be true")
	}

	server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	if provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be false on error")
	}
}

func TestNewOpenAIProvider_RequiresKey(t *testing.T) {
	if _, err := NewOpenAIProvider(Config{}); err == nil {
		t.Error("expected error without API key")
	}
}
