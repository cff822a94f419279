package openai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sentinelops/sentinel-ai/internal/llm/types"
)

func TestNewOpenAIClient(t *testing.T) {
	tests := []struct {
		name      string
		apiKey    string
		model     string
		wantError bool
	}{
		{
			name:      "Valid configuration",
			apiKey:    "sk-test123",
			model:     "gpt-4o",
			wantError: false,
		},
		{
			name:      "Empty API key",
			apiKey:    "",
			model:     "gpt-4o",
			wantError: true,
		},
		{
			name:      "Default model",
			apiKey:    "sk-test123",
			model:     "",
			wantError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewOpenAIClient(tt.apiKey, tt.model)

			if tt.wantError && err == nil {
				t.Errorf("NewOpenAIClient() expected error but got none")
			}

			if !tt.wantError && err != nil {
				t.Errorf("NewOpenAIClient() unexpected error: %v", err)
			}

			if !tt.wantError && client == nil {
				t.Errorf("NewOpenAIClient() returned nil client")
			}

			if !tt.wantError && tt.model == "" {
				if client.model != DefaultModel {
					t.Errorf("Expected default model %s, got %s", DefaultModel, client.model)
				}
			}
		})
	}
}

func TestComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test123" {
			t.Errorf("Expected bearer auth header, got %s", auth)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "1. Check logs"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer server.Close()

	client, err := NewOpenAIClient("sk-test123", "gpt-4o")
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	client.SetBaseURL(server.URL)

	resp, err := client.Complete(context.Background(), []types.Message{
		{Role: "user", Content: "Build a plan"},
	})
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}

	if resp.Content != "1. Check logs" {
		t.Errorf("Expected content '1. Check logs', got %q", resp.Content)
	}

	if resp.Usage.TotalTokens != 15 {
		t.Errorf("Expected 15 total tokens, got %d", resp.Usage.TotalTokens)
	}
}

func TestCompleteRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "Rate limit reached"}}`))
	}))
	defer server.Close()

	client, err := NewOpenAIClient("sk-test123", "gpt-4o")
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	client.SetBaseURL(server.URL)

	_, err = client.Complete(context.Background(), []types.Message{
		{Role: "user", Content: "hello"},
	})
	if err == nil {
		t.Fatal("Expected rate limit error")
	}

	if !errors.Is(err, types.ErrRateLimited) {
		t.Errorf("Expected ErrRateLimited, got %v", err)
	}

	if !types.IsRetryable(err) {
		t.Error("Rate limit error should be retryable")
	}
}

func TestCompleteServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"message": "Invalid API key"}}`))
	}))
	defer server.Close()

	client, err := NewOpenAIClient("sk-bad", "gpt-4o")
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	client.SetBaseURL(server.URL)

	_, err = client.Complete(context.Background(), []types.Message{
		{Role: "user", Content: "hello"},
	})
	if err == nil {
		t.Fatal("Expected service error")
	}

	if !errors.Is(err, types.ErrService) {
		t.Errorf("Expected ErrService, got %v", err)
	}

	if types.IsRetryable(err) {
		t.Error("Auth error should not be retryable")
	}
}

func TestCompleteEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": "chatcmpl-2", "choices": []}`))
	}))
	defer server.Close()

	client, err := NewOpenAIClient("sk-test123", "gpt-4o")
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	client.SetBaseURL(server.URL)

	_, err = client.Complete(context.Background(), []types.Message{
		{Role: "user", Content: "hello"},
	})
	if err == nil {
		t.Fatal("Expected error for empty choices")
	}

	if !errors.Is(err, types.ErrService) {
		t.Errorf("Expected ErrService, got %v", err)
	}
}
