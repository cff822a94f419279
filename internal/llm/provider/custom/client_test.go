package custom

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sentinelops/sentinel-ai/internal/llm/types"
)

func TestNewCustomClient(t *testing.T) {
	tests := []struct {
		name      string
		baseURL   string
		apiKey    string
		model     string
		wantError bool
	}{
		{
			name:      "Valid configuration",
			baseURL:   "http://vllm:8000/v1",
			apiKey:    "key",
			model:     "llama-3-8b",
			wantError: false,
		},
		{
			name:      "No API key allowed",
			baseURL:   "http://localai:8080/v1",
			apiKey:    "",
			model:     "mistral",
			wantError: false,
		},
		{
			name:      "Missing base URL",
			baseURL:   "",
			apiKey:    "key",
			model:     "mistral",
			wantError: true,
		},
		{
			name:      "Missing model",
			baseURL:   "http://vllm:8000/v1",
			apiKey:    "key",
			model:     "",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewCustomClient(tt.baseURL, tt.apiKey, tt.model)

			if tt.wantError && err == nil {
				t.Errorf("NewCustomClient() expected error but got none")
			}

			if !tt.wantError && err != nil {
				t.Errorf("NewCustomClient() unexpected error: %v", err)
			}

			if !tt.wantError && client == nil {
				t.Errorf("NewCustomClient() returned nil client")
			}
		})
	}
}

func TestCompleteTrimsBaseURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("Expected path /v1/chat/completions, got %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "" {
			t.Errorf("Expected no auth header, got %s", auth)
		}

		w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "42"}}],
			"usage": {"prompt_tokens": 4, "completion_tokens": 1, "total_tokens": 5}
		}`))
	}))
	defer server.Close()

	// Trailing slash should be trimmed before the endpoint path is appended
	client, err := NewCustomClient(server.URL+"/v1/", "", "local-model")
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	resp, err := client.Complete(context.Background(), []types.Message{
		{Role: "user", Content: "6 * 7"},
	})
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}

	if resp.Content != "42" {
		t.Errorf("Expected content '42', got %q", resp.Content)
	}
}
