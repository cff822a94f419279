package ollama

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sentinelops/sentinel-ai/internal/llm/types"
)

func TestNewOllamaClient(t *testing.T) {
	tests := []struct {
		name        string
		baseURL     string
		model       string
		wantBaseURL string
		wantModel   string
	}{
		{
			name:        "Explicit configuration",
			baseURL:     "http://ollama:11434",
			model:       "mistral",
			wantBaseURL: "http://ollama:11434",
			wantModel:   "mistral",
		},
		{
			name:        "Defaults applied",
			baseURL:     "",
			model:       "",
			wantBaseURL: DefaultBaseURL,
			wantModel:   DefaultModel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewOllamaClient(tt.baseURL, tt.model)
			if err != nil {
				t.Fatalf("NewOllamaClient() unexpected error: %v", err)
			}

			if client.baseURL != tt.wantBaseURL {
				t.Errorf("Expected base URL %s, got %s", tt.wantBaseURL, client.baseURL)
			}

			if client.model != tt.wantModel {
				t.Errorf("Expected model %s, got %s", tt.wantModel, client.model)
			}
		})
	}
}

func TestComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("Expected path /api/chat, got %s", r.URL.Path)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"model": "llama3",
			"message": {"role": "assistant", "content": "historical-incident-search: pod crash history"},
			"done": true,
			"prompt_eval_count": 20,
			"eval_count": 8
		}`))
	}))
	defer server.Close()

	client, err := NewOllamaClient(server.URL, "llama3")
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	resp, err := client.Complete(context.Background(), []types.Message{
		{Role: "user", Content: "Pick a capability"},
	})
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}

	if resp.Content != "historical-incident-search: pod crash history" {
		t.Errorf("Unexpected content: %q", resp.Content)
	}

	if resp.Usage.TotalTokens != 28 {
		t.Errorf("Expected 28 total tokens, got %d", resp.Usage.TotalTokens)
	}
}

func TestCompleteServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "model not found"}`))
	}))
	defer server.Close()

	client, err := NewOllamaClient(server.URL, "nonexistent")
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	_, err = client.Complete(context.Background(), []types.Message{
		{Role: "user", Content: "hello"},
	})
	if err == nil {
		t.Fatal("Expected error from server")
	}

	if !errors.Is(err, types.ErrService) {
		t.Errorf("Expected ErrService, got %v", err)
	}
}
