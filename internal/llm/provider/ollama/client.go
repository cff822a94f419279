package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sentinelops/sentinel-ai/internal/llm/types"
)

// Package ollama provides the Ollama provider implementation for the LLM adapter.
//
// Responsibilities:
//   - Implement the LLM adapter interface for the Ollama chat API
//   - Support any Ollama-hosted model (llama3, mistral, codellama, etc.)
//   - Approximate token counting (Ollama doesn't expose its tokenizer)
//
// Key Advantage:
//   - Zero cost - runs entirely on the user's machine
//   - Complete privacy - no data sent to external services

const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3"
	DefaultTimeout = 180 * time.Second
)

// OllamaClientImpl implements the LLM adapter interface for Ollama.
type OllamaClientImpl struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// Ollama API structures
type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaChatResponse struct {
	Model   string        `json:"model"`
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`

	PromptEvalCount int `json:"prompt_eval_count"`
	EvalCount       int `json:"eval_count"`
}

// NewOllamaClient creates a new Ollama client with configuration.
func NewOllamaClient(baseURL, model string) (*OllamaClientImpl, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}

	return &OllamaClientImpl{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}, nil
}

// Complete sends the conversation to the Ollama chat API and returns the
// assistant's reply.
func (c *OllamaClientImpl) Complete(ctx context.Context, messages []types.Message) (*types.CompletionResponse, error) {
	ollamaMessages := make([]ollamaMessage, len(messages))
	for i, msg := range messages {
		ollamaMessages[i] = ollamaMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	request := ollamaChatRequest{
		Model:    c.model,
		Messages: ollamaMessages,
		Stream:   false,
	}

	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal request: %v", types.ErrService, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/chat", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", types.ErrService, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", types.ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: HTTP request failed: %v", types.ErrService, err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", types.ErrService, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %s", types.ErrRateLimited, string(responseBody))
	default:
		return nil, fmt.Errorf("%w: Ollama API error (status %d): %s", types.ErrService, resp.StatusCode, string(responseBody))
	}

	var chatResponse ollamaChatResponse
	if err := json.Unmarshal(responseBody, &chatResponse); err != nil {
		return nil, fmt.Errorf("%w: failed to parse Ollama response: %v", types.ErrService, err)
	}

	return &types.CompletionResponse{
		Content: chatResponse.Message.Content,
		Usage: types.TokenUsage{
			PromptTokens:     chatResponse.PromptEvalCount,
			CompletionTokens: chatResponse.EvalCount,
			TotalTokens:      chatResponse.PromptEvalCount + chatResponse.EvalCount,
		},
	}, nil
}

// Model returns the configured model name.
func (c *OllamaClientImpl) Model() string { return c.model }

// isTimeout reports whether err is a network timeout.
func isTimeout(err error) bool {
	var timeoutErr interface{ Timeout() bool }
	return errors.As(err, &timeoutErr) && timeoutErr.Timeout()
}

// SetBaseURL overrides the Ollama base URL.  Used in tests.
func (c *OllamaClientImpl) SetBaseURL(url string) { c.baseURL = url }
