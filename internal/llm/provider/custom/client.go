package custom

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sentinelops/sentinel-ai/internal/llm/types"
)

// Package custom provides support for any OpenAI-compatible endpoint
// (vLLM, LocalAI, LM Studio, self-hosted gateways). The wire format is the
// OpenAI chat completions API; only the base URL and optional API key differ.

const (
	DefaultMaxTokens = 2048
	DefaultTimeout   = 120 * time.Second
)

// CustomClientImpl implements the LLM adapter interface for OpenAI-compatible endpoints.
type CustomClientImpl struct {
	baseURL    string
	apiKey     string
	model      string
	maxTokens  int
	httpClient *http.Client
}

type customMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type customChatRequest struct {
	Model     string          `json:"model"`
	Messages  []customMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens"`
}

type customChatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// NewCustomClient creates a client for an OpenAI-compatible endpoint.
// The API key is optional; many self-hosted gateways do not require one.
func NewCustomClient(baseURL, apiKey, model string) (*CustomClientImpl, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("custom endpoint base URL is required")
	}
	if model == "" {
		return nil, fmt.Errorf("custom endpoint model is required")
	}

	return &CustomClientImpl{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		model:     model,
		maxTokens: DefaultMaxTokens,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}, nil
}

// Complete sends the conversation to the endpoint and returns the
// assistant's reply.
func (c *CustomClientImpl) Complete(ctx context.Context, messages []types.Message) (*types.CompletionResponse, error) {
	customMessages := make([]customMessage, len(messages))
	for i, msg := range messages {
		customMessages[i] = customMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	request := customChatRequest{
		Model:     c.model,
		Messages:  customMessages,
		MaxTokens: c.maxTokens,
	}

	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal request: %v", types.ErrService, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", types.ErrService, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

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
	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusGatewayTimeout:
		return nil, fmt.Errorf("%w: status %d: %s", types.ErrTimeout, resp.StatusCode, string(responseBody))
	default:
		return nil, fmt.Errorf("%w: endpoint error (status %d): %s", types.ErrService, resp.StatusCode, string(responseBody))
	}

	var chatResponse customChatResponse
	if err := json.Unmarshal(responseBody, &chatResponse); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %v", types.ErrService, err)
	}

	if len(chatResponse.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", types.ErrService)
	}

	return &types.CompletionResponse{
		Content: chatResponse.Choices[0].Message.Content,
		Usage: types.TokenUsage{
			PromptTokens:     chatResponse.Usage.PromptTokens,
			CompletionTokens: chatResponse.Usage.CompletionTokens,
			TotalTokens:      chatResponse.Usage.TotalTokens,
		},
	}, nil
}

// Model returns the configured model name.
func (c *CustomClientImpl) Model() string { return c.model }

// isTimeout reports whether err is a network timeout.
func isTimeout(err error) bool {
	var timeoutErr interface{ Timeout() bool }
	return errors.As(err, &timeoutErr) && timeoutErr.Timeout()
}
