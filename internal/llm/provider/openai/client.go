package openai

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

// Package openai provides the OpenAI provider implementation for the LLM adapter.
//
// Responsibilities:
//   - Implement the LLM adapter interface for the OpenAI chat completions API
//   - Support GPT-4, GPT-4o, GPT-3.5-turbo models
//   - Classify transient failures (rate limit, timeout) for the retry layer
//   - Token accounting from the API usage block
//
// Supported Models:
//   - gpt-4: 8k context, excellent reasoning, high cost
//   - gpt-4-turbo: 128k context, faster, lower cost
//   - gpt-4o: Latest multimodal, fast, moderate cost
//   - gpt-3.5-turbo: Fast, low cost, suitable for simple tasks

const (
	DefaultBaseURL   = "https://api.openai.com/v1"
	DefaultModel     = "gpt-4o"
	DefaultMaxTokens = 2048
	DefaultTimeout   = 120 * time.Second
)

// OpenAIClientImpl implements the LLM adapter interface for OpenAI.
type OpenAIClientImpl struct {
	apiKey     string
	model      string
	maxTokens  int
	baseURL    string
	httpClient *http.Client
}

// OpenAI API structures
type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature,omitempty"`
}

type openAIChatResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// NewOpenAIClient creates a new OpenAI client with configuration.
func NewOpenAIClient(apiKey, model string) (*OpenAIClientImpl, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	if model == "" {
		model = DefaultModel
	}

	return &OpenAIClientImpl{
		apiKey:    apiKey,
		model:     model,
		maxTokens: DefaultMaxTokens,
		baseURL:   DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}, nil
}

// Complete sends the conversation to the chat completions API and returns
// the assistant's reply.
func (c *OpenAIClientImpl) Complete(ctx context.Context, messages []types.Message) (*types.CompletionResponse, error) {
	// Convert messages to OpenAI format
	openAIMessages := make([]openAIMessage, len(messages))
	for i, msg := range messages {
		openAIMessages[i] = openAIMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	// Build request
	request := openAIChatRequest{
		Model:     c.model,
		Messages:  openAIMessages,
		MaxTokens: c.maxTokens,
	}

	// Make HTTP request
	response, err := c.makeRequest(ctx, "/chat/completions", request)
	if err != nil {
		return nil, err
	}

	// Parse response
	var chatResponse openAIChatResponse
	if err := json.Unmarshal(response, &chatResponse); err != nil {
		return nil, fmt.Errorf("%w: failed to parse OpenAI response: %v", types.ErrService, err)
	}

	if len(chatResponse.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in OpenAI response", types.ErrService)
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
func (c *OpenAIClientImpl) Model() string { return c.model }

// makeRequest makes an HTTP request to OpenAI API
func (c *OpenAIClientImpl) makeRequest(ctx context.Context, endpoint string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal request: %v", types.ErrService, err)
	}

	url := c.baseURL + endpoint
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", types.ErrService, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

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
		return responseBody, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %s", types.ErrRateLimited, string(responseBody))
	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusGatewayTimeout:
		return nil, fmt.Errorf("%w: status %d: %s", types.ErrTimeout, resp.StatusCode, string(responseBody))
	default:
		return nil, fmt.Errorf("%w: OpenAI API error (status %d): %s", types.ErrService, resp.StatusCode, string(responseBody))
	}
}

// isTimeout reports whether err is a network timeout.
func isTimeout(err error) bool {
	var timeoutErr interface{ Timeout() bool }
	return errors.As(err, &timeoutErr) && timeoutErr.Timeout()
}

// SetBaseURL overrides the OpenAI API base URL.  Used in tests.
func (c *OpenAIClientImpl) SetBaseURL(url string) { c.baseURL = url }
