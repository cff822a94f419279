package types

import "errors"

// Message represents a message in a conversation
type Message struct {
	Role    string `json:"role"`    // user, assistant, system
	Content string `json:"content"` // message text
}

// CompletionResponse represents a completion response
type CompletionResponse struct {
	Content string     `json:"content"` // generated text
	Usage   TokenUsage `json:"usage"`   // token usage
}

// TokenUsage tracks token usage per request
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`     // input tokens
	CompletionTokens int `json:"completion_tokens"` // output tokens
	TotalTokens      int `json:"total_tokens"`      // total tokens
}

// Classified provider errors. Retry logic only retries the transient ones.
var (
	// ErrRateLimited indicates the provider rejected the request with HTTP 429.
	ErrRateLimited = errors.New("llm: rate limited")

	// ErrTimeout indicates the request exceeded its deadline.
	ErrTimeout = errors.New("llm: request timed out")

	// ErrService indicates a non-transient provider failure (auth, bad request,
	// malformed response). Not retried.
	ErrService = errors.New("llm: service error")
)

// IsRetryable reports whether err is a transient provider error worth retrying.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTimeout)
}
