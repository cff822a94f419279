package adapter

import (
	"context"

	"github.com/sentinelops/sentinel-ai/internal/llm/types"
)

// Package adapter provides a unified interface for different LLM providers.
//
// Responsibilities:
//   - Abstract differences between LLM providers (OpenAI, Ollama, custom)
//   - Provide single interface for all LLM completion operations
//   - Classify provider errors for the retry layer
//   - Record request metrics per provider/model
//
// Supported Providers:
//   1. OpenAI: gpt-4, gpt-4o, gpt-3.5-turbo
//   2. Ollama: Local models (llama3, mistral, codellama, etc.)
//   3. Custom: OpenAI-compatible endpoints (vLLM, LocalAI, LM Studio, etc.)
//
// Fallback Behavior (No LLM Configured):
//   - Completions return ErrProviderNotConfigured
//   - Alert processing falls through to the static recommendation tier
//   - Incident search and synthesis fallbacks still work without an LLM

// LLMAdapter defines the unified interface for LLM providers.
type LLMAdapter interface {
	// Complete sends a conversation and returns the completion.
	// messages: list of {role: "user"|"assistant"|"system", content: "..."}
	Complete(ctx context.Context, messages []types.Message) (*types.CompletionResponse, error)

	// Provider returns the configured provider type.
	Provider() ProviderType
}
