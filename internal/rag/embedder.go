package rag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/sentinelops/sentinel-ai/internal/cache"
	"github.com/sentinelops/sentinel-ai/internal/metrics"
)

// maxEmbedLength bounds the text sent to the embedding API.
const maxEmbedLength = 8000

// Embedder converts text into a vector for similarity search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// openAIEmbedder embeds text via the OpenAI embeddings API, with a TTL cache
// in front so repeated alert signatures don't re-embed.
type openAIEmbedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	cache      cache.Cache
	ttlSeconds int
}

// NewOpenAIEmbedder creates an embedder backed by the OpenAI embeddings API.
// cache may be nil to disable caching.
func NewOpenAIEmbedder(apiKey, model string, c cache.Cache, ttlSeconds int) (Embedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("embedding API key is required")
	}
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}

	return &openAIEmbedder{
		client:     openai.NewClient(apiKey),
		model:      openai.EmbeddingModel(model),
		cache:      c,
		ttlSeconds: ttlSeconds,
	}, nil
}

func (e *openAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if len(text) > maxEmbedLength {
		text = text[:maxEmbedLength]
	}

	key := embeddingCacheKey(text)
	if e.cache != nil {
		if value, found, _ := e.cache.Get(ctx, key); found {
			if vector, ok := value.([]float32); ok {
				metrics.EmbeddingCacheHits.WithLabelValues("hit").Inc()
				return vector, nil
			}
		}
		metrics.EmbeddingCacheHits.WithLabelValues("miss").Inc()
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("empty embedding response")
	}

	vector := resp.Data[0].Embedding

	if e.cache != nil {
		_ = e.cache.Set(ctx, key, vector, e.ttlSeconds)
	}

	return vector, nil
}

func embeddingCacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "embedding:" + hex.EncodeToString(sum[:])
}
