package rag

import (
	"context"

	"github.com/sentinelops/sentinel-ai/internal/cache"
	"github.com/sentinelops/sentinel-ai/internal/config"
	"github.com/sentinelops/sentinel-ai/internal/models"
)

// Package rag provides the historical incident store used for similarity
// retrieval during alert investigation.
//
// Two backends are supported:
//   - Weaviate: vector search over embedded incident records. Scores are
//     1 − cosine distance, so higher means closer.
//   - In-memory: keyword-overlap scoring. Used when no Weaviate endpoint is
//     configured, so the service degrades instead of failing.

// IncidentStore retrieves historical incidents similar to a query.
type IncidentStore interface {
	// Search returns up to topK incidents ordered by descending similarity.
	// An empty result is not an error.
	Search(ctx context.Context, query string, topK int) ([]models.SimilarIncident, error)

	// Add indexes an incident record. Used for seeding and for recording
	// resolved incidents back into the store.
	Add(ctx context.Context, incident models.SimilarIncident) error

	// Backend identifies the active backend ("weaviate" or "memory").
	Backend() string
}

// NewIncidentStore selects a backend from configuration. A configured
// Weaviate URL selects vector search; otherwise the keyword fallback is used.
func NewIncidentStore(cfg *config.Config, apiKey string, c cache.Cache) (IncidentStore, error) {
	if cfg.Incidents.WeaviateURL == "" {
		return NewMemoryStore(), nil
	}

	embedder, err := NewOpenAIEmbedder(apiKey, cfg.Incidents.EmbeddingModel, c, cfg.Cache.TTLSeconds)
	if err != nil {
		return nil, err
	}

	return NewWeaviateStore(cfg.Incidents.WeaviateURL, cfg.Incidents.ClassName, embedder)
}
