package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	sentinelmodels "github.com/sentinelops/sentinel-ai/internal/models"
	"github.com/sentinelops/sentinel-ai/internal/metrics"
)

// weaviateStore retrieves incidents via Weaviate nearVector search.
type weaviateStore struct {
	client    *weaviate.Client
	className string
	embedder  Embedder
}

// NewWeaviateStore creates an incident store backed by Weaviate.
func NewWeaviateStore(rawURL, className string, embedder Embedder) (IncidentStore, error) {
	if className == "" {
		return nil, fmt.Errorf("class name is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}

	cfg := weaviate.Config{
		Host:   rawURL,
		Scheme: "http",
	}

	// Parse URL to extract scheme if present
	if strings.HasPrefix(rawURL, "https://") {
		cfg.Scheme = "https"
		cfg.Host = strings.TrimPrefix(rawURL, "https://")
	} else if strings.HasPrefix(rawURL, "http://") {
		cfg.Host = strings.TrimPrefix(rawURL, "http://")
	}

	client, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create weaviate client: %w", err)
	}

	return &weaviateStore{
		client:    client,
		className: className,
		embedder:  embedder,
	}, nil
}

func (s *weaviateStore) Backend() string { return "weaviate" }

// Search embeds the query and runs a nearVector search. The similarity score
// is 1 − cosine distance from _additional.distance.
func (s *weaviateStore) Search(ctx context.Context, query string, topK int) ([]sentinelmodels.SimilarIncident, error) {
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if topK <= 0 {
		topK = 3
	}

	start := time.Now()

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		metrics.IncidentSearchesTotal.WithLabelValues("weaviate", "error").Inc()
		return nil, fmt.Errorf("embed query: %w", err)
	}

	nearVector := s.client.GraphQL().NearVectorArgBuilder().
		WithVector(vector)

	fields := []graphql.Field{
		{Name: "incidentId"},
		{Name: "errorText"},
		{Name: "solution"},
		{Name: "metadataJson"},
		{Name: "_additional", Fields: []graphql.Field{
			{Name: "distance"},
		}},
	}

	result, err := s.client.GraphQL().Get().
		WithClassName(s.className).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(topK).
		Do(ctx)

	metrics.IncidentSearchDuration.WithLabelValues("weaviate").Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.IncidentSearchesTotal.WithLabelValues("weaviate", "error").Inc()
		return nil, fmt.Errorf("weaviate search failed: %w", err)
	}

	if len(result.Errors) > 0 {
		metrics.IncidentSearchesTotal.WithLabelValues("weaviate", "error").Inc()
		return nil, fmt.Errorf("weaviate search error: %s", result.Errors[0].Message)
	}

	incidents := parseSearchResponse(result, s.className)
	metrics.IncidentSearchesTotal.WithLabelValues("weaviate", "success").Inc()
	return incidents, nil
}

// Add writes an incident object. The vector comes from embedding the error
// text concatenated with the solution.
func (s *weaviateStore) Add(ctx context.Context, incident sentinelmodels.SimilarIncident) error {
	vector, err := s.embedder.Embed(ctx, incident.Error+"\n"+incident.Solution)
	if err != nil {
		return fmt.Errorf("embed incident: %w", err)
	}

	id := incident.ID
	if id == "" {
		id = uuid.New().String()
	}

	metadataJSON := ""
	if len(incident.Metadata) > 0 {
		raw, err := json.Marshal(incident.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		metadataJSON = string(raw)
	}

	_, err = s.client.Data().Creator().
		WithClassName(s.className).
		WithID(id).
		WithProperties(map[string]interface{}{
			"incidentId":   id,
			"errorText":    incident.Error,
			"solution":     incident.Solution,
			"metadataJson": metadataJSON,
		}).
		WithVector(vector).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("store incident: %w", err)
	}

	return nil
}

// parseSearchResponse converts a GraphQL Get response into incident records.
func parseSearchResponse(result *models.GraphQLResponse, className string) []sentinelmodels.SimilarIncident {
	data, ok := result.Data["Get"].(map[string]interface{})
	if !ok {
		return nil
	}

	objects, ok := data[className].([]interface{})
	if !ok {
		return nil
	}

	incidents := make([]sentinelmodels.SimilarIncident, 0, len(objects))
	for _, obj := range objects {
		m, ok := obj.(map[string]interface{})
		if !ok {
			continue // skip malformed objects
		}

		incident := sentinelmodels.SimilarIncident{
			ID:       getString(m, "incidentId"),
			Error:    getString(m, "errorText"),
			Solution: getString(m, "solution"),
		}

		if metadataJSON := getString(m, "metadataJson"); metadataJSON != "" {
			var metadata map[string]string
			if err := json.Unmarshal([]byte(metadataJSON), &metadata); err == nil {
				incident.Metadata = metadata
			}
		}

		// Cosine distance → similarity
		if additional, ok := m["_additional"].(map[string]interface{}); ok {
			if distance, ok := additional["distance"].(float64); ok {
				incident.SimilarityScore = 1 - distance
			}
		}

		incidents = append(incidents, incident)
	}

	return incidents
}

func getString(m map[string]interface{}, key string) string {
	if value, ok := m[key].(string); ok {
		return value
	}
	return ""
}
