package rag

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/sentinelops/sentinel-ai/internal/metrics"
	"github.com/sentinelops/sentinel-ai/internal/models"
)

// memoryStore is a graceful-degradation incident store. It scores by keyword
// overlap when no vector backend is available. Scores are normalized to the
// fraction of query terms matched so they stay in [0, 1] like vector scores.
type memoryStore struct {
	mu        sync.RWMutex
	incidents []models.SimilarIncident
}

// NewMemoryStore creates an in-memory keyword-scored incident store.
func NewMemoryStore() IncidentStore {
	return &memoryStore{
		incidents: make([]models.SimilarIncident, 0, 64),
	}
}

func (s *memoryStore) Backend() string { return "memory" }

func (s *memoryStore) Search(ctx context.Context, query string, topK int) ([]models.SimilarIncident, error) {
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if topK <= 0 {
		topK = 3
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	queryTerms := strings.Fields(strings.ToLower(query))
	if len(queryTerms) == 0 {
		return nil, nil
	}

	type scored struct {
		incident models.SimilarIncident
		score    float64
	}

	var matches []scored
	for _, incident := range s.incidents {
		text := strings.ToLower(incident.Error + " " + incident.Solution)
		hits := 0
		for _, term := range queryTerms {
			if strings.Contains(text, term) {
				hits++
			}
		}
		if hits > 0 {
			matches = append(matches, scored{
				incident: incident,
				score:    float64(hits) / float64(len(queryTerms)),
			})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}

	results := make([]models.SimilarIncident, 0, len(matches))
	for _, m := range matches {
		incident := m.incident
		incident.SimilarityScore = m.score
		results = append(results, incident)
	}

	metrics.IncidentSearchesTotal.WithLabelValues("memory", "success").Inc()
	return results, nil
}

func (s *memoryStore) Add(ctx context.Context, incident models.SimilarIncident) error {
	if incident.Error == "" {
		return fmt.Errorf("incident error text is required")
	}

	if incident.ID == "" {
		incident.ID = uuid.New().String()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.incidents = append(s.incidents, incident)
	return nil
}
