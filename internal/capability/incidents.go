package capability

import (
	"context"
	"fmt"
	"strings"

	"github.com/sentinelops/sentinel-ai/internal/rag"
)

// incidentSearch queries the incident store for past incidents similar
// to the current query and formats them for the workflow.
type incidentSearch struct {
	store rag.IncidentStore
	topK  int
}

func NewIncidentSearch(store rag.IncidentStore, topK int) Capability {
	if topK < 1 {
		topK = 3
	}
	return &incidentSearch{store: store, topK: topK}
}

func (c *incidentSearch) Name() Name { return HistoricalIncidentSearch }

func (c *incidentSearch) Description() string {
	return "Search past incidents for similar errors and their known solutions."
}

func (c *incidentSearch) Execute(ctx context.Context, req Request) (*Response, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" && req.Alert != nil {
		query = req.Alert.Summary
	}
	if query == "" {
		return nil, fmt.Errorf("incident search requires a query")
	}

	incidents, err := c.store.Search(ctx, query, c.topK)
	if err != nil {
		return nil, fmt.Errorf("incident search: %w", err)
	}

	if len(incidents) == 0 {
		return &Response{Output: "No similar past incidents were found."}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d similar past incident(s):\n", len(incidents))
	for i, inc := range incidents {
		fmt.Fprintf(&b, "%d. [score %.2f] error: %s\n   solution: %s\n",
			i+1, inc.SimilarityScore, inc.Error, inc.Solution)
	}
	return &Response{Output: b.String(), Incidents: incidents}, nil
}
