package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sentinelops/sentinel-ai/internal/llm/adapter"
	llmtypes "github.com/sentinelops/sentinel-ai/internal/llm/types"
	"github.com/sentinelops/sentinel-ai/internal/models"
)

// Synthesizer produces the final recommendation from the full run
// history. The returned recommendation is always non-nil: a synthesis
// failure yields a recommendation whose text describes the failure,
// with the error returned alongside so the degradation controller can
// decide whether to fall through to a simpler tier.
type Synthesizer interface {
	Synthesize(ctx context.Context, plan *Plan, reflections []Reflection, incidents []models.SimilarIncident, knowledge string) (*models.Recommendation, error)
}

type synthesizer struct {
	llm adapter.LLMAdapter
}

func NewSynthesizer(llm adapter.LLMAdapter) Synthesizer {
	return &synthesizer{llm: llm}
}

func (s *synthesizer) Synthesize(ctx context.Context, plan *Plan, reflections []Reflection, incidents []models.SimilarIncident, knowledge string) (*models.Recommendation, error) {
	rec := &models.Recommendation{
		AlertID:          plan.Alert.ID,
		AlertType:        plan.Alert.Type,
		SimilarIncidents: incidents,
		CompletedTasks:   plan.CompletedDescriptions(),
		GeneratedAt:      time.Now(),
	}
	if rec.SimilarIncidents == nil {
		rec.SimilarIncidents = []models.SimilarIncident{}
	}
	if rec.CompletedTasks == nil {
		rec.CompletedTasks = []string{}
	}

	resp, err := s.llm.Complete(ctx, []llmtypes.Message{
		{Role: "system", Content: "You write actionable incident recommendations for on-call engineers."},
		{Role: "user", Content: buildSynthesisPrompt(plan.Alert, plan.Context, plan, reflections, incidents, knowledge)},
	})
	if err != nil {
		rec.RecommendationText = fmt.Sprintf("%v: %v", ErrSynthesisFailure, err)
		return rec, fmt.Errorf("%w: %v", ErrSynthesisFailure, err)
	}

	text := strings.TrimSpace(resp.Content)
	if text == "" {
		rec.RecommendationText = "Recommendation synthesis produced no output; review the completed investigation steps directly."
		return rec, fmt.Errorf("%w: empty completion", ErrSynthesisFailure)
	}
	rec.RecommendationText = text
	return rec, nil
}
