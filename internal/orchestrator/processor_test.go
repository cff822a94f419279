package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sentinelops/sentinel-ai/internal/db"
	"github.com/sentinelops/sentinel-ai/internal/llm/adapter"
	llmtypes "github.com/sentinelops/sentinel-ai/internal/llm/types"
	"github.com/sentinelops/sentinel-ai/internal/models"
)

func newTestProcessor(t *testing.T, llm adapter.LLMAdapter, store *fakeIncidentStore) (Processor, db.Store) {
	t.Helper()
	registry := newTestRegistry(t, store)

	dbStore, err := db.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { _ = dbStore.Close() })

	synth := NewSynthesizer(llm)
	eng := NewEngine(NewPlanBuilder(llm, 3, 5), NewStepExecutor(NewDecisionService(llm), registry, 5), synth, registry, llm, nil)
	return NewProcessor(eng, registry, synth, dbStore, nil, 3), dbStore
}

func TestProcessTierOne(t *testing.T) {
	llm := &scriptedLLM{
		PlanResponse: "1. Retrieve incidents\n2. Conclude\n3. Wrap up",
		DecisionResponses: []string{
			"capability: final-answer\nquery: raise the memory limit",
		},
		SynthesisResponse: "Raise the memory limit to 512Mi.",
	}
	p, store := newTestProcessor(t, llm, oneIncidentStore())

	res := p.Process(context.Background(), testAlert(), "prod cluster")
	if res.Tier != TierFullWorkflow {
		t.Fatalf("expected tier 1, got %d", res.Tier)
	}
	if res.Recommendation.RecommendationText != "Raise the memory limit to 512Mi." {
		t.Errorf("unexpected recommendation %q", res.Recommendation.RecommendationText)
	}
	if len(res.Recommendation.SimilarIncidents) != 1 {
		t.Errorf("expected incident carried through, got %d", len(res.Recommendation.SimilarIncidents))
	}

	// The run was persisted with its steps.
	rec, err := store.GetRun(context.Background(), res.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if rec.Tier != TierFullWorkflow || rec.AlertID != "a1" {
		t.Errorf("persisted run mismatch: tier=%d alert=%s", rec.Tier, rec.AlertID)
	}
	if len(rec.Steps) != 3 {
		t.Errorf("expected 3 persisted steps, got %d", len(rec.Steps))
	}
	if last := rec.Steps[2]; last.Status != string(StepSkipped) {
		t.Errorf("step after early termination should be skipped, got %s", last.Status)
	}
}

func TestProcessTierThreeWhenCompletionsAlwaysFail(t *testing.T) {
	llm := &failingLLM{err: llmtypes.ErrService}
	p, store := newTestProcessor(t, llm, oneIncidentStore())

	res := p.Process(context.Background(), testAlert(), "")
	if res.Tier != TierStatic {
		t.Fatalf("expected tier 3, got %d", res.Tier)
	}
	rec := res.Recommendation
	if rec.RecommendationText != FallbackRecommendationText {
		t.Errorf("expected static fallback text, got %q", rec.RecommendationText)
	}
	if len(rec.SimilarIncidents) != 0 || len(rec.CompletedTasks) != 0 {
		t.Errorf("static fallback must have empty lists: %+v", rec)
	}
	if rec.AlertID != "a1" || rec.AlertType != "PodCrashLoop" {
		t.Errorf("fallback should still carry alert identity: %+v", rec)
	}

	persisted, err := store.GetRun(context.Background(), res.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if persisted.Tier != TierStatic {
		t.Errorf("persisted tier = %d, want 3", persisted.Tier)
	}
}

func TestProcessTierTwoWhenWorkflowSynthesisFails(t *testing.T) {
	// Synthesis fails on the first call (tier 1) and succeeds on the
	// second (tier 2 minimal pipeline).
	llm := &flakySynthesisLLM{
		inner: &scriptedLLM{
			PlanResponse: "1. Retrieve incidents\n2. Conclude",
			DecisionResponses: []string{
				"capability: final-answer\nquery: done",
			},
			SynthesisResponse: "Minimal pipeline recommendation.",
		},
		failures: 1,
	}
	p, _ := newTestProcessor(t, llm, oneIncidentStore())

	res := p.Process(context.Background(), testAlert(), "")
	if res.Tier != TierMinimal {
		t.Fatalf("expected tier 2, got %d", res.Tier)
	}
	if res.Recommendation.RecommendationText != "Minimal pipeline recommendation." {
		t.Errorf("unexpected recommendation %q", res.Recommendation.RecommendationText)
	}
	if len(res.Recommendation.SimilarIncidents) != 1 {
		t.Errorf("tier 2 should carry the lookup's incidents, got %d", len(res.Recommendation.SimilarIncidents))
	}
	if len(res.Recommendation.CompletedTasks) != 1 {
		t.Errorf("tier 2 completes exactly the lookup step, got %v", res.Recommendation.CompletedTasks)
	}
}

func TestProcessSurvivesWorkflowPanic(t *testing.T) {
	llm := &scriptedLLM{SynthesisResponse: "Recovered recommendation."}
	registry := newTestRegistry(t, oneIncidentStore())
	p := NewProcessor(&panickyEngine{}, registry, NewSynthesizer(llm), nil, nil, 3)

	res := p.Process(context.Background(), testAlert(), "")
	if res.Tier != TierMinimal {
		t.Fatalf("expected tier 2 after workflow panic, got %d", res.Tier)
	}
	if res.Recommendation.RecommendationText != "Recovered recommendation." {
		t.Errorf("unexpected recommendation %q", res.Recommendation.RecommendationText)
	}
}

func TestProcessIsTotalEvenOnNilAlert(t *testing.T) {
	llm := &failingLLM{err: llmtypes.ErrService}
	p, _ := newTestProcessor(t, llm, &fakeIncidentStore{err: errors.New("down")})

	res := p.Process(context.Background(), nil, "")
	if res == nil || res.Recommendation == nil {
		t.Fatal("Process must always return a recommendation")
	}
	if res.Tier != TierStatic {
		t.Errorf("expected tier 3 for nil alert, got %d", res.Tier)
	}
}

// panickyEngine stands in for a workflow engine with a latent bug.
type panickyEngine struct{}

func (p *panickyEngine) Run(ctx context.Context, alert *models.Alert, context_ string) (*RunResult, error) {
	panic("workflow bug")
}

func (p *panickyEngine) Subscribe(alertID string) *Subscriber { return nil }

// failingLLM fails every completion.
type failingLLM struct {
	err error
}

func (f *failingLLM) Complete(ctx context.Context, messages []llmtypes.Message) (*llmtypes.CompletionResponse, error) {
	return nil, f.err
}

func (f *failingLLM) Provider() adapter.ProviderType { return adapter.ProviderOpenAI }

// flakySynthesisLLM delegates to inner but fails the first N synthesis
// calls.
type flakySynthesisLLM struct {
	inner    *scriptedLLM
	failures int
}

func (f *flakySynthesisLLM) Complete(ctx context.Context, messages []llmtypes.Message) (*llmtypes.CompletionResponse, error) {
	prompt := messages[len(messages)-1].Content
	if f.failures > 0 && containsSynthesis(prompt) {
		f.failures--
		return nil, llmtypes.ErrService
	}
	return f.inner.Complete(ctx, messages)
}

func (f *flakySynthesisLLM) Provider() adapter.ProviderType { return adapter.ProviderOpenAI }

func containsSynthesis(prompt string) bool {
	return strings.Contains(prompt, "final recommendation")
}
