package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sentinelops/sentinel-ai/internal/llm/adapter"
	llmtypes "github.com/sentinelops/sentinel-ai/internal/llm/types"
	"github.com/sentinelops/sentinel-ai/internal/models"
)

// scriptedLLM routes completions by prompt content so one fake serves
// the planner, decision service, reflection, and synthesizer at once.
// A nil handler falls back to Err or a generic response.
type scriptedLLM struct {
	PlanResponse      string
	PlanErr           error
	DecisionResponses []string // consumed in order, one per decision call
	DecisionErr       error
	ReflectionErr     error
	SynthesisResponse string
	SynthesisErr      error

	decisionCalls int
}

func (s *scriptedLLM) Complete(ctx context.Context, messages []llmtypes.Message) (*llmtypes.CompletionResponse, error) {
	prompt := messages[len(messages)-1].Content
	switch {
	case strings.Contains(prompt, "numbered list of 3 to 5"):
		if s.PlanErr != nil {
			return nil, s.PlanErr
		}
		return &llmtypes.CompletionResponse{Content: s.PlanResponse}, nil
	case strings.Contains(prompt, "Choose exactly one capability"):
		if s.DecisionErr != nil {
			return nil, s.DecisionErr
		}
		idx := s.decisionCalls
		s.decisionCalls++
		if idx >= len(s.DecisionResponses) {
			return nil, errors.New("no scripted decision left")
		}
		return &llmtypes.CompletionResponse{Content: s.DecisionResponses[idx]}, nil
	case strings.Contains(prompt, "Reflect briefly"):
		if s.ReflectionErr != nil {
			return nil, s.ReflectionErr
		}
		return &llmtypes.CompletionResponse{Content: "The step produced useful signal."}, nil
	case strings.Contains(prompt, "final recommendation"):
		if s.SynthesisErr != nil {
			return nil, s.SynthesisErr
		}
		return &llmtypes.CompletionResponse{Content: s.SynthesisResponse}, nil
	}
	return nil, errors.New("unrecognized prompt")
}

func (s *scriptedLLM) Provider() adapter.ProviderType { return adapter.ProviderOpenAI }

func testAlert() *models.Alert {
	return &models.Alert{
		ID:      "a1",
		Type:    "PodCrashLoop",
		Summary: "pod X crashlooping",
		Details: "OOMKilled",
	}
}

func TestPlanBuilderParsesNumberedList(t *testing.T) {
	llm := &scriptedLLM{PlanResponse: `Here is the plan:
1. Retrieve similar past incidents for pod X
2. Check recent deployments and resource limits
3) Analyze container memory usage
4. Apply a fix or escalate
ignore this trailing line`}

	plan, err := NewPlanBuilder(llm, 3, 5).Build(context.Background(), testAlert(), "prod cluster")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(plan.Steps) != 4 {
		t.Fatalf("expected 4 steps, got %d", len(plan.Steps))
	}
	if plan.Source != "llm" {
		t.Errorf("expected source llm, got %s", plan.Source)
	}
	if plan.Steps[2].Description != "Analyze container memory usage" {
		t.Errorf("unexpected step 2 description: %q", plan.Steps[2].Description)
	}
	for i, s := range plan.Steps {
		if s.Index != i {
			t.Errorf("step %d has index %d", i, s.Index)
		}
		if s.Status != StepPending {
			t.Errorf("step %d not pending: %s", i, s.Status)
		}
	}
}

func TestPlanBuilderCapsAtMaxSteps(t *testing.T) {
	llm := &scriptedLLM{PlanResponse: "1. a\n2. b\n3. c\n4. d\n5. e\n6. f\n7. g"}
	plan, err := NewPlanBuilder(llm, 3, 5).Build(context.Background(), testAlert(), "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(plan.Steps) != 5 {
		t.Errorf("expected 5 steps, got %d", len(plan.Steps))
	}
}

func TestPlanBuilderFallsBackOnLLMFailure(t *testing.T) {
	llm := &scriptedLLM{PlanErr: errors.New("service down")}
	plan, err := NewPlanBuilder(llm, 3, 5).Build(context.Background(), testAlert(), "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(plan.Steps) != 3 {
		t.Fatalf("expected default 3-step plan, got %d steps", len(plan.Steps))
	}
	if plan.Source != "default" {
		t.Errorf("expected source default, got %s", plan.Source)
	}
	if !strings.Contains(strings.ToLower(plan.Steps[0].Description), "similar past incidents") {
		t.Errorf("step 0 should be the retrieval step, got %q", plan.Steps[0].Description)
	}
}

func TestPlanBuilderFallsBackOnUnparseableOutput(t *testing.T) {
	llm := &scriptedLLM{PlanResponse: "I cannot help with that."}
	plan, err := NewPlanBuilder(llm, 3, 5).Build(context.Background(), testAlert(), "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(plan.Steps) != 3 || plan.Source != "default" {
		t.Errorf("expected default plan, got %d steps from %s", len(plan.Steps), plan.Source)
	}
}

func TestPlanBuilderPadsShortPlans(t *testing.T) {
	llm := &scriptedLLM{PlanResponse: "1. Only one step"}
	plan, err := NewPlanBuilder(llm, 3, 5).Build(context.Background(), testAlert(), "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(plan.Steps) != 3 {
		t.Fatalf("expected padding to 3 steps, got %d", len(plan.Steps))
	}
	if plan.Steps[0].Description != "Only one step" {
		t.Errorf("parsed step should come first, got %q", plan.Steps[0].Description)
	}
}

func TestParseNumberedList(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"dot style", "1. first\n2. second", 2},
		{"paren style", "1) first\n2) second\n3) third", 3},
		{"mixed noise", "Plan:\n1. first\nnot a step\n2. second", 2},
		{"bold markers", "1. **first**\n2. second", 2},
		{"empty", "", 0},
		{"bare numbers", "1\n2\n3", 0},
	}
	for _, tt := range tests {
		got := parseNumberedList(tt.in, 5)
		if len(got) != tt.want {
			t.Errorf("%s: expected %d steps, got %d (%v)", tt.name, tt.want, len(got), got)
		}
	}
}
