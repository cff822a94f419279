package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/sentinelops/sentinel-ai/internal/capability"
)

func testExecutionContext() *ExecutionContext {
	return &ExecutionContext{
		Alert:                testAlert(),
		Context:              "prod cluster",
		AccumulatedKnowledge: "[historical-incident-search] found one match",
		StepID:               1,
		StepDescription:      "Check recent deployments",
	}
}

func TestDecideParsesCapabilityAndQuery(t *testing.T) {
	llm := &scriptedLLM{DecisionResponses: []string{
		"capability: web-search\nquery: kubernetes OOMKilled pod restart loop",
	}}

	d, err := NewDecisionService(llm).Decide(context.Background(), testExecutionContext())
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.Capability != capability.WebSearch {
		t.Errorf("expected web-search, got %s", d.Capability)
	}
	if d.Query != "kubernetes OOMKilled pod restart loop" {
		t.Errorf("unexpected query %q", d.Query)
	}
}

func TestDecideToleratesDecoratedOutput(t *testing.T) {
	llm := &scriptedLLM{DecisionResponses: []string{
		"- Capability: `calculator`\n- Query: (120 - 90) / 120",
	}}

	d, err := NewDecisionService(llm).Decide(context.Background(), testExecutionContext())
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.Capability != capability.Calculator {
		t.Errorf("expected calculator, got %s", d.Capability)
	}
	if d.Query != "(120 - 90) / 120" {
		t.Errorf("unexpected query %q", d.Query)
	}
}

func TestDecideKeepsMultiLineQuery(t *testing.T) {
	llm := &scriptedLLM{DecisionResponses: []string{
		"capability: final-answer\nquery: The pod is OOMKilled.\nRaise the memory limit to 512Mi.",
	}}

	d, err := NewDecisionService(llm).Decide(context.Background(), testExecutionContext())
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.Capability != capability.FinalAnswer {
		t.Errorf("expected final-answer, got %s", d.Capability)
	}
	if d.Query != "The pod is OOMKilled.\nRaise the memory limit to 512Mi." {
		t.Errorf("unexpected query %q", d.Query)
	}
}

func TestDecideFailsOnLLMError(t *testing.T) {
	llm := &scriptedLLM{DecisionErr: errors.New("rate limited")}
	_, err := NewDecisionService(llm).Decide(context.Background(), testExecutionContext())
	if !errors.Is(err, ErrDecisionFailure) {
		t.Errorf("expected ErrDecisionFailure, got %v", err)
	}
}

func TestDecideFailsOnUnknownCapability(t *testing.T) {
	llm := &scriptedLLM{DecisionResponses: []string{
		"capability: time-travel\nquery: go back before the deploy",
	}}
	_, err := NewDecisionService(llm).Decide(context.Background(), testExecutionContext())
	if !errors.Is(err, ErrDecisionFailure) {
		t.Fatalf("expected ErrDecisionFailure, got %v", err)
	}
	if !errors.Is(err, capability.ErrUnknownCapability) {
		t.Errorf("expected wrapped ErrUnknownCapability, got %v", err)
	}
}

func TestDecideFailsOnMissingQuery(t *testing.T) {
	llm := &scriptedLLM{DecisionResponses: []string{"capability: web-search"}}
	_, err := NewDecisionService(llm).Decide(context.Background(), testExecutionContext())
	if !errors.Is(err, ErrDecisionFailure) {
		t.Errorf("expected ErrDecisionFailure, got %v", err)
	}
}

func TestDecideFailsOnUnparseableOutput(t *testing.T) {
	llm := &scriptedLLM{DecisionResponses: []string{"just run a web search I guess"}}
	_, err := NewDecisionService(llm).Decide(context.Background(), testExecutionContext())
	if !errors.Is(err, ErrDecisionFailure) {
		t.Errorf("expected ErrDecisionFailure, got %v", err)
	}
}
