package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/sentinelops/sentinel-ai/internal/llm/adapter"
	llmtypes "github.com/sentinelops/sentinel-ai/internal/llm/types"
	"github.com/sentinelops/sentinel-ai/internal/metrics"
	"github.com/sentinelops/sentinel-ai/internal/models"
)

// PlanBuilder turns an alert plus free-text context into an ordered
// investigation plan.
type PlanBuilder interface {
	Build(ctx context.Context, alert *models.Alert, context_ string) (*Plan, error)
}

type planBuilder struct {
	llm      adapter.LLMAdapter
	minSteps int
	maxSteps int
}

func NewPlanBuilder(llm adapter.LLMAdapter, minSteps, maxSteps int) PlanBuilder {
	if minSteps < 1 {
		minSteps = 3
	}
	if maxSteps < minSteps {
		maxSteps = 5
	}
	return &planBuilder{llm: llm, minSteps: minSteps, maxSteps: maxSteps}
}

// defaultStepDescriptions is the fallback plan used when the model call
// fails or its output yields no parseable steps.
var defaultStepDescriptions = []string{
	"Retrieve similar past incidents and gather information about the alert",
	"Analyze the collected information to identify the root cause",
	"Implement a resolution or escalate with the findings",
}

// Build asks the model for a numbered plan and falls back to the
// default plan on any failure. It never returns an error: a plan is
// always produced.
func (b *planBuilder) Build(ctx context.Context, alert *models.Alert, context_ string) (*Plan, error) {
	if alert == nil {
		return nil, fmt.Errorf("plan builder: alert is required")
	}

	descriptions, source := b.generateSteps(ctx, alert, context_)

	plan := &Plan{
		Alert:   alert,
		Context: context_,
		Steps:   make([]PlanStep, len(descriptions)),
		Source:  source,
	}
	for i, d := range descriptions {
		plan.Steps[i] = PlanStep{Index: i, Description: d, Status: StepPending, ToolUsed: "none"}
	}

	metrics.PlanStepsTotal.WithLabelValues(source).Observe(float64(len(plan.Steps)))
	return plan, nil
}

func (b *planBuilder) generateSteps(ctx context.Context, alert *models.Alert, context_ string) ([]string, string) {
	resp, err := b.llm.Complete(ctx, []llmtypes.Message{
		{Role: "system", Content: "You plan incident investigations. Respond with a numbered list only."},
		{Role: "user", Content: buildPlanPrompt(alert, context_)},
	})
	if err != nil {
		return defaultStepDescriptions, "default"
	}

	steps := parseNumberedList(resp.Content, b.maxSteps)
	if len(steps) == 0 {
		return defaultStepDescriptions, "default"
	}
	// Pad with the tail of the default plan rather than running a plan
	// shorter than the configured minimum.
	for i := len(steps); len(steps) < b.minSteps && i < len(defaultStepDescriptions); i++ {
		steps = append(steps, defaultStepDescriptions[i])
	}
	return steps, "llm"
}

// parseNumberedList extracts "1. do something" style lines, discarding
// everything else, capped at max entries.
func parseNumberedList(text string, max int) []string {
	var steps []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !unicode.IsDigit(rune(line[0])) {
			continue
		}
		trimmed := strings.TrimLeft(line, "0123456789")
		if !strings.HasPrefix(trimmed, ".") && !strings.HasPrefix(trimmed, ")") {
			continue
		}
		desc := strings.TrimSpace(strings.TrimLeft(trimmed, ".) "))
		desc = strings.TrimPrefix(desc, "**")
		desc = strings.TrimSuffix(desc, "**")
		if desc == "" {
			continue
		}
		steps = append(steps, desc)
		if len(steps) == max {
			break
		}
	}
	return steps
}
