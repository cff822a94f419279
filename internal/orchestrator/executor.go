package orchestrator

import (
	"context"
	"time"

	"github.com/sentinelops/sentinel-ai/internal/capability"
	"github.com/sentinelops/sentinel-ai/internal/metrics"
)

// StepResult is what one executed step hands back to the workflow
// engine: the step mutation plus the knowledge delta and the early
// termination signal.
type StepResult struct {
	Status        StepStatus
	ToolUsed      capability.Name
	ResultSummary string
	FullResult    *capability.Response

	// KnowledgeDelta is the bounded summary to merge into accumulated
	// knowledge. Empty for failed steps.
	KnowledgeDelta string

	// Terminate is set when the decision chose final-answer: no further
	// plan steps run after this one.
	Terminate bool
}

// StepExecutor drives one plan step through decide, invoke, summarize.
type StepExecutor interface {
	Execute(ctx context.Context, ec *ExecutionContext) *StepResult
}

type stepExecutor struct {
	decider  DecisionService
	registry *capability.Registry
	timeout  time.Duration
}

func NewStepExecutor(decider DecisionService, registry *capability.Registry, stepTimeoutSeconds int) StepExecutor {
	timeout := 120 * time.Second
	if stepTimeoutSeconds > 0 {
		timeout = time.Duration(stepTimeoutSeconds) * time.Second
	}
	return &stepExecutor{decider: decider, registry: registry, timeout: timeout}
}

// Execute never returns an error: every failure mode is encoded in the
// StepResult as a Failed status with the error text as the summary, so
// the workflow engine has a single path for recording outcomes.
func (e *stepExecutor) Execute(ctx context.Context, ec *ExecutionContext) *StepResult {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()

	decision, err := e.decider.Decide(ctx, ec)
	if err != nil {
		metrics.StepExecutionsTotal.WithLabelValues("unknown", "failed").Inc()
		return &StepResult{Status: StepFailed, ToolUsed: "", ResultSummary: err.Error()}
	}

	resp, err := e.registry.Invoke(ctx, decision.Capability, capability.Request{
		Query: decision.Query,
		Alert: ec.Alert,
	})
	label := string(decision.Capability)
	metrics.StepExecutionDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.StepExecutionsTotal.WithLabelValues(label, "failed").Inc()
		return &StepResult{Status: StepFailed, ToolUsed: decision.Capability, ResultSummary: err.Error()}
	}

	summary := SummarizeStepResult(ec.StepDescription, resp, decision.Capability)
	metrics.StepExecutionsTotal.WithLabelValues(label, "completed").Inc()
	return &StepResult{
		Status:         StepCompleted,
		ToolUsed:       decision.Capability,
		ResultSummary:  summary,
		FullResult:     resp,
		KnowledgeDelta: summary,
		Terminate:      decision.Capability == capability.FinalAnswer,
	}
}
