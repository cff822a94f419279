// Package orchestrator implements the plan-execute-reflect engine that
// turns an incoming alert into a recommendation.
//
// One alert maps to one Run. The Run owns all mutable state for the
// investigation: the plan, the accumulated knowledge, the reflections,
// and the eventual recommendation. Runs never share state; concurrent
// alerts get independent Runs over shared read-only collaborators.
package orchestrator

import (
	"time"

	"github.com/sentinelops/sentinel-ai/internal/capability"
	"github.com/sentinelops/sentinel-ai/internal/models"
)

// StepIndexIncidentLookup is a routing policy, not an index check that
// happens to work: position 0 of every plan is executed as a historical
// incident lookup regardless of the description the planner produced
// for it. Retrieval always runs first so every later decision sees past
// incidents in the accumulated knowledge.
const StepIndexIncidentLookup = 0

// StepStatus tracks a plan step through its single allowed transition:
// Pending to Completed or Pending to Failed, never back. Steps the run
// abandons after a failure or early termination become Skipped.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)

// PlanStep is one unit of investigation.
type PlanStep struct {
	Index         int                  `json:"index"`
	Description   string               `json:"description"`
	Status        StepStatus           `json:"status"`
	ToolUsed      string               `json:"tool_used"`
	ResultSummary string               `json:"result_summary"`
	FullResult    *capability.Response `json:"-"`
	StartedAt     time.Time            `json:"started_at,omitempty"`
	FinishedAt    time.Time            `json:"finished_at,omitempty"`
}

// Terminal reports whether the step has been processed.
func (s *PlanStep) Terminal() bool {
	return s.Status == StepCompleted || s.Status == StepFailed || s.Status == StepSkipped
}

// Plan is the ordered investigation plan for one alert. Insertion order
// is execution order.
type Plan struct {
	Alert   *models.Alert `json:"alert"`
	Context string        `json:"context"`
	Steps   []PlanStep    `json:"steps"`

	// Source records where the plan came from: "llm" when parsed from a
	// completion, "default" when the fallback plan was used.
	Source string `json:"source"`
}

// NextPending returns the index of the first unprocessed step, or -1
// when every step is terminal.
func (p *Plan) NextPending() int {
	for i := range p.Steps {
		if !p.Steps[i].Terminal() {
			return i
		}
	}
	return -1
}

// CompletedDescriptions returns the descriptions of completed steps in
// plan order, the completed_tasks of the final recommendation.
func (p *Plan) CompletedDescriptions() []string {
	var out []string
	for i := range p.Steps {
		if p.Steps[i].Status == StepCompleted {
			out = append(out, p.Steps[i].Description)
		}
	}
	return out
}

// ExecutionContext is the per-step input snapshot handed to the step
// executor. It is constructed fresh for every step and never mutated
// after construction.
type ExecutionContext struct {
	Alert                *models.Alert
	Context              string
	AccumulatedKnowledge string
	StepID               int
	StepDescription      string
}

// Reflection is the post-hoc analysis of one step.
type Reflection struct {
	StepID    int       `json:"step_id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}
