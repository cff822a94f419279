package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sentinelops/sentinel-ai/internal/audit"
	"github.com/sentinelops/sentinel-ai/internal/capability"
	"github.com/sentinelops/sentinel-ai/internal/llm/adapter"
	llmtypes "github.com/sentinelops/sentinel-ai/internal/llm/types"
	"github.com/sentinelops/sentinel-ai/internal/models"
)

// RunState is the workflow engine's position in one alert run.
type RunState string

const (
	StateInit              RunState = "init"
	StatePlanCreated       RunState = "plan_created"
	StateRetrieveIncidents RunState = "retrieve_incidents"
	StateExecuteStep       RunState = "execute_step"
	StateReflect           RunState = "reflect"
	StateSynthesize        RunState = "synthesize"
	StateDone              RunState = "done"
)

// RunEvent is streamed to subscribers while a run progresses.
type RunEvent struct {
	RunID          string                 `json:"run_id"`
	AlertID        string                 `json:"alert_id"`
	Type           string                 `json:"type"` // "state" | "plan" | "step" | "reflection" | "recommendation" | "done"
	State          RunState               `json:"state"`
	Step           *PlanStep              `json:"step,omitempty"`
	Reflection     *Reflection            `json:"reflection,omitempty"`
	Recommendation *models.Recommendation `json:"recommendation,omitempty"`
	Timestamp      time.Time              `json:"timestamp"`
}

// Subscriber receives run events in real time. Ch is closed when the
// run finishes.
type Subscriber struct {
	Ch chan RunEvent
}

// RunResult is the complete outcome of one workflow run.
type RunResult struct {
	ID             string
	Plan           *Plan
	Reflections    []Reflection
	Incidents      []models.SimilarIncident
	Knowledge      string
	Recommendation *models.Recommendation
	StartedAt      time.Time
	FinishedAt     time.Time

	// SynthesisErr is set when the final synthesis call failed and the
	// recommendation text carries the error instead of real guidance.
	SynthesisErr error
}

// Engine sequences one alert through plan, execute, reflect, synthesize.
type Engine interface {
	Run(ctx context.Context, alert *models.Alert, context_ string) (*RunResult, error)

	// Subscribe registers for events of runs processing the given alert
	// ID. Must be called before Run to observe the whole run.
	Subscribe(alertID string) *Subscriber
}

type engine struct {
	planner     PlanBuilder
	executor    StepExecutor
	synthesizer Synthesizer
	registry    *capability.Registry
	llm         adapter.LLMAdapter
	auditLog    audit.Logger

	subsMu      sync.Mutex
	subscribers map[string][]*Subscriber
}

func NewEngine(planner PlanBuilder, executor StepExecutor, synthesizer Synthesizer, registry *capability.Registry, llm adapter.LLMAdapter, auditLog audit.Logger) Engine {
	return &engine{
		planner:     planner,
		executor:    executor,
		synthesizer: synthesizer,
		registry:    registry,
		llm:         llm,
		auditLog:    auditLog,
		subscribers: make(map[string][]*Subscriber),
	}
}

func (e *engine) Subscribe(alertID string) *Subscriber {
	sub := &Subscriber{Ch: make(chan RunEvent, 64)}
	e.subsMu.Lock()
	e.subscribers[alertID] = append(e.subscribers[alertID], sub)
	e.subsMu.Unlock()
	return sub
}

func (e *engine) publish(alertID string, ev RunEvent) {
	e.subsMu.Lock()
	subs := e.subscribers[alertID]
	e.subsMu.Unlock()
	for _, s := range subs {
		select {
		case s.Ch <- ev:
		default:
		}
	}
}

func (e *engine) closeSubs(alertID string) {
	e.subsMu.Lock()
	subs := e.subscribers[alertID]
	delete(e.subscribers, alertID)
	e.subsMu.Unlock()
	for _, s := range subs {
		close(s.Ch)
	}
}

// Run drives the state machine to Done. All mutable state lives on the
// local run value; nothing is shared across concurrent runs.
//
// Transition rule after PlanCreated and after every Reflect: all steps
// terminal → Synthesize; next step is index 0 → RetrieveIncidents
// (StepIndexIncidentLookup policy); otherwise → ExecuteStep. Both
// execution states go to Reflect unconditionally, success and failure
// alike. A failed step halts the remaining steps but the run still
// synthesizes from what completed. Cancellation between steps takes the
// same early path to synthesis.
func (e *engine) Run(ctx context.Context, alert *models.Alert, context_ string) (*RunResult, error) {
	if alert == nil || strings.TrimSpace(alert.ID) == "" {
		return nil, fmt.Errorf("workflow: alert with id is required")
	}

	result := &RunResult{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
	}
	defer e.closeSubs(alert.ID)

	state := StateInit
	e.publishState(result, alert, state)

	// Init → PlanCreated
	plan, err := e.planner.Build(ctx, alert, context_)
	if err != nil {
		return nil, fmt.Errorf("workflow: build plan: %w", err)
	}
	result.Plan = plan
	state = StatePlanCreated
	e.publishState(result, alert, state)
	e.publish(alert.ID, RunEvent{RunID: result.ID, AlertID: alert.ID, Type: "plan", State: state, Timestamp: time.Now()})
	if e.auditLog != nil {
		e.auditLog.LogPlanCreated(ctx, alert.ID, len(plan.Steps))
	}

	halted := false
	for !halted {
		if err := ctx.Err(); err != nil {
			// Cancelled between steps: stop scheduling, synthesize with
			// whatever completed.
			e.skipRemaining(plan)
			break
		}

		next := plan.NextPending()
		if next < 0 {
			break
		}
		step := &plan.Steps[next]

		if next == StepIndexIncidentLookup {
			state = StateRetrieveIncidents
			e.publishState(result, alert, state)
			e.retrieveIncidents(ctx, result, step)
		} else {
			state = StateExecuteStep
			e.publishState(result, alert, state)
			e.executeStep(ctx, result, step)
		}
		e.publish(alert.ID, RunEvent{RunID: result.ID, AlertID: alert.ID, Type: "step", State: state, Step: step, Timestamp: time.Now()})
		e.auditStep(ctx, alert, step)

		if step.Status == StepFailed {
			e.skipRemaining(plan)
			halted = true
		}
		if step.Status == StepCompleted && step.ToolUsed == string(capability.FinalAnswer) {
			if e.auditLog != nil {
				e.auditLog.LogEarlyTermination(ctx, alert.ID, step.Index)
			}
			e.skipRemaining(plan)
			halted = true
		}

		// {RetrieveIncidents | ExecuteStep} → Reflect, unconditionally.
		state = StateReflect
		e.publishState(result, alert, state)
		reflection := e.reflect(ctx, result, step)
		e.publish(alert.ID, RunEvent{RunID: result.ID, AlertID: alert.ID, Type: "reflection", State: state, Reflection: &reflection, Timestamp: time.Now()})
	}

	// → Synthesize → Done
	state = StateSynthesize
	e.publishState(result, alert, state)
	rec, synthErr := e.synthesizer.Synthesize(ctx, plan, result.Reflections, result.Incidents, result.Knowledge)
	result.Recommendation = rec
	result.SynthesisErr = synthErr
	result.FinishedAt = time.Now()

	state = StateDone
	e.publishState(result, alert, state)
	e.publish(alert.ID, RunEvent{RunID: result.ID, AlertID: alert.ID, Type: "recommendation", State: state, Recommendation: rec, Timestamp: time.Now()})
	e.publish(alert.ID, RunEvent{RunID: result.ID, AlertID: alert.ID, Type: "done", State: state, Timestamp: time.Now()})

	return result, nil
}

// retrieveIncidents executes the forced step-0 incident lookup. The
// step's planner-produced description is kept for reporting, but the
// action is always a historical incident search seeded from the alert.
func (e *engine) retrieveIncidents(ctx context.Context, result *RunResult, step *PlanStep) {
	step.StartedAt = time.Now()
	query := strings.TrimSpace(result.Plan.Alert.Summary + " " + result.Plan.Alert.Details)

	resp, err := e.registry.Invoke(ctx, capability.HistoricalIncidentSearch, capability.Request{
		Query: query,
		Alert: result.Plan.Alert,
	})
	step.FinishedAt = time.Now()
	step.ToolUsed = string(capability.HistoricalIncidentSearch)
	if err != nil {
		step.Status = StepFailed
		step.ResultSummary = err.Error()
		return
	}

	step.Status = StepCompleted
	step.FullResult = resp
	step.ResultSummary = SummarizeStepResult(step.Description, resp, capability.HistoricalIncidentSearch)
	result.Incidents = e.mergeIncidents(result.Incidents, resp.Incidents)
	result.Knowledge = MergeContexts(result.Knowledge, step.ResultSummary)
}

// executeStep runs a non-zero step through the step executor and folds
// the outcome into the run.
func (e *engine) executeStep(ctx context.Context, result *RunResult, step *PlanStep) {
	step.StartedAt = time.Now()
	ec := &ExecutionContext{
		Alert:                result.Plan.Alert,
		Context:              result.Plan.Context,
		AccumulatedKnowledge: result.Knowledge,
		StepID:               step.Index,
		StepDescription:      step.Description,
	}

	sr := e.executor.Execute(ctx, ec)
	step.FinishedAt = time.Now()
	step.Status = sr.Status
	step.ToolUsed = string(sr.ToolUsed)
	if step.ToolUsed == "" {
		step.ToolUsed = "none"
	}
	step.ResultSummary = sr.ResultSummary
	step.FullResult = sr.FullResult

	if sr.Status == StepCompleted {
		result.Knowledge = MergeContexts(result.Knowledge, sr.KnowledgeDelta)
		if sr.FullResult != nil && len(sr.FullResult.Incidents) > 0 {
			result.Incidents = e.mergeIncidents(result.Incidents, sr.FullResult.Incidents)
		}
	}
}

// reflect records a short post-hoc analysis of the step and folds it
// into accumulated knowledge so later decisions see it. A failed
// reflection call degrades to a deterministic one-liner.
func (e *engine) reflect(ctx context.Context, result *RunResult, step *PlanStep) Reflection {
	text := ""
	if e.llm != nil {
		resp, err := e.llm.Complete(ctx, []llmtypes.Message{
			{Role: "system", Content: "You review incident investigation steps. Be brief and factual."},
			{Role: "user", Content: buildReflectionPrompt(step, result.Knowledge)},
		})
		if err == nil {
			text = strings.TrimSpace(resp.Content)
		}
	}
	if text == "" {
		text = fmt.Sprintf("Step %d finished with status %s using %s.", step.Index+1, step.Status, step.ToolUsed)
	}

	reflection := Reflection{StepID: step.Index, Text: text, Timestamp: time.Now()}
	result.Reflections = append(result.Reflections, reflection)
	result.Knowledge = MergeContexts(result.Knowledge, SummarizeReflection(step.Index, text))
	return reflection
}

func (e *engine) skipRemaining(plan *Plan) {
	for i := range plan.Steps {
		if !plan.Steps[i].Terminal() {
			plan.Steps[i].Status = StepSkipped
		}
	}
}

func (e *engine) mergeIncidents(existing, found []models.SimilarIncident) []models.SimilarIncident {
	seen := make(map[string]bool, len(existing))
	for _, inc := range existing {
		seen[inc.ID] = true
	}
	for _, inc := range found {
		if inc.ID != "" && seen[inc.ID] {
			continue
		}
		seen[inc.ID] = true
		existing = append(existing, inc)
	}
	return existing
}

func (e *engine) publishState(result *RunResult, alert *models.Alert, state RunState) {
	e.publish(alert.ID, RunEvent{
		RunID:     result.ID,
		AlertID:   alert.ID,
		Type:      "state",
		State:     state,
		Timestamp: time.Now(),
	})
}

func (e *engine) auditStep(ctx context.Context, alert *models.Alert, step *PlanStep) {
	if e.auditLog == nil {
		return
	}
	duration := step.FinishedAt.Sub(step.StartedAt)
	if step.Status == StepFailed {
		e.auditLog.LogStepFailed(ctx, alert.ID, step.Index, fmt.Errorf("%s", step.ResultSummary))
		return
	}
	e.auditLog.LogStepCompleted(ctx, alert.ID, step.Index, step.ToolUsed, duration)
}
