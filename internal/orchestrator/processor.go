package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sentinelops/sentinel-ai/internal/audit"
	"github.com/sentinelops/sentinel-ai/internal/capability"
	"github.com/sentinelops/sentinel-ai/internal/db"
	"github.com/sentinelops/sentinel-ai/internal/metrics"
	"github.com/sentinelops/sentinel-ai/internal/models"
)

// FallbackRecommendationText is the tier-3 static recommendation.
const FallbackRecommendationText = "Unable to generate a detailed recommendation"

// Degradation tiers, recorded on the run and in metrics.
const (
	TierFullWorkflow = 1
	TierMinimal      = 2
	TierStatic       = 3
)

// ProcessResult pairs the recommendation with how it was produced.
type ProcessResult struct {
	RunID          string
	Recommendation *models.Recommendation
	Tier           int
	Duration       time.Duration
}

// Processor is the entry point for one alert: it wraps the workflow
// engine with the degradation tiers so callers always get a well-formed
// recommendation, whatever fails underneath.
type Processor interface {
	Process(ctx context.Context, alert *models.Alert, context_ string) *ProcessResult
}

type processor struct {
	engine      Engine
	registry    *capability.Registry
	synthesizer Synthesizer
	store       db.Store
	auditLog    audit.Logger
	topK        int
}

func NewProcessor(engine Engine, registry *capability.Registry, synthesizer Synthesizer, store db.Store, auditLog audit.Logger, topK int) Processor {
	if topK < 1 {
		topK = 3
	}
	return &processor{
		engine:      engine,
		registry:    registry,
		synthesizer: synthesizer,
		store:       store,
		auditLog:    auditLog,
		topK:        topK,
	}
}

// Process evaluates the tiers top-down. Each tier runs inside a panic
// guard; a panic or an unusable result falls through to the next tier.
// Tier 3 cannot fail, so Process is total.
func (p *processor) Process(ctx context.Context, alert *models.Alert, context_ string) *ProcessResult {
	start := time.Now()
	if p.auditLog != nil && alert != nil {
		p.auditLog.LogAlertReceived(ctx, alert.ID, alert.Type)
	}

	result, err := p.runFullWorkflow(ctx, alert, context_)
	if err == nil {
		return p.finish(ctx, alert, result, start)
	}
	if p.auditLog != nil && alert != nil {
		p.auditLog.LogDegradation(ctx, alert.ID, TierMinimal, err)
	}
	metrics.DegradationsTotal.WithLabelValues(fmt.Sprintf("%d", TierMinimal)).Inc()

	result, err = p.runMinimalPipeline(ctx, alert, context_)
	if err == nil {
		return p.finish(ctx, alert, result, start)
	}
	if p.auditLog != nil && alert != nil {
		p.auditLog.LogDegradation(ctx, alert.ID, TierStatic, err)
	}
	metrics.DegradationsTotal.WithLabelValues(fmt.Sprintf("%d", TierStatic)).Inc()

	return p.finish(ctx, alert, p.staticFallback(alert), start)
}

// runFullWorkflow is tier 1: the complete plan-execute-reflect run.
func (p *processor) runFullWorkflow(ctx context.Context, alert *models.Alert, context_ string) (res *ProcessResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("workflow panic: %v", r)
		}
	}()

	runResult, err := p.engine.Run(ctx, alert, context_)
	if err != nil {
		return nil, err
	}
	if runResult.SynthesisErr != nil {
		return nil, runResult.SynthesisErr
	}
	if runResult.Recommendation == nil || strings.TrimSpace(runResult.Recommendation.RecommendationText) == "" {
		return nil, fmt.Errorf("workflow produced no recommendation text")
	}

	p.saveRun(ctx, runResult, TierFullWorkflow)
	return &ProcessResult{
		RunID:          runResult.ID,
		Recommendation: runResult.Recommendation,
		Tier:           TierFullWorkflow,
	}, nil
}

// runMinimalPipeline is tier 2: one direct incident lookup plus one
// synthesis call seeded only with that lookup's result.
func (p *processor) runMinimalPipeline(ctx context.Context, alert *models.Alert, context_ string) (res *ProcessResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("minimal pipeline panic: %v", r)
		}
	}()
	if alert == nil {
		return nil, fmt.Errorf("minimal pipeline: nil alert")
	}

	query := strings.TrimSpace(alert.Summary + " " + alert.Details)
	resp, err := p.registry.Invoke(ctx, capability.HistoricalIncidentSearch, capability.Request{
		Query: query,
		Alert: alert,
	})
	if err != nil {
		return nil, fmt.Errorf("minimal pipeline lookup: %w", err)
	}

	step := PlanStep{
		Index:         0,
		Description:   "Retrieve similar past incidents",
		Status:        StepCompleted,
		ToolUsed:      string(capability.HistoricalIncidentSearch),
		ResultSummary: SummarizeStepResult("Retrieve similar past incidents", resp, capability.HistoricalIncidentSearch),
		FullResult:    resp,
		StartedAt:     time.Now(),
		FinishedAt:    time.Now(),
	}
	plan := &Plan{Alert: alert, Context: context_, Steps: []PlanStep{step}, Source: "minimal"}

	rec, synthErr := p.synthesizer.Synthesize(ctx, plan, nil, resp.Incidents, step.ResultSummary)
	if synthErr != nil {
		return nil, synthErr
	}

	runResult := &RunResult{
		ID:             uuid.NewString(),
		Plan:           plan,
		Incidents:      resp.Incidents,
		Knowledge:      step.ResultSummary,
		Recommendation: rec,
		StartedAt:      step.StartedAt,
		FinishedAt:     time.Now(),
	}
	p.saveRun(ctx, runResult, TierMinimal)
	return &ProcessResult{
		RunID:          runResult.ID,
		Recommendation: rec,
		Tier:           TierMinimal,
	}, nil
}

// staticFallback is tier 3 and cannot fail.
func (p *processor) staticFallback(alert *models.Alert) *ProcessResult {
	rec := &models.Recommendation{
		RecommendationText: FallbackRecommendationText,
		SimilarIncidents:   []models.SimilarIncident{},
		CompletedTasks:     []string{},
		GeneratedAt:        time.Now(),
	}
	if alert != nil {
		rec.AlertID = alert.ID
		rec.AlertType = alert.Type
	}

	runID := uuid.NewString()
	if p.store != nil && alert != nil {
		_ = p.store.SaveRun(context.Background(), &db.RunRecord{
			ID:                 runID,
			AlertID:            alert.ID,
			AlertType:          alert.Type,
			AlertSummary:       alert.Summary,
			AlertDetails:       alert.Details,
			AlertMetadata:      marshalJSON(alert.Metadata),
			Tier:               TierStatic,
			PlanSource:         "static",
			RecommendationText: rec.RecommendationText,
			SimilarIncidents:   "[]",
			CompletedTasks:     "[]",
			CreatedAt:          time.Now(),
			FinishedAt:         time.Now(),
		})
	}
	return &ProcessResult{RunID: runID, Recommendation: rec, Tier: TierStatic}
}

func (p *processor) finish(ctx context.Context, alert *models.Alert, res *ProcessResult, start time.Time) *ProcessResult {
	res.Duration = time.Since(start)

	alertType := "unknown"
	if alert != nil {
		alertType = alert.Type
	}
	metrics.AlertsTotal.WithLabelValues(alertType, fmt.Sprintf("%d", res.Tier)).Inc()
	metrics.AlertProcessingDuration.WithLabelValues(alertType).Observe(res.Duration.Seconds())

	if p.auditLog != nil && alert != nil {
		p.auditLog.LogAlertCompleted(ctx, alert.ID, res.Tier, res.Duration)
	}
	return res
}

// saveRun persists the after-the-fact run record. Persistence failures
// are logged, never surfaced: history is best-effort.
func (p *processor) saveRun(ctx context.Context, runResult *RunResult, tier int) {
	if p.store == nil || runResult.Plan == nil {
		return
	}
	rec := toRunRecord(runResult, tier)
	if err := p.store.SaveRun(ctx, rec); err != nil && p.auditLog != nil {
		p.auditLog.LogAlertFailed(ctx, runResult.Plan.Alert.ID, fmt.Errorf("persist run: %w", err))
	}
}

func toRunRecord(r *RunResult, tier int) *db.RunRecord {
	alert := r.Plan.Alert
	incidents, _ := json.Marshal(r.Recommendation.SimilarIncidents)
	tasks, _ := json.Marshal(r.Recommendation.CompletedTasks)

	rec := &db.RunRecord{
		ID:                 r.ID,
		AlertID:            alert.ID,
		AlertType:          alert.Type,
		AlertSummary:       alert.Summary,
		AlertDetails:       alert.Details,
		AlertMetadata:      marshalJSON(alert.Metadata),
		Context:            r.Plan.Context,
		Tier:               tier,
		PlanSource:         r.Plan.Source,
		RecommendationText: r.Recommendation.RecommendationText,
		SimilarIncidents:   string(incidents),
		CompletedTasks:     string(tasks),
		Knowledge:          r.Knowledge,
		CreatedAt:          r.StartedAt,
		FinishedAt:         r.FinishedAt,
	}

	for i := range r.Plan.Steps {
		s := &r.Plan.Steps[i]
		rec.Steps = append(rec.Steps, db.RunStepRecord{
			StepIndex:     s.Index,
			Description:   s.Description,
			Status:        string(s.Status),
			ToolUsed:      s.ToolUsed,
			ResultSummary: s.ResultSummary,
			StartedAt:     s.StartedAt,
			FinishedAt:    s.FinishedAt,
		})
	}
	for _, refl := range r.Reflections {
		rec.Reflections = append(rec.Reflections, db.ReflectionRecord{
			StepIndex: refl.StepID,
			Text:      refl.Text,
			Timestamp: refl.Timestamp,
		})
	}
	return rec
}

func marshalJSON(m map[string]string) string {
	if len(m) == 0 {
		return "{}"
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(b)
}
