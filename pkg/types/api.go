package types

// Package types defines the public REST API contracts of sentinel-ai.

import (
	"time"

	"github.com/sentinelops/sentinel-ai/internal/models"
)

// Request types

// SubmitAlertRequest submits one alert for investigation. ID is
// required; an empty Type is recorded as "general".
type SubmitAlertRequest struct {
	ID       string            `json:"id"`
	Type     string            `json:"type"`
	Summary  string            `json:"summary"`
	Details  string            `json:"details"`
	Metadata map[string]string `json:"metadata,omitempty"`
	// Context is free-form operator-supplied background for the run.
	Context string `json:"context,omitempty"`
}

// Response types

// AlertResponse is returned once the alert has been processed.
type AlertResponse struct {
	RunID          string                 `json:"run_id"`
	Tier           int                    `json:"tier"`
	DurationMS     int64                  `json:"duration_ms"`
	Recommendation *models.Recommendation `json:"recommendation"`
	StreamURL      string                 `json:"stream_url"`
}

// RunSummary is one row of the run-history listing.
type RunSummary struct {
	ID                 string    `json:"id"`
	AlertID            string    `json:"alert_id"`
	AlertType          string    `json:"alert_type"`
	Tier               int       `json:"tier"`
	PlanSource         string    `json:"plan_source"`
	RecommendationText string    `json:"recommendation_text"`
	CreatedAt          time.Time `json:"created_at"`
	FinishedAt         time.Time `json:"finished_at"`
}

// RunStep is one executed plan step of a persisted run.
type RunStep struct {
	Index         int       `json:"index"`
	Description   string    `json:"description"`
	Status        string    `json:"status"`
	ToolUsed      string    `json:"tool_used,omitempty"`
	ResultSummary string    `json:"result_summary,omitempty"`
	StartedAt     time.Time `json:"started_at,omitempty"`
	FinishedAt    time.Time `json:"finished_at,omitempty"`
}

// RunReflection is one post-step reflection of a persisted run.
type RunReflection struct {
	StepIndex int       `json:"step_index"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// RunDetail is the full persisted record of one run.
type RunDetail struct {
	RunSummary
	AlertSummary     string                   `json:"alert_summary"`
	AlertDetails     string                   `json:"alert_details"`
	Context          string                   `json:"context,omitempty"`
	Knowledge        string                   `json:"knowledge,omitempty"`
	SimilarIncidents []models.SimilarIncident `json:"similar_incidents"`
	CompletedTasks   []string                 `json:"completed_tasks"`
	Steps            []RunStep                `json:"steps"`
	Reflections      []RunReflection          `json:"reflections"`
}

// RunListResponse wraps the run-history listing.
type RunListResponse struct {
	Runs  []RunSummary `json:"runs"`
	Count int          `json:"count"`
}

// CapabilityInfo describes one registered capability.
type CapabilityInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CapabilitiesResponse lists the registered capabilities.
type CapabilitiesResponse struct {
	Capabilities []CapabilityInfo `json:"capabilities"`
}

// AuditEvent is one persisted audit record.
type AuditEvent struct {
	ID          int64     `json:"id"`
	EventType   string    `json:"event_type"`
	Description string    `json:"description"`
	AlertID     string    `json:"alert_id,omitempty"`
	Result      string    `json:"result,omitempty"`
	Metadata    string    `json:"metadata,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// AuditQueryResponse wraps an audit log query.
type AuditQueryResponse struct {
	Events []AuditEvent `json:"events"`
	Count  int          `json:"count"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
