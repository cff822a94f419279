package db

import (
	"context"
	"time"
)

// Store is the persistence interface for processed alert runs.
type Store interface {
	RunStore
	AuditStore

	// Close releases database resources.
	Close() error

	// Ping verifies the connection is alive.
	Ping(ctx context.Context) error
}

// ─── Run store ────────────────────────────────────────────────────────────────

// RunRecord is the DB representation of one processed alert. The run
// itself is in-memory state; this record is an after-the-fact account
// for history and audit endpoints.
type RunRecord struct {
	ID                 string             `json:"id"`
	AlertID            string             `json:"alert_id"`
	AlertType          string             `json:"alert_type"`
	AlertSummary       string             `json:"alert_summary"`
	AlertDetails       string             `json:"alert_details"`
	AlertMetadata      string             `json:"alert_metadata"` // JSON blob
	Context            string             `json:"context"`
	Tier               int                `json:"tier"` // degradation tier that produced the recommendation (1-3)
	PlanSource         string             `json:"plan_source"`
	RecommendationText string             `json:"recommendation_text"`
	SimilarIncidents   string             `json:"similar_incidents"` // JSON blob
	CompletedTasks     string             `json:"completed_tasks"`   // JSON blob
	Knowledge          string             `json:"knowledge"`
	CreatedAt          time.Time          `json:"created_at"`
	FinishedAt         time.Time          `json:"finished_at"`
	Steps              []RunStepRecord    `json:"steps"`
	Reflections        []ReflectionRecord `json:"reflections"`
}

// RunStepRecord is one plan step as executed.
type RunStepRecord struct {
	ID            int64     `json:"id"`
	RunID         string    `json:"run_id"`
	StepIndex     int       `json:"step_index"`
	Description   string    `json:"description"`
	Status        string    `json:"status"`
	ToolUsed      string    `json:"tool_used"`
	ResultSummary string    `json:"result_summary"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
}

// ReflectionRecord is the post-hoc analysis recorded after a step.
type ReflectionRecord struct {
	ID        int64     `json:"id"`
	RunID     string    `json:"run_id"`
	StepIndex int       `json:"step_index"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// RunStore persists processed alert runs.
type RunStore interface {
	// SaveRun creates or updates a run record with its steps and reflections.
	SaveRun(ctx context.Context, rec *RunRecord) error

	// GetRun retrieves a run by ID, including steps and reflections.
	GetRun(ctx context.Context, id string) (*RunRecord, error)

	// ListRuns returns runs, newest first, without child rows.
	ListRuns(ctx context.Context, limit, offset int) ([]*RunRecord, error)

	// DeleteRun removes a run and its child rows.
	DeleteRun(ctx context.Context, id string) error
}

// ─── Audit store ─────────────────────────────────────────────────────────────

// AuditRecord is the DB representation of an audit event.
type AuditRecord struct {
	ID            int64     `json:"id"`
	CorrelationID string    `json:"correlation_id"`
	EventType     string    `json:"event_type"`
	Description   string    `json:"description"`
	AlertID       string    `json:"alert_id"`
	Result        string    `json:"result"`
	Metadata      string    `json:"metadata"` // JSON blob
	Timestamp     time.Time `json:"timestamp"`
}

// AuditStore persists audit log entries.
type AuditStore interface {
	// AppendAuditEvent appends an immutable audit event.
	AppendAuditEvent(ctx context.Context, rec *AuditRecord) error

	// QueryAuditEvents retrieves audit events with optional filters.
	QueryAuditEvents(ctx context.Context, q AuditQuery) ([]*AuditRecord, error)
}

// AuditQuery filters audit event queries.
type AuditQuery struct {
	AlertID   string
	EventType string
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}
