package audit

import "time"

// EventType represents the type of audit event
type EventType string

const (
	// Alert processing events
	EventAlertReceived  EventType = "alert.received"
	EventAlertCompleted EventType = "alert.completed"
	EventAlertFailed    EventType = "alert.failed"

	// Workflow events
	EventPlanCreated            EventType = "workflow.plan_created"
	EventStepCompleted          EventType = "workflow.step_completed"
	EventStepFailed             EventType = "workflow.step_failed"
	EventEarlyTermination       EventType = "workflow.early_termination"
	EventRecommendationProduced EventType = "workflow.recommendation_produced"

	// Degradation events
	EventDegradationActivated EventType = "degradation.tier_activated"

	// Configuration events
	EventConfigLoaded  EventType = "config.loaded"
	EventConfigChanged EventType = "config.changed"
	EventConfigReload  EventType = "config.reload"

	// System events
	EventServerStarted  EventType = "system.server_started"
	EventServerShutdown EventType = "system.server_shutdown"
	EventHealthCheck    EventType = "system.health_check"
)

// Result represents the outcome of an audited action
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
	ResultPending Result = "pending"
)

// Event represents a single audit event
type Event struct {
	// Core fields
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id"`
	EventType     EventType `json:"event_type"`
	Result        Result    `json:"result"`

	// Alert information
	AlertID   string `json:"alert_id,omitempty"`
	AlertType string `json:"alert_type,omitempty"`

	// Step information
	StepID     int    `json:"step_id,omitempty"`
	Capability string `json:"capability,omitempty"`

	// Event details
	Description string                 `json:"description,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`

	// Error information
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`

	// Duration tracking
	DurationMs int64 `json:"duration_ms,omitempty"`
}

// NewEvent creates a new audit event with default values
func NewEvent(eventType EventType) *Event {
	return &Event{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Result:    ResultPending,
		Metadata:  make(map[string]interface{}),
	}
}

// WithCorrelationID sets the correlation ID for event tracking
func (e *Event) WithCorrelationID(id string) *Event {
	e.CorrelationID = id
	return e
}

// WithAlert sets the alert being processed
func (e *Event) WithAlert(alertID, alertType string) *Event {
	e.AlertID = alertID
	e.AlertType = alertType
	return e
}

// WithStep sets the plan step the event refers to
func (e *Event) WithStep(stepID int, capability string) *Event {
	e.StepID = stepID
	e.Capability = capability
	return e
}

// WithDescription sets a human-readable description
func (e *Event) WithDescription(desc string) *Event {
	e.Description = desc
	return e
}

// WithResult sets the result of the event
func (e *Event) WithResult(result Result) *Event {
	e.Result = result
	return e
}

// WithError sets error information
func (e *Event) WithError(err error, code string) *Event {
	if err != nil {
		e.Error = err.Error()
		e.ErrorCode = code
		e.Result = ResultFailure
	}
	return e
}

// WithDuration sets the duration in milliseconds
func (e *Event) WithDuration(duration time.Duration) *Event {
	e.DurationMs = duration.Milliseconds()
	return e
}

// WithMetadata adds metadata to the event
func (e *Event) WithMetadata(key string, value interface{}) *Event {
	e.Metadata[key] = value
	return e
}
