package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Alert-processing metrics for production monitoring
var (
	// Alert metrics
	AlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_ai_alerts_total",
			Help: "Total number of alerts processed",
		},
		[]string{"alert_type", "tier"},
	)

	AlertProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentinel_ai_alert_processing_duration_seconds",
			Help:    "End-to-end alert processing duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~17min
		},
		[]string{"alert_type"},
	)

	// Workflow metrics
	PlanStepsTotal = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentinel_ai_plan_steps",
			Help:    "Number of steps in generated investigation plans",
			Buckets: prometheus.LinearBuckets(1, 1, 6),
		},
		[]string{"source"}, // source: llm/default
	)

	StepExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_ai_step_executions_total",
			Help: "Total number of plan step executions",
		},
		[]string{"capability", "status"}, // status: completed/failed/skipped
	)

	StepExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentinel_ai_step_execution_duration_seconds",
			Help:    "Plan step execution duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~1min
		},
		[]string{"capability"},
	)

	DegradationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_ai_degradations_total",
			Help: "Total number of degradation tier activations",
		},
		[]string{"tier"},
	)

	// Capability metrics
	CapabilityInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_ai_capability_invocations_total",
			Help: "Total number of capability invocations",
		},
		[]string{"capability", "status"},
	)

	CapabilityDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentinel_ai_capability_duration_seconds",
			Help:    "Capability invocation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~10s
		},
		[]string{"capability"},
	)

	// LLM metrics
	LLMRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_ai_llm_requests_total",
			Help: "Total number of LLM API requests",
		},
		[]string{"provider", "model", "status"},
	)

	LLMTokensUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_ai_llm_tokens_total",
			Help: "Total number of LLM tokens consumed",
		},
		[]string{"provider", "model", "type"}, // type: input/output
	)

	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentinel_ai_llm_request_duration_seconds",
			Help:    "LLM request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~1min
		},
		[]string{"provider", "model"},
	)

	LLMRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_ai_llm_retries_total",
			Help: "Total number of LLM request retries",
		},
		[]string{"provider", "reason"}, // reason: rate_limit/timeout
	)

	// Incident store metrics
	IncidentSearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_ai_incident_searches_total",
			Help: "Total number of similarity searches against the incident store",
		},
		[]string{"backend", "status"}, // backend: weaviate/memory
	)

	IncidentSearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentinel_ai_incident_search_duration_seconds",
			Help:    "Incident similarity search duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~10s
		},
		[]string{"backend"},
	)

	EmbeddingCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_ai_embedding_cache_total",
			Help: "Embedding cache lookups by outcome",
		},
		[]string{"outcome"}, // outcome: hit/miss
	)

	// WebSocket metrics
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_ai_websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WebSocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_ai_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // direction: inbound/outbound
	)
)
