package models

// Package models defines core data types used throughout sentinel-ai.
//
// These types flow between the orchestrator, the capability layer, the
// persistence layer and the HTTP surface.

import "time"

// Alert is the standardized incoming operational alert. It is immutable:
// the caller constructs it once and the orchestrator never mutates it.
type Alert struct {
	ID       string            `json:"id"`
	Type     string            `json:"type"` // e.g. "PodCrashLoop", "HighCPU"
	Summary  string            `json:"summary"`
	Details  string            `json:"details"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SimilarIncident is one retrieved reference record from the similarity store.
// SimilarityScore is 1 − cosine distance, so higher is closer.
type SimilarIncident struct {
	ID              string            `json:"id,omitempty"`
	Error           string            `json:"error"`
	Solution        string            `json:"solution"`
	SimilarityScore float64           `json:"similarity_score"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// Recommendation is the terminal output of processing one alert. Exactly one
// is produced per run, by either the synthesizer or a degradation tier.
type Recommendation struct {
	AlertID            string            `json:"alert_id"`
	AlertType          string            `json:"alert_type"`
	RecommendationText string            `json:"recommendation_text"`
	SimilarIncidents   []SimilarIncident `json:"similar_incidents"`
	CompletedTasks     []string          `json:"completed_tasks"`
	GeneratedAt        time.Time         `json:"generated_at,omitempty"`
}
