package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sentinelops/sentinel-ai/internal/db"
	"github.com/sentinelops/sentinel-ai/internal/models"
	"github.com/sentinelops/sentinel-ai/pkg/types"
)

// handleAlerts accepts one alert and processes it synchronously. The
// response always carries a recommendation; degradation happens inside
// the processor, never at the HTTP layer.
func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req types.SubmitAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		writeError(w, http.StatusBadRequest, "alert id is required")
		return
	}
	if req.Type == "" {
		req.Type = "general"
	}

	alert := &models.Alert{
		ID:       req.ID,
		Type:     req.Type,
		Summary:  req.Summary,
		Details:  req.Details,
		Metadata: req.Metadata,
	}

	res := s.processor.Process(r.Context(), alert, req.Context)
	writeJSON(w, http.StatusOK, types.AlertResponse{
		RunID:          res.RunID,
		Tier:           res.Tier,
		DurationMS:     res.Duration.Milliseconds(),
		Recommendation: res.Recommendation,
		StreamURL:      "/api/v1/alerts/stream?alert_id=" + url.QueryEscape(alert.ID),
	})
}

// handleRuns lists the persisted run history, newest first.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "run history not available")
		return
	}

	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	runs, err := s.store.ListRuns(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := types.RunListResponse{Runs: make([]types.RunSummary, 0, len(runs))}
	for _, rec := range runs {
		resp.Runs = append(resp.Runs, toRunSummary(rec))
	}
	resp.Count = len(resp.Runs)
	writeJSON(w, http.StatusOK, resp)
}

// handleRunByID serves GET and DELETE on /api/v1/runs/{id}.
func (s *Server) handleRunByID(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "run history not available")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/runs/")
	id = strings.TrimSuffix(id, "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "run id required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		rec, err := s.store.GetRun(r.Context(), id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				writeError(w, http.StatusNotFound, "run not found: "+id)
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, toRunDetail(rec))

	case http.MethodDelete:
		if err := s.store.DeleteRun(r.Context(), id); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleCapabilities lists the registered capabilities in stable order.
func (s *Server) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp := types.CapabilitiesResponse{Capabilities: []types.CapabilityInfo{}}
	for _, name := range s.registry.Names() {
		c, err := s.registry.Get(name)
		if err != nil {
			continue
		}
		resp.Capabilities = append(resp.Capabilities, types.CapabilityInfo{
			Name:        string(name),
			Description: c.Description(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleAuditQuery exposes the persisted audit trail with optional
// alert_id and event_type filters.
func (s *Server) handleAuditQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "audit history not available")
		return
	}

	q := db.AuditQuery{
		AlertID:   r.URL.Query().Get("alert_id"),
		EventType: r.URL.Query().Get("event_type"),
		Limit:     queryInt(r, "limit", 100),
		Offset:    queryInt(r, "offset", 0),
	}
	events, err := s.store.QueryAuditEvents(r.Context(), q)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := types.AuditQueryResponse{Events: make([]types.AuditEvent, 0, len(events))}
	for _, ev := range events {
		resp.Events = append(resp.Events, types.AuditEvent{
			ID:          ev.ID,
			EventType:   ev.EventType,
			Description: ev.Description,
			AlertID:     ev.AlertID,
			Result:      ev.Result,
			Metadata:    ev.Metadata,
			Timestamp:   ev.Timestamp,
		})
	}
	resp.Count = len(resp.Events)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleReady reports readiness: the pipeline is wired and, when
// persistence is configured, the database answers a ping.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ready",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func toRunSummary(rec *db.RunRecord) types.RunSummary {
	return types.RunSummary{
		ID:                 rec.ID,
		AlertID:            rec.AlertID,
		AlertType:          rec.AlertType,
		Tier:               rec.Tier,
		PlanSource:         rec.PlanSource,
		RecommendationText: rec.RecommendationText,
		CreatedAt:          rec.CreatedAt,
		FinishedAt:         rec.FinishedAt,
	}
}

func toRunDetail(rec *db.RunRecord) types.RunDetail {
	detail := types.RunDetail{
		RunSummary:       toRunSummary(rec),
		AlertSummary:     rec.AlertSummary,
		AlertDetails:     rec.AlertDetails,
		Context:          rec.Context,
		Knowledge:        rec.Knowledge,
		SimilarIncidents: []models.SimilarIncident{},
		CompletedTasks:   []string{},
	}
	// Stored blobs are written by us; a decode failure leaves the list empty.
	_ = json.Unmarshal([]byte(rec.SimilarIncidents), &detail.SimilarIncidents)
	_ = json.Unmarshal([]byte(rec.CompletedTasks), &detail.CompletedTasks)
	if detail.SimilarIncidents == nil {
		detail.SimilarIncidents = []models.SimilarIncident{}
	}
	if detail.CompletedTasks == nil {
		detail.CompletedTasks = []string{}
	}

	for _, step := range rec.Steps {
		detail.Steps = append(detail.Steps, types.RunStep{
			Index:         step.StepIndex,
			Description:   step.Description,
			Status:        step.Status,
			ToolUsed:      step.ToolUsed,
			ResultSummary: step.ResultSummary,
			StartedAt:     step.StartedAt,
			FinishedAt:    step.FinishedAt,
		})
	}
	for _, refl := range rec.Reflections {
		detail.Reflections = append(detail.Reflections, types.RunReflection{
			StepIndex: refl.StepIndex,
			Text:      refl.Text,
			Timestamp: refl.Timestamp,
		})
	}
	return detail
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: msg})
}
