package db

import (
	"context"
	"testing"
	"time"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// ─── Runs ─────────────────────────────────────────────────────────────────────

func TestRunCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := &RunRecord{
		ID:                 "run-001",
		AlertID:            "a1",
		AlertType:          "PodCrashLoop",
		AlertSummary:       "pod X crashlooping",
		AlertDetails:       "OOMKilled",
		AlertMetadata:      `{"cluster":"prod-east"}`,
		Tier:               1,
		PlanSource:         "llm",
		RecommendationText: "Raise the memory limit on pod X.",
		SimilarIncidents:   `[{"error":"OOMKilled","solution":"raise limit","similarity_score":0.91,"metadata":{}}]`,
		CompletedTasks:     `["Retrieve similar past incidents","Analyze root cause"]`,
		Knowledge:          "incident found\n---\nanalysis done",
		CreatedAt:          time.Now().Round(time.Second),
		FinishedAt:         time.Now().Round(time.Second),
		Steps: []RunStepRecord{
			{StepIndex: 0, Description: "Retrieve similar past incidents", Status: "completed", ToolUsed: "historical-incident-search", ResultSummary: "found 1", StartedAt: time.Now(), FinishedAt: time.Now()},
			{StepIndex: 1, Description: "Analyze root cause", Status: "completed", ToolUsed: "web-search", ResultSummary: "3 results", StartedAt: time.Now(), FinishedAt: time.Now()},
		},
		Reflections: []ReflectionRecord{
			{StepIndex: 0, Text: "Retrieval surfaced a matching OOM incident.", Timestamp: time.Now()},
			{StepIndex: 1, Text: "Search confirmed limit tuning guidance.", Timestamp: time.Now()},
		},
	}

	if err := s.SaveRun(ctx, rec); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := s.GetRun(ctx, "run-001")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.AlertID != "a1" {
		t.Errorf("expected alert_id a1, got %s", got.AlertID)
	}
	if got.RecommendationText != rec.RecommendationText {
		t.Errorf("expected recommendation %q, got %q", rec.RecommendationText, got.RecommendationText)
	}
	if len(got.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(got.Steps))
	}
	if got.Steps[0].ToolUsed != "historical-incident-search" {
		t.Errorf("expected step 0 tool historical-incident-search, got %s", got.Steps[0].ToolUsed)
	}
	if len(got.Reflections) != 2 {
		t.Fatalf("expected 2 reflections, got %d", len(got.Reflections))
	}

	// Upsert updates the recommendation and tier.
	rec.Tier = 2
	rec.RecommendationText = "Degraded path recommendation."
	if err := s.SaveRun(ctx, rec); err != nil {
		t.Fatalf("SaveRun update: %v", err)
	}
	got, err = s.GetRun(ctx, "run-001")
	if err != nil {
		t.Fatalf("GetRun after update: %v", err)
	}
	if got.Tier != 2 {
		t.Errorf("expected tier 2, got %d", got.Tier)
	}
	if got.RecommendationText != "Degraded path recommendation." {
		t.Errorf("expected updated recommendation, got %q", got.RecommendationText)
	}

	// Delete cascades to child rows.
	if err := s.DeleteRun(ctx, "run-001"); err != nil {
		t.Fatalf("DeleteRun: %v", err)
	}
	if _, err := s.GetRun(ctx, "run-001"); err == nil {
		t.Error("expected error getting deleted run")
	}
}

func TestListRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		rec := &RunRecord{
			ID:                 string(rune('a'+i)) + "-run",
			AlertID:            "alert-" + string(rune('a'+i)),
			AlertType:          "HighLatency",
			RecommendationText: "check upstream",
			SimilarIncidents:   "[]",
			CompletedTasks:     "[]",
			Tier:               1,
			CreatedAt:          base.Add(time.Duration(i) * time.Minute),
			FinishedAt:         base.Add(time.Duration(i)*time.Minute + 30*time.Second),
		}
		if err := s.SaveRun(ctx, rec); err != nil {
			t.Fatalf("SaveRun %d: %v", i, err)
		}
	}

	runs, err := s.ListRuns(ctx, 3, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	// Newest first.
	if runs[0].ID != "e-run" {
		t.Errorf("expected newest run first, got %s", runs[0].ID)
	}

	rest, err := s.ListRuns(ctx, 10, 3)
	if err != nil {
		t.Fatalf("ListRuns offset: %v", err)
	}
	if len(rest) != 2 {
		t.Errorf("expected 2 remaining runs, got %d", len(rest))
	}
}

// ─── Audit events ─────────────────────────────────────────────────────────────

func TestAuditEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	events := []*AuditRecord{
		{CorrelationID: "c1", EventType: "alert.received", AlertID: "a1", Result: "pending", Metadata: "{}", Timestamp: time.Now().Add(-2 * time.Minute)},
		{CorrelationID: "c1", EventType: "workflow.plan_created", AlertID: "a1", Result: "success", Metadata: "{}", Timestamp: time.Now().Add(-time.Minute)},
		{CorrelationID: "c2", EventType: "alert.received", AlertID: "a2", Result: "pending", Metadata: "{}", Timestamp: time.Now()},
	}
	for _, e := range events {
		if err := s.AppendAuditEvent(ctx, e); err != nil {
			t.Fatalf("AppendAuditEvent: %v", err)
		}
	}

	got, err := s.QueryAuditEvents(ctx, AuditQuery{AlertID: "a1"})
	if err != nil {
		t.Fatalf("QueryAuditEvents: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events for a1, got %d", len(got))
	}

	got, err = s.QueryAuditEvents(ctx, AuditQuery{EventType: "alert.received"})
	if err != nil {
		t.Fatalf("QueryAuditEvents by type: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 alert.received events, got %d", len(got))
	}
	// Newest first.
	if got[0].AlertID != "a2" {
		t.Errorf("expected newest event first, got alert %s", got[0].AlertID)
	}
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
