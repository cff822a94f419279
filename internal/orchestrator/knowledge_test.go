package orchestrator

import (
	"strings"
	"testing"

	"github.com/sentinelops/sentinel-ai/internal/capability"
)

func TestSummarizeStepResult(t *testing.T) {
	resp := &capability.Response{Output: "Found 2 similar incidents\nwith known fixes"}
	got := SummarizeStepResult("Check past incidents", resp, capability.HistoricalIncidentSearch)

	if !strings.HasPrefix(got, "[historical-incident-search] Check past incidents:") {
		t.Errorf("unexpected summary prefix: %q", got)
	}
	if strings.Contains(got, "\n") {
		t.Errorf("summary should be single-line, got %q", got)
	}
}

func TestSummarizeStepResultBounded(t *testing.T) {
	resp := &capability.Response{Output: strings.Repeat("x", 5000)}
	got := SummarizeStepResult("step", resp, capability.WebSearch)
	if len(got) > summaryMaxChars+len("…") {
		t.Errorf("summary exceeds bound: %d chars", len(got))
	}
}

func TestSummarizeStepResultNilResponse(t *testing.T) {
	got := SummarizeStepResult("step", nil, capability.Calculator)
	if !strings.Contains(got, "[calculator] step:") {
		t.Errorf("unexpected summary: %q", got)
	}
}

func TestMergeContexts(t *testing.T) {
	merged := MergeContexts("first", "second")
	if merged != "first\n---\nsecond" {
		t.Errorf("unexpected merge: %q", merged)
	}

	if got := MergeContexts("", "only"); got != "only" {
		t.Errorf("empty existing should yield addition, got %q", got)
	}
	if got := MergeContexts("only", ""); got != "only" {
		t.Errorf("empty addition should yield existing, got %q", got)
	}
	if got := MergeContexts("", ""); got != "" {
		t.Errorf("both empty should yield empty, got %q", got)
	}
}

func TestMergeContextsAppendOnly(t *testing.T) {
	knowledge := ""
	additions := []string{"a", "b", "c", "d"}
	prevLen := 0
	for _, add := range additions {
		knowledge = MergeContexts(knowledge, add)
		if len(knowledge) < prevLen {
			t.Fatalf("knowledge shrank from %d to %d", prevLen, len(knowledge))
		}
		prevLen = len(knowledge)
	}
	for _, add := range additions {
		if !strings.Contains(knowledge, add) {
			t.Errorf("knowledge lost fragment %q", add)
		}
	}
}

func TestSummarizeReflection(t *testing.T) {
	got := SummarizeReflection(2, "The search confirmed the\nmemory hypothesis.")
	if !strings.HasPrefix(got, "[reflection on step 3]") {
		t.Errorf("unexpected prefix: %q", got)
	}
	if strings.Contains(got, "\n") {
		t.Errorf("reflection summary should be single-line: %q", got)
	}
}
