package orchestrator

import (
	"fmt"
	"strings"

	"github.com/sentinelops/sentinel-ai/internal/capability"
)

// Knowledge accumulation is deliberately dumb: deterministic textual
// transforms, no model calls, no deduplication. Accumulated knowledge
// only ever grows within a run.

// summaryMaxChars bounds each step summary so knowledge stays a usable
// prompt input across many steps.
const summaryMaxChars = 200

// knowledgeSeparator joins merged knowledge fragments.
const knowledgeSeparator = "\n---\n"

// SummarizeStepResult produces the bounded summary recorded on the step
// and merged into accumulated knowledge.
func SummarizeStepResult(stepDescription string, resp *capability.Response, name capability.Name) string {
	answer := ""
	if resp != nil {
		answer = strings.TrimSpace(resp.Output)
	}
	answer = strings.ReplaceAll(answer, "\n", " ")
	summary := fmt.Sprintf("[%s] %s: %s", name, stepDescription, answer)
	return truncateText(summary, summaryMaxChars)
}

// SummarizeReflection folds a reflection into the same bounded format
// so later decisions see it alongside step results.
func SummarizeReflection(stepID int, text string) string {
	text = strings.ReplaceAll(strings.TrimSpace(text), "\n", " ")
	return truncateText(fmt.Sprintf("[reflection on step %d] %s", stepID+1, text), summaryMaxChars)
}

// MergeContexts appends new knowledge onto existing knowledge with a
// separating marker. Empty fragments merge to the other side unchanged.
func MergeContexts(existing, addition string) string {
	existing = strings.TrimSpace(existing)
	addition = strings.TrimSpace(addition)
	switch {
	case existing == "":
		return addition
	case addition == "":
		return existing
	}
	return existing + knowledgeSeparator + addition
}

func truncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
