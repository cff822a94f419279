package orchestrator

import (
	"fmt"
	"strings"

	"github.com/sentinelops/sentinel-ai/internal/capability"
	"github.com/sentinelops/sentinel-ai/internal/models"
)

// Prompt assembly for the planner, decision service, reflection, and
// synthesizer. Kept in one place so the instruction wording can evolve
// without touching control flow.

func buildPlanPrompt(alert *models.Alert, context string) string {
	var b strings.Builder
	b.WriteString("You are an SRE planning the investigation of a production alert.\n\n")
	writeAlertSection(&b, alert)
	if context != "" {
		fmt.Fprintf(&b, "Infrastructure context:\n%s\n\n", context)
	}
	b.WriteString("Produce a numbered list of 3 to 5 concrete, actionable steps that ")
	b.WriteString("progress from investigation to diagnosis to resolution. ")
	b.WriteString("Respond with the numbered list only, one step per line.")
	return b.String()
}

func buildDecisionPrompt(alert *models.Alert, context, knowledge, stepDescription string) string {
	var b strings.Builder
	b.WriteString("You are executing one step of an alert investigation. ")
	b.WriteString("Choose exactly one capability to run for this step.\n\n")
	writeAlertSection(&b, alert)
	if context != "" {
		fmt.Fprintf(&b, "Infrastructure context:\n%s\n\n", context)
	}
	if knowledge != "" {
		fmt.Fprintf(&b, "Knowledge gathered so far:\n%s\n\n", knowledge)
	}
	fmt.Fprintf(&b, "Current step: %s\n\n", stepDescription)
	b.WriteString("Available capabilities:\n")
	for _, name := range capability.AllNames() {
		fmt.Fprintf(&b, "- %s\n", name)
	}
	b.WriteString("\nUse final-answer only when the gathered knowledge already answers the alert; ")
	b.WriteString("its query is the answer text itself.\n")
	b.WriteString("Respond with two lines and nothing else:\n")
	b.WriteString("capability: <one name from the list>\n")
	b.WriteString("query: <the input to give that capability>")
	return b.String()
}

func buildReflectionPrompt(step *PlanStep, knowledge string) string {
	var b strings.Builder
	b.WriteString("Reflect briefly on the investigation step below. ")
	b.WriteString("State what was learned, or what the failure implies, in at most three sentences.\n\n")
	fmt.Fprintf(&b, "Step: %s\nStatus: %s\nTool: %s\nResult: %s\n",
		step.Description, step.Status, step.ToolUsed, step.ResultSummary)
	if knowledge != "" {
		fmt.Fprintf(&b, "\nKnowledge so far:\n%s\n", knowledge)
	}
	return b.String()
}

func buildSynthesisPrompt(alert *models.Alert, context string, plan *Plan, reflections []Reflection, incidents []models.SimilarIncident, knowledge string) string {
	var b strings.Builder
	b.WriteString("You are writing the final recommendation for an alert investigation.\n\n")
	writeAlertSection(&b, alert)
	if context != "" {
		fmt.Fprintf(&b, "Infrastructure context:\n%s\n\n", context)
	}

	b.WriteString("Investigation steps:\n")
	for i := range plan.Steps {
		s := &plan.Steps[i]
		fmt.Fprintf(&b, "%d. [%s] %s", s.Index+1, s.Status, s.Description)
		if s.ResultSummary != "" {
			fmt.Fprintf(&b, " — %s", s.ResultSummary)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if len(reflections) > 0 {
		b.WriteString("Reflections:\n")
		for _, r := range reflections {
			fmt.Fprintf(&b, "- step %d: %s\n", r.StepID+1, r.Text)
		}
		b.WriteString("\n")
	}

	if len(incidents) > 0 {
		b.WriteString("Similar past incidents:\n")
		for _, inc := range incidents {
			fmt.Fprintf(&b, "- [score %.2f] %s → %s\n", inc.SimilarityScore, inc.Error, inc.Solution)
		}
		b.WriteString("\n")
	}

	if knowledge != "" {
		fmt.Fprintf(&b, "Accumulated knowledge:\n%s\n\n", knowledge)
	}

	b.WriteString("Write the recommendation with these sections:\n")
	b.WriteString("1. Findings summary\n")
	b.WriteString("2. Areas needing further investigation\n")
	b.WriteString("3. Concrete remediation steps\n")
	b.WriteString("4. Preventive measures")
	return b.String()
}

func writeAlertSection(b *strings.Builder, alert *models.Alert) {
	fmt.Fprintf(b, "Alert %s (%s): %s\n", alert.ID, alert.Type, alert.Summary)
	if alert.Details != "" {
		fmt.Fprintf(b, "Details: %s\n", alert.Details)
	}
	if len(alert.Metadata) > 0 {
		b.WriteString("Metadata:")
		for k, v := range alert.Metadata {
			fmt.Fprintf(b, " %s=%s", k, v)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}
