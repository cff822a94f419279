package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/sentinelops/sentinel-ai/internal/capability"
	"github.com/sentinelops/sentinel-ai/internal/llm/adapter"
	llmtypes "github.com/sentinelops/sentinel-ai/internal/llm/types"
)

// Decision is the outcome of one capability-selection call: which
// capability to run and what to feed it.
type Decision struct {
	Capability capability.Name
	Query      string
}

// DecisionService picks exactly one capability for the current step.
type DecisionService interface {
	Decide(ctx context.Context, ec *ExecutionContext) (*Decision, error)
}

type decisionService struct {
	llm adapter.LLMAdapter
}

func NewDecisionService(llm adapter.LLMAdapter) DecisionService {
	return &decisionService{llm: llm}
}

// Decide calls the model and parses its two-line capability/query
// answer. Any failure, including unparseable output or an unknown
// capability name, is a decision failure the step executor turns into
// a Failed step.
func (s *decisionService) Decide(ctx context.Context, ec *ExecutionContext) (*Decision, error) {
	resp, err := s.llm.Complete(ctx, []llmtypes.Message{
		{Role: "system", Content: "You select investigation capabilities. Respond in the exact two-line format requested."},
		{Role: "user", Content: buildDecisionPrompt(ec.Alert, ec.Context, ec.AccumulatedKnowledge, ec.StepDescription)},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecisionFailure, err)
	}

	decision, err := parseDecision(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecisionFailure, err)
	}
	return decision, nil
}

// parseDecision extracts "capability:" and "query:" lines. The query
// may span the rest of the response after the query label.
func parseDecision(text string) (*Decision, error) {
	var rawName, rawQuery string

	lines := strings.Split(text, "\n")
	for _, line := range lines {
		trimmed := strings.TrimSpace(strings.TrimLeft(line, "-* "))
		lower := strings.ToLower(trimmed)
		if rawName == "" && strings.HasPrefix(lower, "capability:") {
			rawName = strings.TrimSpace(trimmed[len("capability:"):])
		}
	}
	for i, line := range lines {
		trimmed := strings.TrimSpace(strings.TrimLeft(line, "-* "))
		if strings.HasPrefix(strings.ToLower(trimmed), "query:") {
			rawQuery = strings.TrimSpace(trimmed[len("query:"):])
			// A multi-line query keeps the remaining lines.
			if rest := strings.TrimSpace(strings.Join(lines[i+1:], "\n")); rest != "" {
				rawQuery = strings.TrimSpace(rawQuery + "\n" + rest)
			}
			break
		}
	}

	if rawName == "" {
		return nil, fmt.Errorf("no capability line in decision output")
	}
	rawName = strings.Trim(rawName, "`\" ")

	name, err := capability.ParseName(strings.ToLower(rawName))
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(rawQuery) == "" {
		return nil, fmt.Errorf("no query line in decision output")
	}
	return &Decision{Capability: name, Query: strings.TrimSpace(rawQuery)}, nil
}
