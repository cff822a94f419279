// Package capability defines the executable actions available to the
// investigation workflow and the registry that dispatches to them.
package capability

import (
	"context"
	"errors"
	"fmt"

	"github.com/sentinelops/sentinel-ai/internal/models"
)

// Name identifies a capability. The set of names is closed: the decision
// layer maps free-form model output onto one of these values before any
// dispatch happens.
type Name string

const (
	HistoricalIncidentSearch Name = "historical-incident-search"
	WebSearch                Name = "web-search"
	DeepResearch             Name = "deep-research"
	Calculator               Name = "calculator"
	FinalAnswer              Name = "final-answer"
)

// Valid reports whether n is one of the known capability names.
func (n Name) Valid() bool {
	switch n {
	case HistoricalIncidentSearch, WebSearch, DeepResearch, Calculator, FinalAnswer:
		return true
	}
	return false
}

// ParseName normalizes a raw string into a capability Name.
func ParseName(raw string) (Name, error) {
	n := Name(raw)
	if !n.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCapability, raw)
	}
	return n, nil
}

// AllNames returns every registered capability name in a stable order,
// suitable for embedding into prompts.
func AllNames() []Name {
	return []Name{
		HistoricalIncidentSearch,
		WebSearch,
		DeepResearch,
		Calculator,
		FinalAnswer,
	}
}

// ErrUnknownCapability is returned when a name does not map to a
// registered capability.
var ErrUnknownCapability = errors.New("capability: unknown capability")

// ExecutionError wraps a failure inside a capability invocation so the
// caller can distinguish dispatch errors from execution errors.
type ExecutionError struct {
	Capability Name
	Err        error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("capability %s: %v", e.Capability, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Request carries the input for a single invocation.
type Request struct {
	// Query is the capability-specific input: a search query, an
	// arithmetic expression, or a research question.
	Query string

	// Alert provides context for capabilities that want it.
	Alert *models.Alert
}

// Response is the result of a single invocation.
type Response struct {
	// Output is the human-readable result text.
	Output string

	// Incidents is populated only by historical-incident-search.
	Incidents []models.SimilarIncident
}

// Capability is a single executable action.
type Capability interface {
	Name() Name
	Description() string
	Execute(ctx context.Context, req Request) (*Response, error)
}
