package orchestrator

import "errors"

// Failure classes for one alert run. Each is recovered locally: decision
// and capability failures become a Failed step, synthesis failures
// become an error-describing recommendation, and the processor's
// degradation tiers guarantee the caller always receives a well-formed
// result.
var (
	ErrDecisionFailure  = errors.New("orchestrator: decision failed")
	ErrSynthesisFailure = errors.New("orchestrator: synthesis failed")
	ErrRunCancelled     = errors.New("orchestrator: run cancelled")
)
