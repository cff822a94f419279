package capability

import (
	"context"
	"fmt"
	"strings"

	"github.com/Knetic/govaluate"
)

// calculator evaluates arithmetic expressions deterministically, so the
// workflow never asks a language model to do math.
type calculator struct{}

func NewCalculator() Capability { return &calculator{} }

func (c *calculator) Name() Name { return Calculator }

func (c *calculator) Description() string {
	return "Evaluate an arithmetic expression, e.g. error rates or capacity math."
}

func (c *calculator) Execute(ctx context.Context, req Request) (*Response, error) {
	expr := strings.TrimSpace(req.Query)
	if expr == "" {
		return nil, fmt.Errorf("calculator requires an expression")
	}

	evaluable, err := govaluate.NewEvaluableExpression(expr)
	if err != nil {
		return nil, fmt.Errorf("calculator: invalid expression %q: %w", expr, err)
	}

	result, err := evaluable.Evaluate(nil)
	if err != nil {
		return nil, fmt.Errorf("calculator: evaluate %q: %w", expr, err)
	}

	return &Response{Output: fmt.Sprintf("%s = %v", expr, result)}, nil
}
