package capability

import (
	"context"
	"fmt"
	"strings"
)

// finalAnswer carries the decision layer's concluding answer through the
// normal dispatch path. The step executor treats it as a signal to stop
// investigating; executing it just echoes the answer text.
type finalAnswer struct{}

func NewFinalAnswer() Capability { return &finalAnswer{} }

func (c *finalAnswer) Name() Name { return FinalAnswer }

func (c *finalAnswer) Description() string {
	return "Conclude the investigation with a final answer when enough is known."
}

func (c *finalAnswer) Execute(ctx context.Context, req Request) (*Response, error) {
	answer := strings.TrimSpace(req.Query)
	if answer == "" {
		return nil, fmt.Errorf("final answer requires answer text")
	}
	return &Response{Output: answer}, nil
}
