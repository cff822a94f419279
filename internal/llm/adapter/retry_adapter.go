package adapter

// retryAdapter wraps LLMAdapter with exponential backoff on transient
// provider failures. This is the recommended production wrapper:
//
//	base, _ := NewLLMAdapter(cfg)
//	safe := NewRetryAdapter(base, RetryPolicy{MaxAttempts: 5, BaseDelay: time.Second, MaxDelay: time.Minute})
//
// The retry adapter satisfies the same LLMAdapter interface so callers
// do not need to change. Only rate-limit and timeout errors are retried;
// auth failures and malformed responses surface immediately.

import (
	"context"
	"errors"
	"time"

	"github.com/sentinelops/sentinel-ai/internal/llm/types"
	"github.com/sentinelops/sentinel-ai/internal/metrics"
)

// RetryPolicy controls backoff behavior for transient provider failures.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// BaseDelay is the delay before the first retry. Each subsequent retry
	// doubles the delay.
	BaseDelay time.Duration

	// MaxDelay caps the per-retry delay.
	MaxDelay time.Duration
}

// DefaultRetryPolicy matches the service-wide transient failure policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   1 * time.Second,
		MaxDelay:    60 * time.Second,
	}
}

// retryAdapterImpl wraps an LLMAdapter with backoff on transient errors.
type retryAdapterImpl struct {
	inner  LLMAdapter
	policy RetryPolicy
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRetryAdapter creates an LLMAdapter that retries transient failures.
func NewRetryAdapter(inner LLMAdapter, policy RetryPolicy) LLMAdapter {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = 1 * time.Second
	}
	if policy.MaxDelay < policy.BaseDelay {
		policy.MaxDelay = policy.BaseDelay
	}

	return &retryAdapterImpl{
		inner:  inner,
		policy: policy,
		sleep:  sleepContext,
	}
}

// Complete executes the LLM call, retrying rate-limit and timeout errors
// with exponential backoff.
func (a *retryAdapterImpl) Complete(ctx context.Context, messages []types.Message) (*types.CompletionResponse, error) {
	var lastErr error

	delay := a.policy.BaseDelay
	for attempt := 1; attempt <= a.policy.MaxAttempts; attempt++ {
		resp, err := a.inner.Complete(ctx, messages)
		if err == nil {
			return resp, nil
		}

		lastErr = err
		if !types.IsRetryable(err) || attempt == a.policy.MaxAttempts {
			break
		}

		metrics.LLMRetriesTotal.WithLabelValues(string(a.inner.Provider()), retryReason(err)).Inc()

		if err := a.sleep(ctx, delay); err != nil {
			return nil, err
		}

		delay *= 2
		if delay > a.policy.MaxDelay {
			delay = a.policy.MaxDelay
		}
	}

	return nil, lastErr
}

// Provider delegates to the inner adapter.
func (a *retryAdapterImpl) Provider() ProviderType {
	return a.inner.Provider()
}

// retryReason maps a transient error to a metric label.
func retryReason(err error) string {
	if errors.Is(err, types.ErrRateLimited) {
		return "rate_limit"
	}
	return "timeout"
}

// sleepContext sleeps for d or until ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
