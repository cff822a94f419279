package adapter

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sentinelops/sentinel-ai/internal/llm/types"
)

// fakeAdapter returns scripted responses for retry testing.
type fakeAdapter struct {
	responses []fakeResponse
	calls     int
}

type fakeResponse struct {
	resp *types.CompletionResponse
	err  error
}

func (f *fakeAdapter) Complete(ctx context.Context, messages []types.Message) (*types.CompletionResponse, error) {
	if f.calls >= len(f.responses) {
		return nil, fmt.Errorf("unexpected call %d", f.calls)
	}
	r := f.responses[f.calls]
	f.calls++
	return r.resp, r.err
}

func (f *fakeAdapter) Provider() ProviderType { return ProviderOpenAI }

// noSleep skips backoff delays in tests.
func noSleep(ctx context.Context, d time.Duration) error { return nil }

func newTestRetryAdapter(inner LLMAdapter, policy RetryPolicy) *retryAdapterImpl {
	a := NewRetryAdapter(inner, policy).(*retryAdapterImpl)
	a.sleep = noSleep
	return a
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	inner := &fakeAdapter{
		responses: []fakeResponse{
			{err: fmt.Errorf("%w: 429", types.ErrRateLimited)},
			{err: fmt.Errorf("%w: deadline", types.ErrTimeout)},
			{resp: &types.CompletionResponse{Content: "ok"}},
		},
	}

	a := newTestRetryAdapter(inner, DefaultRetryPolicy())

	resp, err := a.Complete(context.Background(), []types.Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}

	if resp.Content != "ok" {
		t.Errorf("Expected content 'ok', got %q", resp.Content)
	}

	if inner.calls != 3 {
		t.Errorf("Expected 3 attempts, got %d", inner.calls)
	}
}

func TestRetryStopsAtMaxAttempts(t *testing.T) {
	responses := make([]fakeResponse, 5)
	for i := range responses {
		responses[i] = fakeResponse{err: fmt.Errorf("%w: attempt %d", types.ErrRateLimited, i+1)}
	}
	inner := &fakeAdapter{responses: responses}

	a := newTestRetryAdapter(inner, DefaultRetryPolicy())

	_, err := a.Complete(context.Background(), []types.Message{{Role: "user", Content: "hi"}})
	if err == nil {
		t.Fatal("Expected error after exhausting retries")
	}

	if !errors.Is(err, types.ErrRateLimited) {
		t.Errorf("Expected ErrRateLimited, got %v", err)
	}

	if inner.calls != 5 {
		t.Errorf("Expected 5 attempts, got %d", inner.calls)
	}
}

func TestRetryDoesNotRetryServiceErrors(t *testing.T) {
	inner := &fakeAdapter{
		responses: []fakeResponse{
			{err: fmt.Errorf("%w: bad auth", types.ErrService)},
		},
	}

	a := newTestRetryAdapter(inner, DefaultRetryPolicy())

	_, err := a.Complete(context.Background(), []types.Message{{Role: "user", Content: "hi"}})
	if err == nil {
		t.Fatal("Expected service error")
	}

	if inner.calls != 1 {
		t.Errorf("Expected 1 attempt for non-retryable error, got %d", inner.calls)
	}
}

func TestRetryDelayDoubling(t *testing.T) {
	responses := make([]fakeResponse, 5)
	for i := range responses {
		responses[i] = fakeResponse{err: fmt.Errorf("%w", types.ErrTimeout)}
	}
	inner := &fakeAdapter{responses: responses}

	var delays []time.Duration
	a := NewRetryAdapter(inner, RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   1 * time.Second,
		MaxDelay:    4 * time.Second,
	}).(*retryAdapterImpl)
	a.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	_, _ = a.Complete(context.Background(), []types.Message{{Role: "user", Content: "hi"}})

	// 4 retries after the first attempt: 1s, 2s, 4s, then capped at 4s
	want := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second, 4 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("Expected %d delays, got %d: %v", len(want), len(delays), delays)
	}
	for i, d := range want {
		if delays[i] != d {
			t.Errorf("Delay %d: expected %v, got %v", i, d, delays[i])
		}
	}
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	inner := &fakeAdapter{
		responses: []fakeResponse{
			{err: fmt.Errorf("%w", types.ErrRateLimited)},
		},
	}

	a := NewRetryAdapter(inner, DefaultRetryPolicy()).(*retryAdapterImpl)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Complete(ctx, []types.Message{{Role: "user", Content: "hi"}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestUnconfiguredAdapter(t *testing.T) {
	a, err := NewLLMAdapter(&Config{Provider: ProviderNone})
	if err != nil {
		t.Fatalf("NewLLMAdapter() error: %v", err)
	}

	if a.Provider() != ProviderNone {
		t.Errorf("Expected ProviderNone, got %s", a.Provider())
	}

	_, err = a.Complete(context.Background(), []types.Message{{Role: "user", Content: "hi"}})
	if !errors.Is(err, ErrProviderNotConfigured) {
		t.Errorf("Expected ErrProviderNotConfigured, got %v", err)
	}
}

func TestOpenAIWithoutKeyDegrades(t *testing.T) {
	a, err := NewLLMAdapter(&Config{Provider: ProviderOpenAI, APIKey: ""})
	if err != nil {
		t.Fatalf("NewLLMAdapter() error: %v", err)
	}

	if a.Provider() != ProviderNone {
		t.Errorf("Expected degraded ProviderNone, got %s", a.Provider())
	}
}
