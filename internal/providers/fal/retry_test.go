package fal

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestExecutor(opts ExecutorOptions) (*Executor, *time.Time) {
	e := NewExecutor(opts)
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return current }
	e.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return e, &current
}

func TestExecuteRetriesRetryableFailures(t *testing.T) {
	e, _ := newTestExecutor(ExecutorOptions{MaxAttempts: 3})

	calls := 0
	_, err := Do(context.Background(), e, "queue.submit", func(ctx context.Context) (int, error) {
		calls++
		return 0, &APIError{StatusCode: 503}
	})

	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 503 {
		t.Fatalf("expected last APIError to surface, got %v", err)
	}
}

func TestExecuteSucceedsAfterTransientFailure(t *testing.T) {
	e, _ := newTestExecutor(ExecutorOptions{MaxAttempts: 3})

	calls := 0
	got, err := Do(context.Background(), e, "queue.status", func(ctx context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "", &APIError{StatusCode: 429}
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" || calls != 2 {
		t.Fatalf("expected success on attempt 2, got %q after %d calls", got, calls)
	}
	if e.consecutiveFailures != 0 {
		t.Fatalf("success should reset failure counter, got %d", e.consecutiveFailures)
	}
}

func TestExecuteDoesNotRetryClientErrors(t *testing.T) {
	e, _ := newTestExecutor(ExecutorOptions{MaxAttempts: 3})

	calls := 0
	_, err := Do(context.Background(), e, "queue.status", func(ctx context.Context) (int, error) {
		calls++
		return 0, &APIError{StatusCode: 404, Body: []byte(`{"detail":"Request not found"}`)}
	})

	if calls != 1 {
		t.Fatalf("4xx must not be retried, got %d attempts", calls)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 404 {
		t.Fatalf("expected 404 APIError, got %v", err)
	}
	if e.consecutiveFailures != 0 {
		t.Fatalf("non-retryable failures must not count toward the breaker, got %d", e.consecutiveFailures)
	}
}

func TestCircuitOpensAfterThreshold(t *testing.T) {
	e, current := newTestExecutor(ExecutorOptions{
		MaxAttempts:      1,
		FailureThreshold: 3,
		OpenFor:          30 * time.Second,
	})

	for i := 0; i < 3; i++ {
		_, _ = Do(context.Background(), e, "queue.submit", func(ctx context.Context) (int, error) {
			return 0, &APIError{StatusCode: 500}
		})
	}

	calls := 0
	_, err := Do(context.Background(), e, "queue.submit", func(ctx context.Context) (int, error) {
		calls++
		return 0, nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if calls != 0 {
		t.Fatal("open circuit must fail fast without invoking the operation")
	}

	*current = current.Add(31 * time.Second)
	got, err := Do(context.Background(), e, "queue.submit", func(ctx context.Context) (int, error) {
		return 42, nil
	})
	if err != nil || got != 42 {
		t.Fatalf("expected success after cooldown, got %v %v", got, err)
	}
}

func TestExecuteDoesNotRetryMissingCredentials(t *testing.T) {
	e, _ := newTestExecutor(ExecutorOptions{MaxAttempts: 3, FailureThreshold: 1, OpenFor: 30 * time.Second})

	calls := 0
	_, err := Do(context.Background(), e, "queue.submit", func(ctx context.Context) (int, error) {
		calls++
		return 0, ErrNotConfigured
	})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("misconfiguration must not be retried, got %d attempts", calls)
	}

	// The breaker must stay closed: the next call reaches the operation.
	got, err := Do(context.Background(), e, "queue.submit", func(ctx context.Context) (int, error) {
		return 7, nil
	})
	if err != nil || got != 7 {
		t.Fatalf("misconfiguration must not open the circuit, got %v %v", got, err)
	}
}

func TestCircuitReArmsWhileOpen(t *testing.T) {
	e, current := newTestExecutor(ExecutorOptions{
		MaxAttempts:      1,
		FailureThreshold: 1,
		OpenFor:          30 * time.Second,
	})

	_, _ = Do(context.Background(), e, "queue.submit", func(ctx context.Context) (int, error) {
		return 0, &APIError{StatusCode: 500}
	})
	if !e.circuitOpen() {
		t.Fatal("expected circuit to open at threshold")
	}

	// A call that was already in flight fails 10s later and pushes the
	// window forward.
	*current = current.Add(10 * time.Second)
	e.recordFailure("queue.submit")

	*current = current.Add(25 * time.Second)
	if _, err := Do(context.Background(), e, "queue.submit", func(ctx context.Context) (int, error) {
		return 0, nil
	}); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected re-armed circuit to stay open, got %v", err)
	}

	*current = current.Add(6 * time.Second)
	if got, err := Do(context.Background(), e, "queue.submit", func(ctx context.Context) (int, error) {
		return 42, nil
	}); err != nil || got != 42 {
		t.Fatalf("expected success after extended cooldown, got %v %v", got, err)
	}
}

func TestExecuteStopsOnContextCancel(t *testing.T) {
	e := NewExecutor(ExecutorOptions{MaxAttempts: 3, BaseDelay: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Do(ctx, e, "queue.submit", func(ctx context.Context) (int, error) {
		return 0, &APIError{StatusCode: 500}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
