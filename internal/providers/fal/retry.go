package fal

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tryon-api/internal/infra"
)

// ErrCircuitOpen is returned without attempting network I/O while the breaker
// is open. It is the backpressure mechanism protecting the provider and the
// gateway's own latency budget.
var ErrCircuitOpen = errors.New("fal: circuit breaker is open")

const maxJitter = 100 * time.Millisecond

// ExecutorOptions configures retry bounds and the circuit breaker.
type ExecutorOptions struct {
	MaxAttempts      int
	BaseDelay        time.Duration
	MaxDelay         time.Duration
	FailureThreshold int
	OpenFor          time.Duration
	Logger           *infra.Logger
}

// Executor wraps outbound provider calls with bounded exponential-backoff
// retries and a consecutive-failure circuit breaker. One executor is shared
// across all calls to the provider so the breaker sees every failure.
type Executor struct {
	maxAttempts      int
	baseDelay        time.Duration
	maxDelay         time.Duration
	failureThreshold int
	openFor          time.Duration
	logger           *infra.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu                  sync.Mutex
	consecutiveFailures int
	openUntil           time.Time
}

// NewExecutor builds an executor, filling unset options with defaults.
func NewExecutor(opts ExecutorOptions) *Executor {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 500 * time.Millisecond
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 5 * time.Second
	}
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = 5
	}
	if opts.OpenFor <= 0 {
		opts.OpenFor = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Executor{
		maxAttempts:      opts.MaxAttempts,
		baseDelay:        opts.BaseDelay,
		maxDelay:         opts.MaxDelay,
		failureThreshold: opts.FailureThreshold,
		openFor:          opts.OpenFor,
		logger:           logger,
		now:              time.Now,
		sleep:            sleepContext,
	}
}

// Do runs op through the executor, retrying retryable failures and re-raising
// the last error once attempts are exhausted.
func Do[T any](ctx context.Context, e *Executor, operation string, op func(context.Context) (T, error)) (T, error) {
	var result T
	err := e.execute(ctx, operation, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

func (e *Executor) execute(ctx context.Context, operation string, op func(context.Context) error) error {
	if e.circuitOpen() {
		return ErrCircuitOpen
	}

	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			e.reset()
			return nil
		}

		if !isRetryable(err) {
			e.reset()
			return err
		}

		e.recordFailure(operation)
		lastErr = err

		if attempt == e.maxAttempts {
			break
		}

		if err := e.sleep(ctx, e.delayFor(attempt)); err != nil {
			return err
		}
	}

	return lastErr
}

func isRetryable(err error) bool {
	// Missing credentials is a local misconfiguration, not provider health;
	// retrying cannot fix it and it must not feed the breaker.
	if errors.Is(err, ErrNotConfigured) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 429 || apiErr.StatusCode == 408 {
			return true
		}
		return apiErr.StatusCode >= 500
	}
	return true
}

func (e *Executor) circuitOpen() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now().Before(e.openUntil)
}

func (e *Executor) recordFailure(operation string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.consecutiveFailures++
	if e.consecutiveFailures >= e.failureThreshold {
		// Failures from calls already in flight re-arm the open window.
		e.openUntil = e.now().Add(e.openFor)
		e.logger.Error().
			Str("operation", operation).
			Int("consecutive_failures", e.consecutiveFailures).
			Dur("open_for", e.openFor).
			Msg("fal: circuit breaker opened")
	}
}

func (e *Executor) reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.consecutiveFailures = 0
	e.openUntil = time.Time{}
}

func (e *Executor) delayFor(attempt int) time.Duration {
	delay := e.baseDelay << (attempt - 1)
	if delay > e.maxDelay {
		delay = e.maxDelay
	}
	return delay + time.Duration(rand.Int63n(int64(maxJitter)))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
