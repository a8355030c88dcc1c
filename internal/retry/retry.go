// Package retry runs an attempt function under a bounded retry policy.
package retry

import (
	"context"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/fivetwenty-io/recapi/internal/constants"
)

// Backoff returns the delay after the failed attempt with zero-based index attempt.
type Backoff func(base, maxDelay time.Duration, attempt int) time.Duration

// Linear waits base*(attempt+1).
func Linear(base, _ time.Duration, attempt int) time.Duration {
	return base * time.Duration(attempt+1)
}

// Exponential doubles from base and is capped at maxDelay.
func Exponential(base, maxDelay time.Duration, attempt int) time.Duration {
	if maxDelay <= 0 {
		maxDelay = constants.DefaultRetryMaxDelay
	}

	return retryablehttp.DefaultBackoff(base, maxDelay, attempt, nil)
}

// LinearJitter is linear with each step drawn between base and maxDelay.
func LinearJitter(base, maxDelay time.Duration, attempt int) time.Duration {
	return retryablehttp.LinearJitterBackoff(base, maxDelay, attempt, nil)
}

// Policy bounds the attempts of one call.
type Policy struct {
	// MaxAttempts is the number of retries after the first attempt.
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Backoff     Backoff
	// OnRetry runs before each delay with the number of the attempt about
	// to start (1 for the first retry).
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Delay returns the wait after the failed attempt with zero-based index attempt.
func (p Policy) Delay(attempt int) time.Duration {
	backoff := p.Backoff
	if backoff == nil {
		backoff = Linear
	}

	return backoff(p.BaseDelay, p.MaxDelay, attempt)
}

// Guard reports whether the call was aborted.
type Guard func() bool

// Attempt performs one try. attempt is zero-based.
type Attempt[T any] func(ctx context.Context, attempt int) (T, error)

// Executor holds the failure classification shared by every call.
type Executor struct {
	retryable   func(error) bool
	interrupted func(ctx context.Context) error
	sleep       func(ctx context.Context, d time.Duration) error
}

// Option configures an Executor.
type Option func(*Executor)

// WithSleep replaces the delay function.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Executor) {
		e.sleep = sleep
	}
}

// NewExecutor creates an Executor. retryable classifies attempt errors;
// interrupted builds the error returned when the guard trips or ctx ends.
func NewExecutor(retryable func(error) bool, interrupted func(ctx context.Context) error, opts ...Option) *Executor {
	e := &Executor{
		retryable:   retryable,
		interrupted: interrupted,
		sleep:       sleepContext,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Do runs fn until it succeeds, fails with a non-retryable error, or has
// used policy.MaxAttempts retries. The guard is checked before every attempt
// and before every delay. Do returns the number of attempts made.
func Do[T any](ctx context.Context, e *Executor, policy Policy, aborted Guard, fn Attempt[T]) (T, int, error) {
	var zero T

	for attempt := 0; ; attempt++ {
		if aborted() || ctx.Err() != nil {
			return zero, attempt, e.interrupted(ctx)
		}

		value, err := fn(ctx, attempt)
		if err == nil {
			return value, attempt + 1, nil
		}

		if !e.retryable(err) || attempt >= policy.MaxAttempts {
			return zero, attempt + 1, err
		}

		delay := policy.Delay(attempt)

		if policy.OnRetry != nil {
			policy.OnRetry(attempt+1, err, delay)
		}

		if aborted() {
			return zero, attempt + 1, e.interrupted(ctx)
		}

		if e.sleep(ctx, delay) != nil {
			return zero, attempt + 1, e.interrupted(ctx)
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
