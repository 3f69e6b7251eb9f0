// Package retry runs operations against flaky external services with a bounded,
// exponentially growing delay between attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spigell/worksim-assessor/internal/utils"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
	DefaultMaxDelay    = 30 * time.Second
)

// ErrAttemptsExhausted wraps the last operation error once every attempt has failed.
var ErrAttemptsExhausted = errors.New("retry attempts exhausted")

// Observer is notified before each wait with the failed attempt number (1-based),
// the error it returned and the delay that follows.
type Observer func(attempt int, err error, delay time.Duration)

// Policy bounds how often and how patiently an operation is retried.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	OnRetry     Observer
}

// wait is swapped in tests.
var wait = utils.WaitFor

// Default returns the policy used around model calls: 3 attempts, 1s doubling up to 30s.
func Default() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
	}
}

// WithObserver returns a copy of p that reports retries to fn.
func (p Policy) WithObserver(fn Observer) Policy {
	p.OnRetry = fn
	return p
}

// Delay returns the wait after the given failed attempt: BaseDelay * 2^(attempt-1), capped at MaxDelay.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}

	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Do executes op until it succeeds or the policy is exhausted. The final failure is
// returned wrapped in ErrAttemptsExhausted; errors.Is still matches the operation error.
// A cancelled context stops retrying immediately.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, fmt.Errorf("attempt %d: %w", attempt, err)
		}

		if attempt == attempts {
			break
		}

		delay := p.Delay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, delay)
		}

		if err := wait(ctx, delay); err != nil {
			return zero, fmt.Errorf("waiting before attempt %d: %w (last error: %v)", attempt+1, err, lastErr)
		}
	}

	return zero, fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, attempts, lastErr)
}
