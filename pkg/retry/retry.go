package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Backoff computes the wait before the next attempt.
// attempt is zero-based: 0 is the wait after the first failure.
type Backoff interface {
	Delay(attempt int) time.Duration
}

// None retries immediately
type None struct{}

// Delay always returns zero
func (None) Delay(int) time.Duration { return 0 }

// Exponential doubles the wait each attempt, capped at Max
type Exponential struct {
	Initial time.Duration
	Max     time.Duration
	// Jitter picks a random wait in [0, backoff) instead of the full backoff
	Jitter bool
}

// Delay returns initial * 2^attempt, capped at Max
func (e Exponential) Delay(attempt int) time.Duration {
	initial := e.Initial
	if initial <= 0 {
		initial = 100 * time.Millisecond
	}
	max := e.Max
	if max <= 0 {
		max = 5 * time.Second
	}

	backoff := float64(initial) * math.Pow(2, float64(attempt))
	if backoff > float64(max) {
		backoff = float64(max)
	}
	if e.Jitter {
		backoff = rand.Float64() * backoff
	}
	return time.Duration(backoff)
}

// Policy controls how an operation is retried
type Policy struct {
	// MaxRetries is the number of additional attempts after the first failure
	MaxRetries int
	// Backoff defaults to None
	Backoff Backoff
	// OnRetry is called after a failed attempt that will be retried
	OnRetry func(attempt int, err error)
}

// Do runs op until it succeeds or MaxRetries+1 attempts have failed.
// Every error is treated as transient. The last attempt's error is
// returned unmodified. Cancelling ctx stops further attempts.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	backoff := p.Backoff
	if backoff == nil {
		backoff = None{}
	}
	maxRetries := p.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			if lastErr != nil {
				return zero, lastErr
			}
			return zero, ctx.Err()
		default:
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == maxRetries {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, err)
		}

		if wait := backoff.Delay(attempt); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, lastErr
			case <-timer.C:
			}
		}
	}

	return zero, lastErr
}

// Run is Do for operations without a result value
func Run(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	_, err := Do(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}
