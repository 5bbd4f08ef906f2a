package vault

import (
	"context"
	"time"

	enverrors "github.com/envault/envault/internal/errors"
)

// RetryPolicy governs how the backend retries remote store calls.
//
// Only errors accepted by RetryIf are retried; everything else propagates
// immediately. After MaxAttempts the last error is returned.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Default: 3.
	MaxAttempts int

	// Delay is the fixed wait between attempts. Default: no delay.
	Delay time.Duration

	// RetryIf decides whether an error is retryable.
	// Default: transport-level transient errors only.
	RetryIf func(err error) bool

	// OnRetry is called before each retry attempt.
	OnRetry func(attempt int, err error)
}

// DefaultRetryPolicy returns the policy used when the caller supplies none:
// up to 3 attempts on transient transport errors, no backoff.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts: 3,
		RetryIf:     enverrors.IsRetryable,
	}
}

// normalize fills zero-valued fields with defaults.
func (p *RetryPolicy) normalize() {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.RetryIf == nil {
		p.RetryIf = enverrors.IsRetryable
	}
}

// call runs op under the policy.
func (p *RetryPolicy) call(ctx context.Context, op func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !p.RetryIf(err) {
			return err
		}
		if attempt >= p.MaxAttempts {
			break
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}

		if p.Delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.Delay):
			}
		} else if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return lastErr
}
