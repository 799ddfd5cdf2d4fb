// Package retry runs transport operations with one bounded retry.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// DefaultDelay is the wait before the single retry.
const DefaultDelay = 250 * time.Millisecond

// Policy is a constant-delay retry policy.
type Policy struct {
	Delay time.Duration
	// Attempts counts the first try.
	Attempts uint
}

// Once retries a failed operation a single time after delay.
func Once(delay time.Duration) Policy {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return Policy{Delay: delay, Attempts: 2}
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs op under p. notify, if set, is called before each retry.
func Do[T any](ctx context.Context, p Policy, op func() (T, error), notify func(err error, wait time.Duration)) (T, error) {
	opts := []backoff.RetryOption{
		backoff.WithBackOff(backoff.NewConstantBackOff(p.Delay)),
		backoff.WithMaxTries(p.Attempts),
	}
	if notify != nil {
		opts = append(opts, backoff.WithNotify(notify))
	}
	return backoff.Retry(ctx, op, opts...)
}
