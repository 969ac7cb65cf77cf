// Package retry provides the bounded exponential backoff policy shared by
// the Gmail fetcher and the persistence layer.
package retry

import (
	"context"
	"time"
)

// Policy describes how an operation is retried: attempt budget, backoff
// curve, and which errors are worth retrying at all.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Retryable   func(error) bool
}

// Default returns the policy used for transient provider and database
// errors: 3 attempts, 500ms base, doubling, capped at 5s.
func Default(retryable func(error) bool) Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Retryable:   retryable,
	}
}

// Do runs fn until it succeeds, the error is non-retryable, or the
// attempt budget is exhausted. The last error is returned.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	var err error
	delay := p.BaseDelay
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt == p.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return err
}
