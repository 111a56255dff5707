// Package retry runs an operation under a bounded retry policy. The policy
// is a plain value (attempt bound, base delay, backoff function) so the
// schedule can be declared next to the call site and tested without
// touching the network code that consumes it.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Backoff maps a zero-based attempt number to the delay before the next
// attempt.
type Backoff func(attempt int, base time.Duration) time.Duration

// Fixed waits the base delay between every attempt.
func Fixed(_ int, base time.Duration) time.Duration {
	return base
}

// Exponential doubles the base delay on each attempt: base, 2*base, 4*base…
func Exponential(attempt int, base time.Duration) time.Duration {
	return base << uint(attempt)
}

// Policy bounds a retried operation.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// Delay is the base delay passed to the backoff function.
	Delay time.Duration
	// Backoff computes the wait between attempts. Nil means Fixed.
	Backoff Backoff
	// OnRetry, if set, observes each failed attempt before the wait.
	// attempt is 1-based.
	OnRetry func(attempt int, err error)
}

func (p Policy) backoff(attempt int) time.Duration {
	b := p.Backoff
	if b == nil {
		b = Fixed
	}
	return b(attempt, p.Delay)
}

// Do runs op until it succeeds, the policy is exhausted, or ctx is
// cancelled. The returned error is the last attempt's error; on
// cancellation it is the context's error.
func Do(ctx context.Context, p Policy, op func() error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}

	var err error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, err)
		}
		if attempt == p.MaxAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.backoff(attempt)):
		}
	}

	return fmt.Errorf("after %d attempts: %w", p.MaxAttempts, err)
}
