/*
Package retry repeats an operation until it succeeds, fails with an error
that must not be retried, or the context is cancelled.
*/
package retry

import (
	"context"
	"math/rand"
	"time"

	"github.com/iov-one/fundtool/errors"
)

// Class tells if an error can be retried.
type Class int

const (
	Retryable Class = iota
	Fatal
)

// Policy configures Do.
type Policy struct {
	// MaxAttempts limits the number of calls. Zero or less means no limit.
	MaxAttempts int
	// BaseDelay is the wait after the first failure.
	BaseDelay time.Duration
	// MaxDelay caps the exponentially growing wait. When not greater than
	// BaseDelay the wait is constant.
	MaxDelay time.Duration
	// Jitter adds a random duration in [0, Jitter) to every wait.
	Jitter time.Duration

	// Classify decides whether an error is retryable. If nil, every error
	// is retried.
	Classify func(error) Class

	// OnRetry is called before every wait.
	OnRetry func(attempt int, wait time.Duration, err error)
}

// Constant returns a policy retrying forever with a fixed delay.
func Constant(delay time.Duration) Policy {
	return Policy{BaseDelay: delay, MaxDelay: delay}
}

// FatalOn returns a classifier that stops retrying on any of given error
// kinds.
func FatalOn(kinds ...*errors.Error) func(error) Class {
	return func(err error) Class {
		for _, k := range kinds {
			if k.Is(err) {
				return Fatal
			}
		}
		return Retryable
	}
}

// Do calls fn until it returns nil. The last error is returned when the
// attempts are exhausted or the error is classified as fatal. Context
// cancellation returns the context error.
func Do(ctx context.Context, p Policy, fn func(context.Context) error) error {
	if p.BaseDelay <= 0 {
		p.BaseDelay = 100 * time.Millisecond
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	classify := p.Classify
	if classify == nil {
		classify = func(error) Class { return Retryable }
	}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if classify(err) == Fatal {
			return err
		}
		if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
			return err
		}

		wait := backoff(p, attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, wait, err)
		}
		if err := Sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func backoff(p Policy, attempt int) time.Duration {
	wait := p.BaseDelay
	for i := 1; i < attempt && wait < p.MaxDelay; i++ {
		wait *= 2
	}
	if wait > p.MaxDelay {
		wait = p.MaxDelay
	}
	if p.Jitter > 0 {
		wait += time.Duration(rand.Int63n(int64(p.Jitter)))
	}
	return wait
}

// Sleep waits for given duration or until the context is cancelled, in
// which case the context error is returned.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
