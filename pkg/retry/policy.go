// Package retry decides whether a failed download attempt is tried again and
// how long to wait before doing so.
package retry

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/cperrin88/mcfetch/pkg/errors"
)

// Default policy values.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
	DefaultMaxDelay    = 10 * time.Second
)

// Policy is an exponential backoff with a ceiling and no jitter.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first one.
	MaxAttempts int
	// BaseDelay is the wait after the first failed attempt.
	BaseDelay time.Duration
	// MaxDelay caps every wait.
	MaxDelay time.Duration
}

// DefaultPolicy returns the policy used when configuration leaves it unset.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
	}
}

// WithMaxAttempts returns a copy of p with a different attempt budget.
// Values below one are ignored.
func (p Policy) WithMaxAttempts(n int) Policy {
	if n >= 1 {
		p.MaxAttempts = n
	}
	return p
}

// Retryable reports whether err belongs to a class that may be retried.
// Malformed input and cancellation never are.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	for _, permanent := range []error{
		pkgerrors.ErrInvalidURL,
		pkgerrors.ErrInvalidPath,
		pkgerrors.ErrUnsupportedDigest,
		pkgerrors.ErrCancelled,
		context.Canceled,
	} {
		if errors.Is(err, permanent) {
			return false
		}
	}
	return true
}

// ShouldRetry reports whether attempt (zero based) failed with err and another
// attempt is allowed.
func (p Policy) ShouldRetry(attempt int, err error) bool {
	if !Retryable(err) {
		return false
	}
	return attempt+1 < p.maxAttempts()
}

// DelayFor returns min(BaseDelay * 2^n, MaxDelay).
func (p Policy) DelayFor(n int) time.Duration {
	if n < 0 {
		n = 0
	}
	delay := p.BaseDelay
	if delay <= 0 {
		return 0
	}
	for i := 0; i < n; i++ {
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay
		}
		if delay > time.Duration(1<<62) {
			break
		}
		delay *= 2
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

func (p Policy) maxAttempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Do runs fn until it succeeds, fails with a non-retryable error, or the
// attempt budget is spent. The last error is returned. Waiting between
// attempts stops early with ErrCancelled when ctx is done.
func (p Policy) Do(ctx context.Context, fn func(attempt int) error) error {
	var err error
	for attempt := 0; attempt < p.maxAttempts(); attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return cancelled(ctxErr)
		}
		err = fn(attempt)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return cancelled(err)
		}
		if !p.ShouldRetry(attempt, err) {
			return err
		}
		if waitErr := sleep(ctx, p.DelayFor(attempt)); waitErr != nil {
			return cancelled(err)
		}
	}
	return err
}

func cancelled(err error) error {
	if errors.Is(err, pkgerrors.ErrCancelled) {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.ErrCancelled, err.Error())
}

func sleep(ctx context.Context, d time.Duration) error {
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
