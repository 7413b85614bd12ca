package core

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy configures the backoff controller. The zero value is usable;
// missing fields are filled with defaults. The controller never mutates a
// policy.
type RetryPolicy struct {
	MaxAttempts int           // total attempts including the first (default: 3)
	BaseDelay   time.Duration // delay before the first retry (default: 500ms)
	MaxDelay    time.Duration // cap on any computed delay (default: 30s)
	Multiplier  float64       // backoff growth factor (default: 2.0)
	JitterMin   float64       // lower jitter bound (default: 0.8)
	JitterMax   float64       // upper jitter bound (default: 1.2)
}

// DefaultRetryPolicy returns the stock jittered exponential backoff policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    30 * time.Second,
		Multiplier:  2.0,
		JitterMin:   0.8,
		JitterMax:   1.2,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	d := DefaultRetryPolicy()
	if p.MaxAttempts < 1 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = d.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = d.MaxDelay
	}
	if p.Multiplier <= 1 {
		p.Multiplier = d.Multiplier
	}
	if p.JitterMin <= 0 || p.JitterMax < p.JitterMin {
		p.JitterMin, p.JitterMax = d.JitterMin, d.JitterMax
	}
	return p
}

// Delay computes the wait before the retry that follows failed attempt
// number attempt (1-based): base * multiplier^(attempt-1) * jitter. A
// non-zero hint (typically a Retry-After value) acts as a floor so the
// server's suggestion is never undercut, but MaxDelay caps the final
// result either way.
func (p RetryPolicy) Delay(attempt int, hint time.Duration) time.Duration {
	p = p.withDefaults()
	if attempt < 1 {
		attempt = 1
	}

	delay := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	delay *= p.JitterMin + rand.Float64()*(p.JitterMax-p.JitterMin)

	if hint > 0 && float64(hint) > delay {
		delay = float64(hint)
	}
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	return time.Duration(delay)
}

// Attempt describes one scheduled retry, delivered to the optional
// notification callback before the backoff wait begins.
type Attempt struct {
	Number int           // the attempt that just failed, 1-based
	Err    *Error        // its classified failure
	Delay  time.Duration // the wait before the next attempt
}

// AttemptsError wraps the last classified error once a retryable failure
// has exhausted the policy's attempt budget.
type AttemptsError struct {
	Attempts int
	Last     *Error
}

// Error implements the error interface.
func (e *AttemptsError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Last)
}

// Unwrap exposes the last classified error to errors.Is/As.
func (e *AttemptsError) Unwrap() error {
	return e.Last
}

// Do runs op with retry. Successful results return immediately. Failures
// are classified; non-retryable classifications propagate on first
// occurrence, retryable ones are re-attempted after a jittered backoff
// wait until the policy's attempt budget runs out, at which point an
// AttemptsError propagates.
//
// The backoff wait is itself cancellable: if ctx is done during the wait,
// Do returns a cancelled classification immediately. Attempts for one
// operation are strictly serialized.
//
// onRetry, when non-nil, is invoked once per scheduled retry; a call that
// succeeds on attempt n sees exactly n-1 notifications.
func Do[T any](ctx context.Context, policy RetryPolicy, op func(context.Context) (T, error), onRetry func(Attempt)) (T, error) {
	var zero T
	p := policy.withDefaults()

	for attempt := 1; ; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}

		cerr := Classify(err)
		if !cerr.Retryable {
			return zero, cerr
		}
		if attempt >= p.MaxAttempts {
			return zero, &AttemptsError{Attempts: attempt, Last: cerr}
		}

		delay := p.Delay(attempt, cerr.RetryAfter)
		if onRetry != nil {
			onRetry(Attempt{Number: attempt, Err: cerr, Delay: delay})
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, Classify(ctx.Err())
		case <-timer.C:
		}
	}
}
