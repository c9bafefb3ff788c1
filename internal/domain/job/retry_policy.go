package job

import (
	"errors"
	"time"
)

// ErrInvalidMaxAttempts indicates the configured attempt limit is not positive.
var ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

// ErrInvalidBackoffStep indicates the configured backoff step is not positive.
var ErrInvalidBackoffStep = errors.New("backoff step must be positive")

// RetryPolicy decides whether a failed attempt is rescheduled and when the
// job becomes eligible again. Backoff grows linearly with the attempt count.
type RetryPolicy struct {
	maxAttempts int
	backoffStep time.Duration
}

// NewRetryPolicy constructs a RetryPolicy from the attempt limit and the
// per-attempt backoff step.
func NewRetryPolicy(maxAttempts int, backoffStep time.Duration) (*RetryPolicy, error) {
	if maxAttempts <= 0 {
		return nil, ErrInvalidMaxAttempts
	}
	if backoffStep <= 0 {
		return nil, ErrInvalidBackoffStep
	}
	return &RetryPolicy{
		maxAttempts: maxAttempts,
		backoffStep: backoffStep,
	}, nil
}

// MaxAttempts returns the configured attempt limit.
func (p *RetryPolicy) MaxAttempts() int {
	if p == nil {
		return 0
	}
	return p.maxAttempts
}

// RetryDecision captures the outcome of resolving one failed attempt.
type RetryDecision struct {
	Retry    bool
	RunAfter time.Time
}

// Decide resolves a failed attempt. attempts is the post-claim counter (1 on
// the first attempt). Only transient failures with attempts remaining are
// rescheduled; the delay is backoffStep multiplied by the attempt count.
func (p *RetryPolicy) Decide(attempts int, transient bool, now time.Time) RetryDecision {
	if p == nil || !transient || attempts >= p.maxAttempts {
		return RetryDecision{}
	}
	return RetryDecision{
		Retry:    true,
		RunAfter: now.Add(time.Duration(attempts) * p.backoffStep),
	}
}
