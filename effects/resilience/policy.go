package resilience

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/on-the-ground/effectpipe/effects/result"
)

// ErrInvalidPolicy is wrapped by every policy validation failure.
var ErrInvalidPolicy = errors.New("resilience: invalid policy")

// RetryPolicy decides how often and how patiently a plan is re-run.
type RetryPolicy struct {
	MaxAttempts    int
	RetriableCodes result.CodeSet
	BackoffBase    time.Duration
	MaxBackoff     time.Duration
	// JitterFactor scales each delay by a uniform factor in [1-j, 1+j].
	JitterFactor float64
	// Idempotent false means retries may repeat side effects; a warning is
	// logged before the first retry of each run.
	Idempotent bool
}

// DefaultRetryPolicy retries TRANSIENT and RATE_LIMIT failures three times.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		RetriableCodes: result.NewCodeSet(result.CodeTransient, result.CodeRateLimit),
		BackoffBase:    50 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		JitterFactor:   0.1,
		Idempotent:     true,
	}
}

// NoRetry runs a plan exactly once.
func NoRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 1, Idempotent: true}
}

func (p RetryPolicy) Validate() error {
	switch {
	case p.MaxAttempts < 1:
		return fmt.Errorf("%w: max attempts %d < 1", ErrInvalidPolicy, p.MaxAttempts)
	case p.BackoffBase < 0 || p.MaxBackoff < 0:
		return fmt.Errorf("%w: negative backoff", ErrInvalidPolicy)
	case p.JitterFactor < 0 || p.JitterFactor > 1:
		return fmt.Errorf("%w: jitter factor %v outside [0,1]", ErrInvalidPolicy, p.JitterFactor)
	}
	return nil
}

// Backoff is the delay after a failed attempt (1-based), given r in [0,1):
// min(base * 2^(attempt-1), max) * (1 + jitter*(2r-1)).
func (p RetryPolicy) Backoff(attempt int, r float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(p.BackoffBase) * math.Pow(2, float64(attempt-1))
	if d > float64(p.MaxBackoff) {
		d = float64(p.MaxBackoff)
	}
	d *= 1 + p.JitterFactor*(2*r-1)
	if d < 0 {
		return 0
	}
	return time.Duration(d)
}

// TimeoutPolicy bounds a single attempt.
type TimeoutPolicy struct {
	Timeout time.Duration
}

func (p TimeoutPolicy) Validate() error {
	if p.Timeout <= 0 {
		return fmt.Errorf("%w: timeout %v <= 0", ErrInvalidPolicy, p.Timeout)
	}
	return nil
}
