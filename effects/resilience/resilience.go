// Package resilience wraps plans with retry and per-attempt timeout.
package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/on-the-ground/effectpipe/effects/clock"
	"github.com/on-the-ground/effectpipe/effects/log"
	"github.com/on-the-ground/effectpipe/effects/plan"
	"github.com/on-the-ground/effectpipe/effects/result"
)

// TimeoutContextFunc derives the context one attempt runs under.
type TimeoutContextFunc func(parent context.Context, clk clockwork.Clock, d time.Duration) (context.Context, context.CancelFunc)

type options struct {
	stage          string
	timeoutContext TimeoutContextFunc
}

type Option func(*options)

// WithStage tags TIMEOUT and MAX_RETRIES errors with stage.
func WithStage(stage string) Option {
	return func(o *options) { o.stage = stage }
}

// WithTimeoutContext replaces the clock-driven deadline context.
func WithTimeoutContext(fn TimeoutContextFunc) Option {
	return func(o *options) { o.timeoutContext = fn }
}

// With wraps p with retry and an optional per-attempt timeout.
//
// Each attempt is a fresh run of p. Ok results and errors whose code is not
// retriable are returned as is. When the last attempt fails with a
// retriable code the result is Err(MAX_RETRIES) carrying the attempt count
// and the last error as cause. Between attempts the env sleeper waits out
// the backoff.
//
// With a single attempt and no timeout, p itself is returned.
// Invalid policies panic with an error wrapping ErrInvalidPolicy.
func With[T any](
	p plan.Plan[T],
	retry RetryPolicy,
	timeout *TimeoutPolicy,
	env clock.Env,
	opts ...Option,
) plan.Plan[T] {
	if err := retry.Validate(); err != nil {
		panic(err)
	}
	if timeout != nil {
		if err := timeout.Validate(); err != nil {
			panic(err)
		}
	}
	if retry.MaxAttempts == 1 && timeout == nil {
		return p
	}

	env = env.OrDefault()
	o := options{timeoutContext: clock.WithTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	return func(ctx context.Context) result.Result[T] {
		warned := false
		for attempt := 1; ; attempt++ {
			r := runAttempt(ctx, p, timeout, env, o)
			if r.IsOk() {
				return r
			}
			last := r.Err()
			if !retry.RetriableCodes.Contains(last.Code()) {
				return r
			}
			if attempt >= retry.MaxAttempts {
				return result.Err[T](result.NewErrInfo(
					result.CodeMaxRetries,
					fmt.Sprintf("gave up after %d attempts", attempt),
					result.WithStage(o.stage),
					result.WithCause(last),
					result.WithField("attempts", attempt),
					result.WithField("last_code", string(last.Code())),
				))
			}
			if !retry.Idempotent && !warned {
				warned = true
				log.Effect(ctx, log.LogWarn, "retrying non-idempotent plan", map[string]interface{}{
					"stage":     o.stage,
					"attempt":   attempt,
					"last_code": string(last.Code()),
				})
			}
			delay := retry.Backoff(attempt, env.Rand.Float64())
			if err := env.Sleeper.Sleep(ctx, delay); err != nil {
				return result.Err[T](result.FromContext(ctx).With(result.WithStage(o.stage)))
			}
		}
	}
}

func runAttempt[T any](
	ctx context.Context,
	p plan.Plan[T],
	timeout *TimeoutPolicy,
	env clock.Env,
	o options,
) result.Result[T] {
	if timeout == nil {
		return p.Run(ctx)
	}

	start := env.Clock.Now()
	attemptCtx, cancel := o.timeoutContext(ctx, env.Clock, timeout.Timeout)
	defer cancel()

	r := p.Run(attemptCtx)

	timedOut := env.Clock.Since(start) >= timeout.Timeout ||
		(ctx.Err() == nil && attemptCtx.Err() != nil)
	if !timedOut {
		return r
	}
	if err := ctx.Err(); err != nil {
		return result.Err[T](result.FromContext(ctx))
	}
	return result.Err[T](result.NewErrInfo(
		result.CodeTimeout,
		fmt.Sprintf("attempt exceeded %v", timeout.Timeout),
		result.WithStage(o.stage),
		result.WithField("timeout_ms", timeout.Timeout.Milliseconds()),
	))
}
