// Package ratelimit paces streams with a token bucket.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"golang.org/x/time/rate"

	"github.com/on-the-ground/effectpipe/effects/clock"
	"github.com/on-the-ground/effectpipe/effects/result"
	"github.com/on-the-ground/effectpipe/effects/stream"
)

var ErrInvalidPolicy = errors.New("ratelimit: invalid policy")

type Policy struct {
	TokensPerSecond float64
	BurstTokens     int
}

func (p Policy) Validate() error {
	switch {
	case p.TokensPerSecond <= 0:
		return fmt.Errorf("%w: tokens per second %v <= 0", ErrInvalidPolicy, p.TokensPerSecond)
	case p.BurstTokens < 1:
		return fmt.Errorf("%w: burst %d < 1", ErrInvalidPolicy, p.BurstTokens)
	}
	return nil
}

// RateLimited yields the items of s no faster than the bucket allows: it
// starts full with BurstTokens and refills at TokensPerSecond. Every item,
// Ok or Err, costs one token. Time is read and waited on only through env,
// so any one-second window holds at most TokensPerSecond+BurstTokens items.
//
// Each run starts with a fresh, full bucket.
func RateLimited[T any](s stream.Stream[T], policy Policy, env clock.Env) stream.Stream[T] {
	if err := policy.Validate(); err != nil {
		panic(err)
	}
	env = env.OrDefault()

	return func(ctx context.Context) iter.Seq[result.Result[T]] {
		return func(yield func(result.Result[T]) bool) {
			limiter := rate.NewLimiter(rate.Limit(policy.TokensPerSecond), policy.BurstTokens)
			for r := range s.Iter(ctx) {
				now := env.Clock.Now()
				reservation := limiter.ReserveN(now, 1)
				if delay := reservation.DelayFrom(now); delay > 0 {
					if err := env.Sleeper.Sleep(ctx, delay); err != nil {
						reservation.CancelAt(env.Clock.Now())
						yield(result.Err[T](result.FromContext(ctx)))
						return
					}
				}
				if !yield(r) {
					return
				}
			}
		}
	}
}
