// Package pool offloads synchronous work onto a bounded set of worker
// goroutines registered as an effect handler.
package pool

import (
	"context"
	"strconv"
	"sync/atomic"

	"github.com/on-the-ground/effectpipe/effects"
	effectmodel "github.com/on-the-ground/effectpipe/effects/model"
	"github.com/on-the-ground/effectpipe/effects/plan"
	"github.com/on-the-ground/effectpipe/effects/result"
	"github.com/on-the-ground/effectpipe/effects/stream"
)

// Payload is one unit of offloaded work. Payloads with the same Key run on
// the same worker, in submission order.
type Payload struct {
	Key string
	Fn  func() any
}

func (p Payload) PartitionKey() string {
	return p.Key
}

// WithEffectHandler registers config.NumWorkers workers, each with a queue of
// config.BufferSize payloads. A panicking payload fails only its own call.
func WithEffectHandler(
	ctx context.Context,
	config effectmodel.EffectScopeConfig,
) (context.Context, func() context.Context) {
	return effects.WithResumablePartitionableEffectHandler(
		ctx,
		config,
		effectmodel.EffectPool,
		func(_ context.Context, p Payload) (v any, err error) {
			defer func() {
				if r := recover(); r != nil {
					err = result.FromPanic(r)
				}
			}()
			return p.Fn(), nil
		},
	)
}

// Submit runs fn on the pool and waits for its value. Work whose caller has
// already given up by the time a worker reaches it is skipped.
func Submit[T any](ctx context.Context, key string, fn func() T) result.Result[T] {
	skipped := &atomic.Bool{}
	payload := Payload{
		Key: key,
		Fn: func() any {
			if ctx.Err() != nil {
				skipped.Store(true)
				return nil
			}
			return fn()
		},
	}

	select {
	case res := <-effects.PerformResumableEffect[Payload, any](ctx, effectmodel.EffectPool, payload):
		if res.Err != nil {
			return result.Err[T](result.FromError(res.Err))
		}
		if skipped.Load() {
			return result.Err[T](result.FromContext(ctx))
		}
		v, ok := res.Value.(T)
		if !ok {
			return result.Err[T](result.NewErrInfo(result.CodeUnexpected, "pool returned unexpected type"))
		}
		return result.Ok(v)
	case <-ctx.Done():
		return result.Err[T](result.FromContext(ctx))
	}
}

// Lift is the pool-backed variant of plan.Lift: each plan it builds runs fn
// on a worker chosen by key. A nil key spreads calls round-robin by hash.
// Faults in fn surface as Err(UNEXPECTED), as does a missing pool handler.
func Lift[T, U any](fn func(T) result.Result[U], key func(T) string) func(T) plan.Plan[U] {
	var seq atomic.Uint64
	if key == nil {
		key = func(T) string { return strconv.FormatUint(seq.Add(1), 10) }
	}
	return func(v T) plan.Plan[U] {
		return func(ctx context.Context) result.Result[U] {
			r := Submit(ctx, key(v), func() result.Result[U] { return fn(v) })
			if r.IsErr() {
				return result.Err[U](r.Err())
			}
			return r.Value()
		}
	}
}

// LiftStream offloads a function producing many values and streams them.
func LiftStream[T, U any](fn func(T) result.Result[[]U], key func(T) string) func(T) stream.Stream[U] {
	lifted := Lift(fn, key)
	return func(v T) stream.Stream[U] {
		return stream.FromSlicePlan(lifted(v))
	}
}
