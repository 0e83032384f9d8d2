// Package runtime is the interpreter for plans and streams: it is the one
// place where a description is actually executed.
package runtime

import (
	"context"

	"github.com/google/uuid"

	"github.com/on-the-ground/effectpipe/effects/log"
	"github.com/on-the-ground/effectpipe/effects/plan"
	"github.com/on-the-ground/effectpipe/effects/result"
	"github.com/on-the-ground/effectpipe/effects/stream"
)

type runIDKey struct{}

// RunID returns the id of the Perform/Collect/Drain call ctx belongs to.
func RunID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(runIDKey{}).(string)
	return id, ok
}

func withRunID(ctx context.Context) (context.Context, string) {
	id := uuid.New().String()
	return context.WithValue(ctx, runIDKey{}, id), id
}

// Perform runs p once.
func Perform[T any](ctx context.Context, p plan.Plan[T]) result.Result[T] {
	ctx, id := withRunID(ctx)
	r := p.Run(ctx)
	if r.IsErr() {
		log.Effect(ctx, log.LogDebug, "plan failed", map[string]interface{}{
			"run_id": id,
			"code":   string(r.Err().Code()),
		})
	}
	return r
}

// Collect runs s to exhaustion and returns every item in order.
func Collect[T any](ctx context.Context, s stream.Stream[T]) []result.Result[T] {
	var out []result.Result[T]
	Drain(ctx, s, func(r result.Result[T]) bool {
		out = append(out, r)
		return true
	})
	return out
}

// CollectOk runs s and returns its Ok values, or the first Err item.
// The stream is closed as soon as an Err item is seen.
func CollectOk[T any](ctx context.Context, s stream.Stream[T]) result.Result[[]T] {
	values := []T{}
	var failed *result.ErrInfo
	Drain(ctx, s, func(r result.Result[T]) bool {
		if r.IsErr() {
			failed = r.Err()
			return false
		}
		values = append(values, r.Value())
		return true
	})
	if failed != nil {
		return result.Err[[]T](failed)
	}
	return result.Ok(values)
}

// Drain feeds the items of s to fn until s ends or fn returns false, in
// which case s is closed before Drain returns. It reports how many items
// were seen and how many of them were Err.
func Drain[T any](ctx context.Context, s stream.Stream[T], fn func(result.Result[T]) bool) (seen, failed int) {
	ctx, id := withRunID(ctx)
	for r := range s.Iter(ctx) {
		seen++
		if r.IsErr() {
			failed++
		}
		if !fn(r) {
			break
		}
	}
	log.Effect(ctx, log.LogDebug, "stream drained", map[string]interface{}{
		"run_id": id,
		"seen":   seen,
		"failed": failed,
	})
	return seen, failed
}
