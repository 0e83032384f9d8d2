// Package stream describes multi-item effects.
//
// A Stream is a deferred, replayable producer of Results. Invoking it with a
// context yields a fresh iterator; ranging over that iterator runs the
// producer. Breaking out of the range loop closes the stream: the iterator
// releases its resources and joins its goroutines before the loop statement
// completes.
package stream

import (
	"context"
	"iter"
	"slices"

	"github.com/on-the-ground/effectpipe/effects/log"
	"github.com/on-the-ground/effectpipe/effects/plan"
	"github.com/on-the-ground/effectpipe/effects/result"
)

// Stream is a replayable effect producing many Results.
type Stream[T any] func(ctx context.Context) iter.Seq[result.Result[T]]

// Iter returns a fresh iterator over s. A nil stream is empty.
func (s Stream[T]) Iter(ctx context.Context) iter.Seq[result.Result[T]] {
	if s == nil {
		return func(func(result.Result[T]) bool) {}
	}
	return s(ctx)
}

func Empty[T any]() Stream[T] {
	return FromResults[T](nil)
}

// FromList yields xs as Ok items. The slice is copied.
func FromList[T any](xs []T) Stream[T] {
	xs = slices.Clone(xs)
	return func(context.Context) iter.Seq[result.Result[T]] {
		return func(yield func(result.Result[T]) bool) {
			for _, x := range xs {
				if !yield(result.Ok(x)) {
					return
				}
			}
		}
	}
}

// FromResults yields rs as is. The slice is copied.
func FromResults[T any](rs []result.Result[T]) Stream[T] {
	rs = slices.Clone(rs)
	return func(context.Context) iter.Seq[result.Result[T]] {
		return slices.Values(rs)
	}
}

// Return is the singleton stream.
func Return[T any](v T) Stream[T] {
	return FromResults([]result.Result[T]{result.Ok(v)})
}

func Fail[T any](e *result.ErrInfo) Stream[T] {
	return FromResults([]result.Result[T]{result.Err[T](e)})
}

// FromPlan yields the single outcome of p.
func FromPlan[T any](p plan.Plan[T]) Stream[T] {
	return func(ctx context.Context) iter.Seq[result.Result[T]] {
		return func(yield func(result.Result[T]) bool) {
			yield(p.Run(ctx))
		}
	}
}

// FromSlicePlan yields every value of a plan producing a slice, or the
// plan's error as a single Err item.
func FromSlicePlan[T any](p plan.Plan[[]T]) Stream[T] {
	return func(ctx context.Context) iter.Seq[result.Result[T]] {
		return func(yield func(result.Result[T]) bool) {
			r := p.Run(ctx)
			if r.IsErr() {
				yield(result.Err[T](r.Err()))
				return
			}
			for _, v := range r.Value() {
				if !yield(result.Ok(v)) {
					return
				}
			}
		}
	}
}

// Map applies f to Ok items. Err items pass through; a panic in f becomes an
// Err(UNEXPECTED) item.
func Map[T, U any](s Stream[T], f func(T) U) Stream[U] {
	return func(ctx context.Context) iter.Seq[result.Result[U]] {
		return func(yield func(result.Result[U]) bool) {
			for r := range s.Iter(ctx) {
				var out result.Result[U]
				if r.IsErr() {
					out = result.Err[U](r.Err())
				} else {
					out = call(f, r.Value())
				}
				if !yield(out) {
					return
				}
			}
		}
	}
}

// AndThen replaces every Ok item with the stream f builds from it, in
// arrival order. Err items pass through without calling f.
func AndThen[T, U any](s Stream[T], f func(T) Stream[U]) Stream[U] {
	return func(ctx context.Context) iter.Seq[result.Result[U]] {
		return func(yield func(result.Result[U]) bool) {
			for r := range s.Iter(ctx) {
				if r.IsErr() {
					if !yield(result.Err[U](r.Err())) {
						return
					}
					continue
				}
				inner := call(f, r.Value())
				if inner.IsErr() {
					if !yield(result.Err[U](inner.Err())) {
						return
					}
					continue
				}
				for ir := range inner.Value().Iter(ctx) {
					if !yield(ir) {
						return
					}
				}
			}
		}
	}
}

// MapPlan runs the plan f builds for each Ok item, one at a time.
func MapPlan[T, U any](s Stream[T], f func(T) plan.Plan[U]) Stream[U] {
	return AndThen(s, func(v T) Stream[U] {
		return FromPlan(f(v))
	})
}

// Filter keeps Ok items satisfying pred. Err items pass through.
func Filter[T any](s Stream[T], pred func(T) bool) Stream[T] {
	return func(ctx context.Context) iter.Seq[result.Result[T]] {
		return func(yield func(result.Result[T]) bool) {
			for r := range s.Iter(ctx) {
				if r.IsOk() && !pred(r.Value()) {
					continue
				}
				if !yield(r) {
					return
				}
			}
		}
	}
}

// Take yields the first n items and then closes s.
func Take[T any](s Stream[T], n int) Stream[T] {
	return func(ctx context.Context) iter.Seq[result.Result[T]] {
		return func(yield func(result.Result[T]) bool) {
			if n <= 0 {
				return
			}
			seen := 0
			for r := range s.Iter(ctx) {
				if !yield(r) {
					return
				}
				seen++
				if seen >= n {
					return
				}
			}
		}
	}
}

// Using scopes a resource to one run of a stream.
//
// acquire runs when the consumer first pulls; release runs exactly once when
// the stream is exhausted, closed early, or unwinds from a panic. A failing
// acquire yields a single Err item. Release errors are logged and never
// replace the stream's items.
func Using[R, T any](
	acquire func(context.Context) (R, func() error, error),
	use func(R) Stream[T],
) Stream[T] {
	return func(ctx context.Context) iter.Seq[result.Result[T]] {
		return func(yield func(result.Result[T]) bool) {
			res, release, err := acquire(ctx)
			if err != nil {
				yield(result.Err[T](result.FromError(err)))
				return
			}
			defer func() {
				if release == nil {
					return
				}
				if err := release(); err != nil {
					log.Effect(ctx, log.LogWarn, "failed to release stream resource", map[string]interface{}{
						"error": err.Error(),
					})
				}
			}()
			for r := range use(res).Iter(ctx) {
				if !yield(r) {
					return
				}
			}
		}
	}
}

func call[T, U any](f func(T) U, v T) (res result.Result[U]) {
	defer func() {
		if r := recover(); r != nil {
			res = result.Err[U](result.FromPanic(r))
		}
	}()
	return result.Ok(f(v))
}
