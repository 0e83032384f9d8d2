// Package plan describes single-result effects.
//
// A Plan is a deferred computation: building one performs nothing, and every
// invocation is a fresh, independent execution. Failures are returned as Err
// results; panics raised while running a plan are converted to
// Err(UNEXPECTED) by Run.
package plan

import (
	"context"

	"github.com/on-the-ground/effectpipe/effects/result"
)

// Plan is a replayable effect producing one Result.
type Plan[T any] func(ctx context.Context) result.Result[T]

// Run invokes p, converting a panic into Err(UNEXPECTED).
func (p Plan[T]) Run(ctx context.Context) (res result.Result[T]) {
	if p == nil {
		return result.Err[T](result.NewErrInfo(result.CodeUnexpected, "nil plan"))
	}
	defer func() {
		if r := recover(); r != nil {
			res = result.Err[T](result.FromPanic(r))
		}
	}()
	return p(ctx)
}

func Pure[T any](v T) Plan[T] {
	return func(context.Context) result.Result[T] {
		return result.Ok(v)
	}
}

func FromResult[T any](r result.Result[T]) Plan[T] {
	return func(context.Context) result.Result[T] {
		return r
	}
}

func Fail[T any](e *result.ErrInfo) Plan[T] {
	return FromResult(result.Err[T](e))
}

// Bind sequences p and the plan f builds from its value.
// f is not called when p fails.
func Bind[T, U any](p Plan[T], f func(T) Plan[U]) Plan[U] {
	return func(ctx context.Context) result.Result[U] {
		r := p.Run(ctx)
		if r.IsErr() {
			return result.Err[U](r.Err())
		}
		return f(r.Value()).Run(ctx)
	}
}

func Map[T, U any](p Plan[T], f func(T) U) Plan[U] {
	return Bind(p, func(v T) Plan[U] {
		return Pure(f(v))
	})
}

// MapErr rewrites the error of a failed plan, e.g. to tag it with a stage.
func MapErr[T any](p Plan[T], f func(*result.ErrInfo) *result.ErrInfo) Plan[T] {
	return func(ctx context.Context) result.Result[T] {
		return result.MapErr(p.Run(ctx), f)
	}
}

// Lift turns a synchronous Result-returning function into a plan factory.
// A panic in fn surfaces as Err(UNEXPECTED).
func Lift[T, U any](fn func(T) result.Result[U]) func(T) Plan[U] {
	return func(v T) Plan[U] {
		lifted := Plan[U](func(context.Context) result.Result[U] {
			return fn(v)
		})
		return lifted.Run
	}
}

// FromFunc adapts a Go-style capability. The error is classified with
// result.FromError.
func FromFunc[T any](fn func(context.Context) (T, error)) Plan[T] {
	return func(ctx context.Context) result.Result[T] {
		return result.From(fn(ctx))
	}
}

// Defer calls factory once per invocation. A panicking factory yields
// Err(UNEXPECTED) like a panicking plan.
func Defer[T any](factory func() Plan[T]) Plan[T] {
	deferred := Plan[T](func(ctx context.Context) result.Result[T] {
		return factory()(ctx)
	})
	return deferred.Run
}
