// Package backpressure maps streams through plans with bounded concurrency.
package backpressure

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/on-the-ground/effectpipe/effects/concurrency"
	"github.com/on-the-ground/effectpipe/effects/plan"
	"github.com/on-the-ground/effectpipe/effects/result"
	"github.com/on-the-ground/effectpipe/effects/stream"
	"github.com/on-the-ground/effectpipe/shared/orderedbuffer"
)

var ErrInvalidPolicy = errors.New("backpressure: invalid policy")

type Policy struct {
	MaxConcurrent int
	// Ordered emits results in input order instead of completion order.
	Ordered bool
}

func (p Policy) Validate() error {
	if p.MaxConcurrent < 1 {
		return fmt.Errorf("%w: max concurrent %d < 1", ErrInvalidPolicy, p.MaxConcurrent)
	}
	return nil
}

type indexed[T any] struct {
	idx int
	res result.Result[T]
}

// BoundedMap runs f on every Ok item of s with at most MaxConcurrent plans
// in flight. Err items are forwarded without calling f.
//
// In ordered mode at most MaxConcurrent items are admitted but not yet
// emitted, counting both running plans and finished results waiting for an
// earlier one. Closing the result stream cancels running plans and closes s;
// the range statement completes after all of them have returned.
func BoundedMap[T, U any](s stream.Stream[T], f func(T) plan.Plan[U], policy Policy) stream.Stream[U] {
	if err := policy.Validate(); err != nil {
		panic(err)
	}
	maxConcurrent := policy.MaxConcurrent

	return func(ctx context.Context) iter.Seq[result.Result[U]] {
		return func(yield func(result.Result[U]) bool) {
			sv := concurrency.NewSupervisor(ctx)
			defer sv.Close()

			in := make(chan indexed[T])
			sv.Go(func(ctx context.Context) {
				defer close(in)
				idx := 0
				for r := range s.Iter(ctx) {
					select {
					case in <- indexed[T]{idx: idx, res: r}:
						idx++
					case <-ctx.Done():
						return
					}
				}
			})

			done := make(chan indexed[U], maxConcurrent)
			pending := orderedbuffer.NewOrderedBoundedBuffer(maxConcurrent, func(i indexed[U]) int { return i.idx })

			inFlight, upstreamDone := 0, false
			for !upstreamDone || inFlight > 0 || pending.Len() > 0 {
				var admit <-chan indexed[T]
				if !upstreamDone && inFlight+pending.Len() < maxConcurrent {
					admit = in
				}

				select {
				case <-ctx.Done():
					yield(result.Err[U](result.FromContext(ctx)))
					return

				case item, ok := <-admit:
					if !ok {
						upstreamDone = true
						continue
					}
					if item.res.IsErr() {
						out := indexed[U]{idx: item.idx, res: result.Err[U](item.res.Err())}
						if !policy.Ordered {
							if !yield(out.res) {
								return
							}
							continue
						}
						mustInsert(pending, out)
						break
					}
					inFlight++
					v := item.res.Value()
					p := plan.Defer(func() plan.Plan[U] { return f(v) })
					sv.Go(func(ctx context.Context) {
						done <- indexed[U]{idx: item.idx, res: p.Run(ctx)}
					})

				case out := <-done:
					inFlight--
					if !policy.Ordered {
						if !yield(out.res) {
							return
						}
						continue
					}
					mustInsert(pending, out)
				}

				for {
					out, ok := pending.PopReady()
					if !ok {
						break
					}
					if !yield(out.res) {
						return
					}
				}
			}
		}
	}
}

// mustInsert panics if admission control let the reorder window overflow.
func mustInsert[U any](pending *orderedbuffer.OrderedBoundedBuffer[indexed[U]], out indexed[U]) {
	if err := pending.Insert(out); err != nil {
		panic(fmt.Errorf("backpressure: reorder window: %w", err))
	}
}
