// Package batch groups stream items by count and time.
package batch

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/on-the-ground/effectpipe/effects/clock"
	"github.com/on-the-ground/effectpipe/effects/concurrency"
	"github.com/on-the-ground/effectpipe/effects/result"
	"github.com/on-the-ground/effectpipe/effects/stream"
)

var ErrInvalidPolicy = errors.New("batch: invalid policy")

type Policy struct {
	MaxUnits int
	// MaxDelay bounds how long the first item of a batch waits for company.
	MaxDelay time.Duration
}

func (p Policy) Validate() error {
	switch {
	case p.MaxUnits < 1:
		return fmt.Errorf("%w: max units %d < 1", ErrInvalidPolicy, p.MaxUnits)
	case p.MaxDelay < 0:
		return fmt.Errorf("%w: max delay %v < 0", ErrInvalidPolicy, p.MaxDelay)
	}
	return nil
}

// Batch is a run of consecutive Ok items.
type Batch[T any] struct {
	Items []T
	// Window spans the arrival of the first and the last item.
	Window clock.TimeSpan
}

func (b Batch[T]) TimeSpan() clock.TimeSpan { return b.Window }

func (b Batch[T]) Len() int { return len(b.Items) }

var _ clock.TimeBounded = Batch[int]{}

// Chunked groups the Ok items of s into batches of at most MaxUnits, flushing
// early once MaxDelay has passed on env's clock since the batch's first item.
// Err items flush the pending batch and are forwarded in position, so
// concatenating the batches gives back the Ok items in order.
func Chunked[T any](s stream.Stream[T], policy Policy, env clock.Env) stream.Stream[Batch[T]] {
	if err := policy.Validate(); err != nil {
		panic(err)
	}
	env = env.OrDefault()

	return func(ctx context.Context) iter.Seq[result.Result[Batch[T]]] {
		return func(yield func(result.Result[Batch[T]]) bool) {
			sv := concurrency.NewSupervisor(ctx)
			defer sv.Close()

			in := make(chan result.Result[T])
			sv.Go(func(ctx context.Context) {
				defer close(in)
				for r := range s.Iter(ctx) {
					select {
					case in <- r:
					case <-ctx.Done():
						return
					}
				}
			})

			var (
				items       []T
				first, last time.Time
				timer       clockwork.Timer
				expired     <-chan time.Time
			)
			flush := func() bool {
				if len(items) == 0 {
					return true
				}
				if timer != nil {
					timer.Stop()
					timer, expired = nil, nil
				}
				b := Batch[T]{Items: items, Window: clock.Span(first, last)}
				items = nil
				return yield(result.Ok(b))
			}
			defer func() {
				if timer != nil {
					timer.Stop()
				}
			}()

			for {
				select {
				case <-ctx.Done():
					yield(result.Err[Batch[T]](result.FromContext(ctx)))
					return

				case <-expired:
					if !flush() {
						return
					}

				case r, ok := <-in:
					if !ok {
						flush()
						return
					}
					if r.IsErr() {
						if !flush() || !yield(result.Err[Batch[T]](r.Err())) {
							return
						}
						continue
					}

					now := env.Clock.Now()
					if len(items) > 0 && now.Sub(first) >= policy.MaxDelay {
						if !flush() {
							return
						}
					}
					if len(items) == 0 {
						first = now
						if policy.MaxDelay > 0 {
							timer = env.Clock.NewTimer(policy.MaxDelay)
							expired = timer.Chan()
						}
					}
					items = append(items, r.Value())
					last = now
					if len(items) >= policy.MaxUnits || policy.MaxDelay == 0 {
						if !flush() {
							return
						}
					}
				}
			}
		}
	}
}
