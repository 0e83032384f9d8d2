package stream

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"

	"github.com/on-the-ground/effectpipe/effects/concurrency"
	"github.com/on-the-ground/effectpipe/effects/result"
)

// ErrInvalidBuffer is the panic value of Gather for a buffer below 1.
var ErrInvalidBuffer = errors.New("stream: maxBuffer must be >= 1")

// Gather drains all streams concurrently and yields their items as they
// arrive. Each source may run at most maxBuffer items ahead of the consumer.
//
// Closing the merged stream closes every source, and the range statement
// completes only after their cleanup has run.
func Gather[T any](streams []Stream[T], maxBuffer int) Stream[T] {
	if maxBuffer < 1 {
		panic(fmt.Errorf("%w: got %d", ErrInvalidBuffer, maxBuffer))
	}
	streams = slices.Clone(streams)

	return func(ctx context.Context) iter.Seq[result.Result[T]] {
		return func(yield func(result.Result[T]) bool) {
			n := len(streams)
			if n == 0 {
				return
			}

			sv := concurrency.NewSupervisor(ctx)
			defer sv.Close()

			type message struct {
				src      int
				res      result.Result[T]
				credited bool
				done     bool
			}
			// credited items, one fault and one done marker per source all fit
			out := make(chan message, n*(maxBuffer+2))
			credits := make([]chan struct{}, n)

			for i, s := range streams {
				credits[i] = make(chan struct{}, maxBuffer)
				sv.Go(func(ctx context.Context) {
					defer func() { out <- message{src: i, done: true} }()
					defer func() {
						if r := recover(); r != nil {
							out <- message{src: i, res: result.Err[T](result.FromPanic(r))}
						}
					}()
					for r := range s.Iter(ctx) {
						select {
						case credits[i] <- struct{}{}:
						case <-ctx.Done():
							return
						}
						out <- message{src: i, res: r, credited: true}
					}
				})
			}

			for remaining := n; remaining > 0; {
				select {
				case <-ctx.Done():
					yield(result.Err[T](result.FromContext(ctx)))
					return
				case m := <-out:
					if m.done {
						remaining--
						continue
					}
					if m.credited {
						<-credits[m.src]
					}
					if !yield(m.res) {
						return
					}
				}
			}
		}
	}
}
