// Package fairness merges streams with weighted fair scheduling.
package fairness

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"

	"github.com/on-the-ground/effectpipe/effects/concurrency"
	"github.com/on-the-ground/effectpipe/effects/result"
	"github.com/on-the-ground/effectpipe/effects/stream"
)

var ErrInvalidPolicy = errors.New("fairness: invalid policy")

type Policy struct {
	// Weights maps a source index to its share. Missing sources weigh 1.
	Weights map[int]int
	// MaxBufferPerStream bounds how far each source runs ahead of the merge.
	MaxBufferPerStream int
}

func (p Policy) Validate() error {
	if p.MaxBufferPerStream < 1 {
		return fmt.Errorf("%w: max buffer per stream %d < 1", ErrInvalidPolicy, p.MaxBufferPerStream)
	}
	for idx, w := range p.Weights {
		if w < 1 {
			return fmt.Errorf("%w: weight %d for source %d < 1", ErrInvalidPolicy, w, idx)
		}
	}
	return nil
}

func (p Policy) weight(idx int) int {
	if w, ok := p.Weights[idx]; ok {
		return w
	}
	return 1
}

// scheduler picks the next source by smallest virtual finish time
// (served+1)/weight, ties going to the lower index.
type scheduler struct {
	weights []int
	served  []int
}

func newScheduler(policy Policy, n int) *scheduler {
	sc := &scheduler{weights: make([]int, n), served: make([]int, n)}
	for i := range n {
		sc.weights[i] = policy.weight(i)
	}
	return sc
}

// pick returns the ready source to serve next, or -1 if none is ready.
func (sc *scheduler) pick(ready []bool) int {
	best := -1
	for i, ok := range ready {
		if !ok {
			continue
		}
		// (served_i+1)/w_i < (served_best+1)/w_best
		if best < 0 || (sc.served[i]+1)*sc.weights[best] < (sc.served[best]+1)*sc.weights[i] {
			best = i
		}
	}
	return best
}

func (sc *scheduler) serve(i int) {
	sc.served[i]++
}

// FairMerge interleaves streams so that, while sources stay ready, each
// source's emitted count divided by its weight stays within one of every
// other's. A source with nothing buffered never holds back the others.
//
// Each source holds at most MaxBufferPerStream items the merge has not
// emitted yet, its head included. Closing the merged stream closes every
// source before the range statement completes.
func FairMerge[T any](streams []stream.Stream[T], policy Policy) stream.Stream[T] {
	if err := policy.Validate(); err != nil {
		panic(err)
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

			chs := make([]chan result.Result[T], n)
			// a slot is held from send until the merge emits the item
			slots := make([]chan struct{}, n)
			notify := make(chan struct{}, 1)
			ping := func() {
				select {
				case notify <- struct{}{}:
				default:
				}
			}
			for i, s := range streams {
				ch := make(chan result.Result[T], policy.MaxBufferPerStream)
				slot := make(chan struct{}, policy.MaxBufferPerStream)
				chs[i], slots[i] = ch, slot
				sv.Go(func(ctx context.Context) {
					defer ping()
					defer close(ch)
					for r := range s.Iter(ctx) {
						select {
						case slot <- struct{}{}:
						case <-ctx.Done():
							return
						}
						// never blocks: ch has room for every held slot
						ch <- r
						ping()
					}
				})
			}

			var (
				sc        = newScheduler(policy, n)
				heads     = make([]result.Result[T], n)
				hasHead   = make([]bool, n)
				exhausted = make([]bool, n)
			)
			for {
				live := 0
				for i := range n {
					if !hasHead[i] && !exhausted[i] {
						select {
						case r, ok := <-chs[i]:
							if ok {
								heads[i], hasHead[i] = r, true
							} else {
								exhausted[i] = true
							}
						default:
						}
					}
					if hasHead[i] || !exhausted[i] {
						live++
					}
				}

				if pick := sc.pick(hasHead); pick >= 0 {
					hasHead[pick] = false
					sc.serve(pick)
					<-slots[pick]
					if !yield(heads[pick]) {
						return
					}
					continue
				}
				if live == 0 {
					return
				}

				select {
				case <-notify:
				case <-ctx.Done():
					yield(result.Err[T](result.FromContext(ctx)))
					return
				}
			}
		}
	}
}
