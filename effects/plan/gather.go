package plan

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/on-the-ground/effectpipe/effects/concurrency"
	"github.com/on-the-ground/effectpipe/effects/result"
)

// ErrInvalidConcurrency is the panic value of Gather for a limit below 1.
var ErrInvalidConcurrency = errors.New("plan: concurrency must be >= 1")

// Gather runs plans with at most limit in flight and collects their values in
// input order.
//
// The first failure by input index wins: once the smallest failing index is
// known and every plan before it has succeeded, the remaining plans are
// cancelled, Gather waits for them to return, and that failure is returned.
// Plans after a known failure are never started.
func Gather[T any](plans []Plan[T], limit int) Plan[[]T] {
	if limit < 1 {
		panic(fmt.Errorf("%w: got %d", ErrInvalidConcurrency, limit))
	}
	plans = slices.Clone(plans)

	return func(ctx context.Context) result.Result[[]T] {
		n := len(plans)
		if n == 0 {
			return result.Ok([]T{})
		}

		sv := concurrency.NewSupervisor(ctx)
		defer sv.Close()

		type outcome struct {
			idx int
			res result.Result[T]
		}
		// sized so a finishing plan never blocks after we stop listening
		done := make(chan outcome, n)
		results := make([]result.Result[T], n)
		resolved := make([]bool, n)

		launched, running, frontier, failAt := 0, 0, 0, n
		launch := func() {
			for running < limit && launched < failAt {
				idx, p := launched, plans[launched]
				sv.Go(func(ctx context.Context) {
					done <- outcome{idx: idx, res: p.Run(ctx)}
				})
				launched++
				running++
			}
		}

		launch()
		for frontier < n {
			select {
			case <-ctx.Done():
				return result.Err[[]T](result.FromContext(ctx))
			case o := <-done:
				running--
				results[o.idx] = o.res
				resolved[o.idx] = true
				if o.res.IsErr() && o.idx < failAt {
					failAt = o.idx
				}
				for frontier < n && resolved[frontier] {
					if results[frontier].IsErr() {
						return result.Err[[]T](results[frontier].Err())
					}
					frontier++
				}
				launch()
			}
		}

		values := make([]T, n)
		for i, r := range results {
			values[i] = r.Value()
		}
		return result.Ok(values)
	}
}
