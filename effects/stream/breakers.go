package stream

import (
	"context"
	"iter"

	"github.com/on-the-ground/effectpipe/effects/result"
)

type tally struct {
	ok, err  int
	lastCode result.Code
}

func (t *tally) breakInfo(msg string, opts ...result.ErrOption) *result.ErrInfo {
	opts = append([]result.ErrOption{
		result.WithField("n_ok", t.ok),
		result.WithField("n_err", t.err),
		result.WithField("total", t.ok+t.err),
		result.WithField("last_code", string(t.lastCode)),
	}, opts...)
	return result.NewErrInfo(result.CodeBreak, msg, opts...)
}

// ShortCircuitEmit forwards items up to and including the first Err, then
// yields a BREAK Err summarising what was seen, and closes s.
func ShortCircuitEmit[T any](s Stream[T]) Stream[T] {
	return func(ctx context.Context) iter.Seq[result.Result[T]] {
		return func(yield func(result.Result[T]) bool) {
			var t tally
			for r := range s.Iter(ctx) {
				if r.IsOk() {
					t.ok++
					if !yield(r) {
						return
					}
					continue
				}
				t.err++
				t.lastCode = r.Err().Code()
				if !yield(r) {
					return
				}
				yield(result.Err[T](t.breakInfo("short circuit on error")))
				return
			}
		}
	}
}

// ShortCircuitTruncate forwards items up to and including the first Err and
// closes s.
func ShortCircuitTruncate[T any](s Stream[T]) Stream[T] {
	return func(ctx context.Context) iter.Seq[result.Result[T]] {
		return func(yield func(result.Result[T]) bool) {
			for r := range s.Iter(ctx) {
				if !yield(r) || r.IsErr() {
					return
				}
			}
		}
	}
}

// CountBreaker forwards items until more than maxErrs Err items have been
// seen. The offending Err is forwarded, followed by a BREAK Err, and s is
// closed.
func CountBreaker[T any](s Stream[T], maxErrs int) Stream[T] {
	return func(ctx context.Context) iter.Seq[result.Result[T]] {
		return func(yield func(result.Result[T]) bool) {
			var t tally
			for r := range s.Iter(ctx) {
				if r.IsOk() {
					t.ok++
				} else {
					t.err++
					t.lastCode = r.Err().Code()
				}
				if !yield(r) {
					return
				}
				if t.err > maxErrs {
					yield(result.Err[T](t.breakInfo("error budget exceeded",
						result.WithField("threshold.max_errs", maxErrs))))
					return
				}
			}
		}
	}
}
