package result

import "fmt"

// Result holds exactly one of a value (Ok) or an *ErrInfo (Err).
type Result[T any] struct {
	value T
	err   *ErrInfo
}

func Ok[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Err builds a failed result. A nil e is replaced with an UNEXPECTED ErrInfo
// so that an Err result never looks like Ok.
func Err[T any](e *ErrInfo) Result[T] {
	if e == nil {
		e = NewErrInfo(CodeUnexpected, "nil ErrInfo")
	}
	return Result[T]{err: e}
}

// From lifts a Go (value, error) pair.
func From[T any](v T, err error) Result[T] {
	if err != nil {
		return Err[T](FromError(err))
	}
	return Ok(v)
}

func (r Result[T]) IsOk() bool  { return r.err == nil }
func (r Result[T]) IsErr() bool { return r.err != nil }

// Value returns the Ok value, or the zero value for Err.
func (r Result[T]) Value() T { return r.value }

// Err returns the ErrInfo, or nil for Ok.
func (r Result[T]) Err() *ErrInfo { return r.err }

// Get returns the result as a Go (value, error) pair.
func (r Result[T]) Get() (T, error) {
	if r.err != nil {
		return r.value, r.err
	}
	return r.value, nil
}

func (r Result[T]) UnwrapOr(def T) T {
	if r.err != nil {
		return def
	}
	return r.value
}

func (r Result[T]) String() string {
	if r.err != nil {
		return fmt.Sprintf("Err(%v)", r.err)
	}
	return fmt.Sprintf("Ok(%v)", r.value)
}

func Map[T, U any](r Result[T], f func(T) U) Result[U] {
	if r.err != nil {
		return Err[U](r.err)
	}
	return Ok(f(r.value))
}

func Bind[T, U any](r Result[T], f func(T) Result[U]) Result[U] {
	if r.err != nil {
		return Err[U](r.err)
	}
	return f(r.value)
}

func MapErr[T any](r Result[T], f func(*ErrInfo) *ErrInfo) Result[T] {
	if r.err == nil {
		return r
	}
	return Err[T](f(r.err))
}

// Recover gives an Err result a chance to become Ok.
func Recover[T any](r Result[T], f func(*ErrInfo) Result[T]) Result[T] {
	if r.err == nil {
		return r
	}
	return f(r.err)
}

// Sequence returns Ok of all values, or the first Err by position.
func Sequence[T any](rs []Result[T]) Result[[]T] {
	out := make([]T, 0, len(rs))
	for _, r := range rs {
		if r.err != nil {
			return Err[[]T](r.err)
		}
		out = append(out, r.value)
	}
	return Ok(out)
}

// Partition splits results into values and errors, preserving order.
func Partition[T any](rs []Result[T]) ([]T, []*ErrInfo) {
	var (
		oks  []T
		errs []*ErrInfo
	)
	for _, r := range rs {
		if r.err != nil {
			errs = append(errs, r.err)
			continue
		}
		oks = append(oks, r.value)
	}
	return oks, errs
}

func ToOption[T any](r Result[T]) Option[T] {
	if r.err != nil {
		return None[T]()
	}
	return Some(r.value)
}
