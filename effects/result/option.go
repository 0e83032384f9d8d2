package result

import "fmt"

// Option holds a value (Some) or nothing (None).
type Option[T any] struct {
	value T
	ok    bool
}

func Some[T any](v T) Option[T] { return Option[T]{value: v, ok: true} }

func None[T any]() Option[T] { return Option[T]{} }

func (o Option[T]) IsSome() bool { return o.ok }
func (o Option[T]) IsNone() bool { return !o.ok }

func (o Option[T]) Get() (T, bool) { return o.value, o.ok }

func (o Option[T]) UnwrapOr(def T) T {
	if !o.ok {
		return def
	}
	return o.value
}

func (o Option[T]) UnwrapOrElse(f func() T) T {
	if !o.ok {
		return f()
	}
	return o.value
}

// OkOr converts Some to Ok and None to Err(e).
func (o Option[T]) OkOr(e *ErrInfo) Result[T] {
	if !o.ok {
		return Err[T](e)
	}
	return Ok(o.value)
}

func (o Option[T]) String() string {
	if !o.ok {
		return "None"
	}
	return fmt.Sprintf("Some(%v)", o.value)
}

func MapOption[T, U any](o Option[T], f func(T) U) Option[U] {
	if !o.ok {
		return None[U]()
	}
	return Some(f(o.value))
}

func BindOption[T, U any](o Option[T], f func(T) Option[U]) Option[U] {
	if !o.ok {
		return None[U]()
	}
	return f(o.value)
}
