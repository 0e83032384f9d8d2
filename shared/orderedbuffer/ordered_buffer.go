package orderedbuffer

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrFullBuffer = errors.New("buffer is full")
	ErrStaleKey   = errors.New("key already released or buffered")
)

// KeyFunc returns the sequence number of a value.
type KeyFunc[T any] func(T) int

// OrderedBoundedBuffer is a reorder buffer: values arrive with sequence
// numbers in any order and leave strictly in sequence, starting from 0.
// It holds at most maxBufLen values that are not yet releasable.
//
// Not safe for concurrent use.
type OrderedBoundedBuffer[T any] struct {
	data      []T
	maxBufLen int
	key       KeyFunc[T]
	next      int
}

func NewOrderedBoundedBuffer[T any](maxBufLen int, key KeyFunc[T]) *OrderedBoundedBuffer[T] {
	if maxBufLen < 1 {
		panic("orderedbuffer: maxBufLen must be >= 1")
	}
	return &OrderedBoundedBuffer[T]{
		data:      make([]T, 0, maxBufLen),
		maxBufLen: maxBufLen,
		key:       key,
	}
}

// Insert places val by binary search on its key.
func (b *OrderedBoundedBuffer[T]) Insert(val T) error {
	k := b.key(val)
	if k < b.next {
		return fmt.Errorf("%w: %d", ErrStaleKey, k)
	}
	if len(b.data) >= b.maxBufLen {
		return ErrFullBuffer
	}

	idx := sort.Search(len(b.data), func(i int) bool {
		return b.key(b.data[i]) >= k
	})
	if idx < len(b.data) && b.key(b.data[idx]) == k {
		return fmt.Errorf("%w: %d", ErrStaleKey, k)
	}

	b.data = append(b.data, val)
	copy(b.data[idx+1:], b.data[idx:])
	b.data[idx] = val
	return nil
}

// PopReady releases the head if it carries the next sequence number.
func (b *OrderedBoundedBuffer[T]) PopReady() (T, bool) {
	var zero T
	if len(b.data) == 0 || b.key(b.data[0]) != b.next {
		return zero, false
	}
	head := b.data[0]
	b.data[0] = zero
	b.data = b.data[1:]
	b.next++
	return head, true
}

// Next is the sequence number the buffer releases next.
func (b *OrderedBoundedBuffer[T]) Next() int { return b.next }

func (b *OrderedBoundedBuffer[T]) Len() int { return len(b.data) }
