// Package pure memoizes pure functions. Arguments must be comparable or
// implement fmt.Stringer; a Stringer is keyed by its String() value.
package pure

import (
	"fmt"
)

type table[O any] struct {
	trie *Trie[O]
}

func newTable[O any](maxTableSize uint32) table[O] {
	return table[O]{trie: NewTrie[O](maxTableSize)}
}

// get returns the cached value for args, computing and storing it on a miss.
// Concurrent misses on the same args may both compute.
func (t table[O]) get(compute func() O, args ...any) O {
	keys := make([]Key, len(args))
	for i, arg := range args {
		if s, ok := arg.(fmt.Stringer); ok {
			keys[i] = s.String()
		} else {
			keys[i] = arg
		}
	}
	if v, ok := t.trie.Load(keys); ok {
		return v
	}
	v := compute()
	t.trie.Store(keys, v)
	return v
}

func TableizeI1O1[I1, O1 any](fn func(I1) O1, maxTableSize uint32) func(I1) O1 {
	t := newTable[O1](maxTableSize)
	return func(i1 I1) O1 {
		return t.get(func() O1 { return fn(i1) }, i1)
	}
}

func TableizeI2O1[I1, I2, O1 any](fn func(I1, I2) O1, maxTableSize uint32) func(I1, I2) O1 {
	t := newTable[O1](maxTableSize)
	return func(i1 I1, i2 I2) O1 {
		return t.get(func() O1 { return fn(i1, i2) }, i1, i2)
	}
}

func TableizeI3O1[I1, I2, I3, O1 any](fn func(I1, I2, I3) O1, maxTableSize uint32) func(I1, I2, I3) O1 {
	t := newTable[O1](maxTableSize)
	return func(i1 I1, i2 I2, i3 I3) O1 {
		return t.get(func() O1 { return fn(i1, i2, i3) }, i1, i2, i3)
	}
}

type pair[O1, O2 any] struct {
	o1 O1
	o2 O2
}

// TableizeI1O2 memoizes two-valued functions such as (T, error) lookups.
// Both values are cached, errors included.
func TableizeI1O2[I1, O1, O2 any](fn func(I1) (O1, O2), maxTableSize uint32) func(I1) (O1, O2) {
	t := newTable[pair[O1, O2]](maxTableSize)
	return func(i1 I1) (O1, O2) {
		p := t.get(func() pair[O1, O2] {
			o1, o2 := fn(i1)
			return pair[O1, O2]{o1, o2}
		}, i1)
		return p.o1, p.o2
	}
}

func TableizeI2O2[I1, I2, O1, O2 any](fn func(I1, I2) (O1, O2), maxTableSize uint32) func(I1, I2) (O1, O2) {
	t := newTable[pair[O1, O2]](maxTableSize)
	return func(i1 I1, i2 I2) (O1, O2) {
		p := t.get(func() pair[O1, O2] {
			o1, o2 := fn(i1, i2)
			return pair[O1, O2]{o1, o2}
		}, i1, i2)
		return p.o1, p.o2
	}
}
