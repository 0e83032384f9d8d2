package pure

import (
	"sync"
	"sync/atomic"
)

// Trie maps argument tuples to values. Entries live in two generations:
// once the head generation holds maxSize entries it becomes the tail and
// the old tail is dropped, so at most 2*maxSize entries are retained.
// Key is one argument of a memoized call: a comparable value, or the
// String() of a fmt.Stringer.
type Key = any

type Trie[O any] struct {
	mu      sync.Mutex
	head    atomic.Pointer[generation]
	tail    atomic.Pointer[generation]
	maxSize uint32
}

type generation struct {
	root sync.Map
	size atomic.Uint32
}

func NewTrie[O any](maxSize uint32) *Trie[O] {
	if maxSize == 0 {
		panic("pure: trie max size must be greater than 0")
	}
	t := &Trie[O]{maxSize: maxSize}
	t.head.Store(&generation{})
	return t
}

func (t *Trie[O]) Load(keys []Key) (O, bool) {
	mustHaveKeys(keys)
	if v, ok := t.head.Load().lookup(keys); ok {
		return v.(O), true
	}
	if v, ok := t.tail.Load().lookup(keys); ok {
		return v.(O), true
	}
	var zero O
	return zero, false
}

func (t *Trie[O]) Store(keys []Key, value O) {
	mustHaveKeys(keys)
	g := t.head.Load()
	if g.size.Load() >= t.maxSize {
		g = t.rotate(g)
	}
	m := &g.root
	last := len(keys) - 1
	for _, k := range keys[:last] {
		next, _ := m.LoadOrStore(k, &sync.Map{})
		m = next.(*sync.Map)
	}
	if _, loaded := m.Swap(keys[last], value); !loaded {
		g.size.Add(1)
	}
}

// Len is the number of retained entries, counting a key present in both
// generations twice.
func (t *Trie[O]) Len() int {
	n := int(t.head.Load().size.Load())
	if tail := t.tail.Load(); tail != nil {
		n += int(tail.size.Load())
	}
	return n
}

func (t *Trie[O]) rotate(full *generation) *generation {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur := t.head.Load(); cur != full {
		return cur
	}
	next := &generation{}
	t.tail.Store(full)
	t.head.Store(next)
	return next
}

func (g *generation) lookup(keys []Key) (any, bool) {
	if g == nil {
		return nil, false
	}
	m := &g.root
	last := len(keys) - 1
	for _, k := range keys[:last] {
		next, ok := m.Load(k)
		if !ok {
			return nil, false
		}
		m = next.(*sync.Map)
	}
	return m.Load(keys[last])
}

func mustHaveKeys(keys []Key) {
	if len(keys) == 0 {
		panic("pure: empty trie keys")
	}
}
