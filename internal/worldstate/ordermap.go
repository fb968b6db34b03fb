// Package worldstate holds the Universe aggregate: agents, assets, and
// terrain, plus the single state-transition primitive that mutates them.
//
// Every collection here is backed by an ordered container so iteration
// order never depends on insertion order or a hash function's bucket
// layout, a precondition for canonical encoding (see internal/codec).
package worldstate

import "github.com/google/btree"

// OrderedMap is a key-sorted associative container. Hash-table-backed
// maps are banned anywhere state is iterated or hashed: every Universe
// collection (agents, assets, inventories, asset properties, terrain
// chunks) is an OrderedMap so Ascend always visits entries in the same
// order regardless of how they were built.
type OrderedMap[K any, V any] struct {
	tree *btree.BTreeG[entry[K, V]]
}

type entry[K any, V any] struct {
	Key K
	Val V
}

// degree is not performance-critical here, just a reasonable btree
// fan-out.
const degree = 32

// NewOrderedMap constructs an empty map ordered by less.
func NewOrderedMap[K any, V any](less func(a, b K) bool) *OrderedMap[K, V] {
	cmp := func(a, b entry[K, V]) bool { return less(a.Key, b.Key) }
	return &OrderedMap[K, V]{tree: btree.NewG(degree, cmp)}
}

// Set inserts or replaces the value for k.
func (m *OrderedMap[K, V]) Set(k K, v V) {
	m.tree.ReplaceOrInsert(entry[K, V]{Key: k, Val: v})
}

// Get returns the value for k and whether it was present.
func (m *OrderedMap[K, V]) Get(k K) (V, bool) {
	item, ok := m.tree.Get(entry[K, V]{Key: k})
	return item.Val, ok
}

// Has reports whether k is present.
func (m *OrderedMap[K, V]) Has(k K) bool {
	_, ok := m.Get(k)
	return ok
}

// Len returns the number of entries.
func (m *OrderedMap[K, V]) Len() int {
	return m.tree.Len()
}

// Ascend visits every entry in key order, stopping early if fn returns false.
func (m *OrderedMap[K, V]) Ascend(fn func(k K, v V) bool) {
	m.tree.Ascend(func(e entry[K, V]) bool {
		return fn(e.Key, e.Val)
	})
}

// Clone returns a structurally independent copy. Values are shared, not
// deep-copied; callers holding pointer values must clone them too when
// Universe.Clone needs full isolation (see universe.go).
func (m *OrderedMap[K, V]) Clone() *OrderedMap[K, V] {
	return &OrderedMap[K, V]{tree: m.tree.Clone()}
}
