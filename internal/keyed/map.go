// Package keyed provides a concurrent map with atomic per-key
// read-modify-write. Operations on different keys never share a lock.
package keyed

import (
	"sync"
	"sync/atomic"
)

type entry[V any] struct {
	mu   sync.Mutex
	val  V
	set  bool
	dead bool
}

// Map is a generation-swapped table of per-key entries. Each entry carries its
// own mutex, so an Update on one key never waits on another key.
type Map[K comparable, V any] struct {
	table atomic.Pointer[sync.Map]
}

// New returns an empty Map.
func New[K comparable, V any]() *Map[K, V] {
	m := &Map[K, V]{}
	m.table.Store(new(sync.Map))
	return m
}

// Update runs fn under the key's lock. fn receives the current value and
// whether it exists; it returns the next value and whether to keep it.
// Returning keep=false removes the key.
func (m *Map[K, V]) Update(key K, fn func(cur V, ok bool) (next V, keep bool)) {
	for {
		tbl := m.table.Load()
		actual, _ := tbl.LoadOrStore(key, &entry[V]{})
		e := actual.(*entry[V])

		e.mu.Lock()
		if e.dead {
			// Lost a race with a removal; retry against the live entry.
			e.mu.Unlock()
			continue
		}
		next, keep := fn(e.val, e.set)
		if keep {
			e.val, e.set = next, true
		} else {
			var zero V
			e.val, e.set, e.dead = zero, false, true
			tbl.CompareAndDelete(key, e)
		}
		e.mu.Unlock()
		return
	}
}

// View runs fn under the key's lock without modifying the stored value.
// Absent keys are reported with ok=false and nothing is allocated.
func (m *Map[K, V]) View(key K, fn func(cur V, ok bool)) {
	actual, found := m.table.Load().Load(key)
	if !found {
		var zero V
		fn(zero, false)
		return
	}
	e := actual.(*entry[V])
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dead {
		var zero V
		fn(zero, false)
		return
	}
	fn(e.val, e.set)
}

// Delete removes the key and returns the value it held.
func (m *Map[K, V]) Delete(key K) (V, bool) {
	var (
		old V
		had bool
	)
	m.Update(key, func(cur V, ok bool) (V, bool) {
		old, had = cur, ok
		return cur, false
	})
	return old, had
}

// Len counts live keys. It is a point-in-time estimate under concurrency.
func (m *Map[K, V]) Len() int {
	n := 0
	m.table.Load().Range(func(_, v any) bool {
		e := v.(*entry[V])
		e.mu.Lock()
		if e.set && !e.dead {
			n++
		}
		e.mu.Unlock()
		return true
	})
	return n
}

// Reset atomically replaces the table. Operations already holding the old
// table finish against it; every later call sees an empty map.
func (m *Map[K, V]) Reset() {
	m.table.Store(new(sync.Map))
}
