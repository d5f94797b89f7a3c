// Package cache memoizes values computed once per scenario. Entries never
// expire: a cache must be dropped together with the scenario that filled it.
package cache

import (
	"errors"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/polca/premise-sub000/internal/must"
)

var ErrNotFound = errors.New("cache entry not found")

// Memory is a non thread-safe memo cache. With a positive size it evicts
// the least recently used entries, otherwise it grows unbounded.
type Memory[K comparable, V any] struct {
	bounded *lru.Cache[K, V]
	m       map[K]V
	hits    int
	misses  int
}

func NewMemory[K comparable, V any](size int) *Memory[K, V] {
	if size <= 0 {
		return &Memory[K, V]{m: make(map[K]V)}
	}

	bounded, err := lru.New[K, V](size)
	must.NoError(err)

	return &Memory[K, V]{bounded: bounded}
}

func (m *Memory[K, V]) Set(k K, v V) {
	if m.bounded != nil {
		if evicted := m.bounded.Add(k, v); evicted {
			slog.Debug("cache entry evicted", "size", m.bounded.Len())
		}
		return
	}
	m.m[k] = v
}

func (m *Memory[K, V]) Get(k K) (v V, err error) {
	var found bool
	if m.bounded != nil {
		v, found = m.bounded.Get(k)
	} else {
		v, found = m.m[k]
	}

	if !found {
		m.misses++
		return v, ErrNotFound
	}

	m.hits++
	return v, nil
}

func (m *Memory[K, V]) GetOrSet(k K, valueFunc func() (V, error)) (v V, err error) {
	v, err = m.Get(k)
	if err == nil {
		return v, nil
	}

	v, err = valueFunc()
	if err != nil {
		return v, err
	}

	m.Set(k, v)
	return v, nil
}

func (m *Memory[K, V]) Len() int {
	if m.bounded != nil {
		return m.bounded.Len()
	}
	return len(m.m)
}

// Stats returns the number of hits and misses recorded by Get.
func (m *Memory[K, V]) Stats() (hits, misses int) {
	return m.hits, m.misses
}

// Purge drops every entry. Hit and miss counters are kept.
func (m *Memory[K, V]) Purge() {
	if m.bounded != nil {
		m.bounded.Purge()
		return
	}
	clear(m.m)
}
