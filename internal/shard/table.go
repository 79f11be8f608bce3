// Package shard provides key-indexed tables whose contention is scoped to a
// hash shard of the key instead of one table-wide mutex.
package shard

import (
	"hash/fnv"
	"sync"
)

const Count = 32

type bucket[V any] struct {
	mu    sync.RWMutex
	items map[string]V
}

// Table is a map split in Count buckets, each guarded by its own RWMutex.
// Operations on the same key always land on the same bucket and serialize.
type Table[V any] struct {
	buckets [Count]*bucket[V]
}

func NewTable[V any]() *Table[V] {
	t := &Table[V]{}
	for i := range t.buckets {
		t.buckets[i] = &bucket[V]{items: make(map[string]V)}
	}
	return t
}

func Index(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % Count)
}

func (t *Table[V]) bucketFor(key string) *bucket[V] {
	return t.buckets[Index(key)]
}

// Update runs fn with exclusive access to the bucket holding key.
// fn receives the bucket map and may read, insert or delete key.
func (t *Table[V]) Update(key string, fn func(items map[string]V)) {
	b := t.bucketFor(key)
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b.items)
}

func (t *Table[V]) Get(key string) (V, bool) {
	b := t.bucketFor(key)
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.items[key]
	return v, ok
}

// View runs fn with shared access to the bucket holding key.
func (t *Table[V]) View(key string, fn func(items map[string]V)) {
	b := t.bucketFor(key)
	b.mu.RLock()
	defer b.mu.RUnlock()
	fn(b.items)
}

// Range visits every bucket in turn under its write lock.
// It never holds two bucket locks at once.
func (t *Table[V]) Range(fn func(items map[string]V)) {
	for _, b := range t.buckets {
		b.mu.Lock()
		fn(b.items)
		b.mu.Unlock()
	}
}

// Each visits every entry under the bucket read locks. Stop by returning false.
func (t *Table[V]) Each(fn func(key string, v V) bool) {
	for _, b := range t.buckets {
		b.mu.RLock()
		for k, v := range b.items {
			if !fn(k, v) {
				b.mu.RUnlock()
				return
			}
		}
		b.mu.RUnlock()
	}
}

func (t *Table[V]) Len() int {
	n := 0
	for _, b := range t.buckets {
		b.mu.RLock()
		n += len(b.items)
		b.mu.RUnlock()
	}
	return n
}
