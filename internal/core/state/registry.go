package state

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const defaultShardCount = 16

// Registry is a sharded map of named entries, keyed by binding target. Shard
// selection hashes the name with xxhash so hot targets spread across locks.
type Registry[T any] struct {
	shards []registryShard[T]
	mask   uint64
}

type registryShard[T any] struct {
	mu    sync.RWMutex
	items map[string]T
}

// NewRegistry creates a Registry with the given shard count, rounded up to
// a power of two. A count below 1 selects the default.
func NewRegistry[T any](shardCount int) *Registry[T] {
	if shardCount < 1 {
		shardCount = defaultShardCount
	}
	n := 1
	for n < shardCount {
		n <<= 1
	}
	r := &Registry[T]{
		shards: make([]registryShard[T], n),
		mask:   uint64(n - 1),
	}
	for i := range r.shards {
		r.shards[i].items = make(map[string]T)
	}
	return r
}

func (r *Registry[T]) shardFor(name string) *registryShard[T] {
	return &r.shards[xxhash.Sum64String(name)&r.mask]
}

// Get returns the entry stored under name.
func (r *Registry[T]) Get(name string) (T, bool) {
	s := r.shardFor(name)
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[name]
	return v, ok
}

// GetOrCreate returns the entry stored under name, creating it with create
// if absent. The second return reports whether a new entry was created.
// create runs under the shard lock, at most once per name.
func (r *Registry[T]) GetOrCreate(name string, create func() T) (T, bool) {
	s := r.shardFor(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.items[name]; ok {
		return v, false
	}
	v := create()
	s.items[name] = v
	return v, true
}

// GetOrCreateAnd behaves like GetOrCreate and additionally runs hold on the
// entry while the shard lock is still held. Reference counts taken inside
// hold are atomic with the lookup, so a concurrent DeleteIf observes them.
func (r *Registry[T]) GetOrCreateAnd(name string, create func() T, hold func(T)) (T, bool) {
	s := r.shardFor(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.items[name]; ok {
		hold(v)
		return v, false
	}
	v := create()
	hold(v)
	s.items[name] = v
	return v, true
}

// DeleteIf removes and returns the entry stored under name when pred,
// evaluated under the shard lock, returns true. Pairs with GetOrCreateAnd:
// an entry whose reference count was raised in hold is never deleted by a
// pred that checks the count.
func (r *Registry[T]) DeleteIf(name string, pred func(v T) bool) (T, bool) {
	s := r.shardFor(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[name]
	if !ok || !pred(v) {
		var zero T
		return zero, false
	}
	delete(s.items, name)
	return v, true
}

// Delete removes and returns the entry stored under name.
func (r *Registry[T]) Delete(name string) (T, bool) {
	s := r.shardFor(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[name]
	if ok {
		delete(s.items, name)
	}
	return v, ok
}

// Range calls fn for every entry until fn returns false. The snapshot per
// shard is taken under the read lock; fn runs outside of it.
func (r *Registry[T]) Range(fn func(name string, v T) bool) {
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.RLock()
		names := make([]string, 0, len(s.items))
		values := make([]T, 0, len(s.items))
		for name, v := range s.items {
			names = append(names, name)
			values = append(values, v)
		}
		s.mu.RUnlock()
		for j := range names {
			if !fn(names[j], values[j]) {
				return
			}
		}
	}
}

// Len returns the total number of entries across all shards.
func (r *Registry[T]) Len() int {
	total := 0
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.RLock()
		total += len(s.items)
		s.mu.RUnlock()
	}
	return total
}
