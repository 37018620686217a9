package state

import (
	"reflect"
	"sync"

	"github.com/google/uuid"
)

// Observable is a versioned, dirty-tracked value that notifies dependents on
// change. It is the consumer-facing half of a detector: instead of returning
// a result once, the detector keeps one Observable up to date and consumers
// watch it through callbacks or channel subscriptions.
//
// Change callbacks run synchronously in the goroutine that called Set, the
// same contract as bus delivery; keep them quick. Channel subscribers are
// never blocked on: if a subscriber's buffer is full the update is dropped
// for that subscriber.
type Observable[T any] struct {
	mu      sync.RWMutex
	value   T
	version uint64
	dirty   bool
	closed  bool

	onChange map[string]func(old, new T)
	subs     map[string]chan T
}

// NewObservable creates an Observable holding the given initial value.
func NewObservable[T any](initial T) *Observable[T] {
	return &Observable[T]{
		value:    initial,
		version:  1,
		onChange: make(map[string]func(old, new T)),
		subs:     make(map[string]chan T),
	}
}

// Get returns the current value.
func (o *Observable[T]) Get() T {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.value
}

// Set replaces the value and notifies dependents. Setting an equal value is
// a no-op: no version bump, no notification. Set after Close is ignored.
func (o *Observable[T]) Set(newValue T) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	old := o.value
	if reflect.DeepEqual(old, newValue) {
		o.mu.Unlock()
		return
	}
	o.value = newValue
	o.version++
	o.dirty = true

	callbacks := make([]func(old, new T), 0, len(o.onChange))
	for _, cb := range o.onChange {
		callbacks = append(callbacks, cb)
	}
	// Channel sends stay under the lock: they never block, and Close also
	// closes these channels under the lock, so a send can never race a close.
	for _, ch := range o.subs {
		select {
		case ch <- newValue:
		default:
		}
	}
	o.mu.Unlock()

	for _, cb := range callbacks {
		cb(old, newValue)
	}
}

// Version returns the current version number. It starts at 1 and increases
// once per effective Set.
func (o *Observable[T]) Version() uint64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.version
}

// IsDirty reports whether the value changed since the last MarkClean.
func (o *Observable[T]) IsDirty() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.dirty
}

// MarkClean clears the dirty flag.
func (o *Observable[T]) MarkClean() {
	o.mu.Lock()
	o.dirty = false
	o.mu.Unlock()
}

// OnChange registers a callback invoked after every effective Set. The
// returned cancel function removes the callback; calling it more than once
// is safe.
func (o *Observable[T]) OnChange(cb func(old, new T)) (cancel func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := uuid.NewString()
	o.onChange[id] = cb
	return func() {
		o.mu.Lock()
		delete(o.onChange, id)
		o.mu.Unlock()
	}
}

// Subscribe returns a channel receiving values after every effective Set.
// The channel is closed when the subscription is cancelled or the Observable
// is closed. Updates are dropped for subscribers that fall behind.
func (o *Observable[T]) Subscribe(buffer int) (<-chan T, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan T, buffer)

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := uuid.NewString()
	o.subs[id] = ch
	o.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			o.mu.Lock()
			if _, ok := o.subs[id]; ok {
				delete(o.subs, id)
				close(ch)
			}
			o.mu.Unlock()
		})
	}
}

// Close releases all subscriptions and makes further Sets no-ops. Multiple
// calls are safe.
func (o *Observable[T]) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	for id, ch := range o.subs {
		delete(o.subs, id)
		close(ch)
	}
	o.onChange = make(map[string]func(old, new T))
	return nil
}
