// Package state provides plain observable containers for the client's
// UI-facing caches. The server stays authoritative; a container holds
// the last fetched view and notifies subscribers on every update.
package state

import "sync"

// Container holds one value and a set of subscribers. All methods are
// safe for concurrent use. Subscriber callbacks run outside the
// container's lock, so they may call back into the container.
type Container[T any] struct {
	mu    sync.RWMutex
	value T
	subs  map[int]func(T)
	next  int
}

// New creates a container seeded with initial.
func New[T any](initial T) *Container[T] {
	return &Container[T]{value: initial, subs: make(map[int]func(T))}
}

// Get returns the current value.
func (c *Container[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Set replaces the value and notifies subscribers.
func (c *Container[T]) Set(v T) {
	c.mu.Lock()
	c.value = v
	subs := c.snapshotLocked()
	c.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
}

// Update applies fn to the current value and stores the result,
// notifying subscribers once.
func (c *Container[T]) Update(fn func(T) T) {
	c.mu.Lock()
	c.value = fn(c.value)
	v := c.value
	subs := c.snapshotLocked()
	c.mu.Unlock()

	for _, sub := range subs {
		sub(v)
	}
}

// Subscribe registers fn and invokes it immediately with the current
// value. The returned function cancels the subscription.
func (c *Container[T]) Subscribe(fn func(T)) func() {
	c.mu.Lock()
	id := c.next
	c.next++
	c.subs[id] = fn
	v := c.value
	c.mu.Unlock()

	fn(v)

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

func (c *Container[T]) snapshotLocked() []func(T) {
	out := make([]func(T), 0, len(c.subs))
	for _, fn := range c.subs {
		out = append(out, fn)
	}
	return out
}
