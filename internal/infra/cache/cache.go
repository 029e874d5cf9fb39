// Package cache provides an in-memory store with a sliding idle TTL.
// Customer sessions live here; nothing survives a restart.
package cache

import (
	"sync"
	"time"
)

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// InMemory is a thread-safe map whose entries expire after ttl without a
// Get, GetOrCreate or Touch.
type InMemory[T any] struct {
	mu      sync.RWMutex
	items   map[string]entry[T]
	ttl     time.Duration
	onEvict func(key string, value T)
	stop    chan struct{}
	once    sync.Once
}

// Option customizes an InMemory cache.
type Option[T any] func(*InMemory[T])

// WithEvictHook registers fn to run (outside the lock) for each entry the
// sweep removes.
func WithEvictHook[T any](fn func(key string, value T)) Option[T] {
	return func(c *InMemory[T]) { c.onEvict = fn }
}

// New creates a cache and starts its background sweep. Call Close to stop it.
func New[T any](ttl time.Duration, opts ...Option[T]) *InMemory[T] {
	c := &InMemory[T]{
		items: make(map[string]entry[T]),
		ttl:   ttl,
		stop:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.cleanup()
	return c
}

// Get returns the value and extends its lifetime. Expired entries miss.
func (c *InMemory[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok || time.Now().After(e.expiresAt) {
		var zero T
		return zero, false
	}
	e.expiresAt = time.Now().Add(c.ttl)
	c.items[key] = e
	return e.value, true
}

// GetOrCreate returns the live value for key, or stores and returns the
// result of create. The second return reports whether create ran.
// Two concurrent callers for the same key always get the same value.
func (c *InMemory[T]) GetOrCreate(key string, create func() T) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if e, ok := c.items[key]; ok && !now.After(e.expiresAt) {
		e.expiresAt = now.Add(c.ttl)
		c.items[key] = e
		return e.value, false
	}

	v := create()
	c.items[key] = entry[T]{value: v, expiresAt: now.Add(c.ttl)}
	return v, true
}

// Touch extends the lifetime of key if it is still present.
func (c *InMemory[T]) Touch(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		e.expiresAt = time.Now().Add(c.ttl)
		c.items[key] = e
	}
}

// Delete removes key and reports whether a live entry was there.
func (c *InMemory[T]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	delete(c.items, key)
	return ok && !time.Now().After(e.expiresAt)
}

// Len counts entries that have not expired yet.
func (c *InMemory[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := time.Now()
	n := 0
	for _, e := range c.items {
		if !now.After(e.expiresAt) {
			n++
		}
	}
	return n
}

// Close stops the background sweep. Safe to call more than once.
func (c *InMemory[T]) Close() {
	c.once.Do(func() { close(c.stop) })
}

// cleanup periodically removes expired entries.
func (c *InMemory[T]) cleanup() {
	interval := c.ttl
	if interval <= 0 || interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep(time.Now())
		}
	}
}

func (c *InMemory[T]) sweep(now time.Time) {
	type evicted struct {
		key   string
		value T
	}
	var gone []evicted

	c.mu.Lock()
	for k, v := range c.items {
		if now.After(v.expiresAt) {
			delete(c.items, k)
			gone = append(gone, evicted{k, v.value})
		}
	}
	c.mu.Unlock()

	if c.onEvict == nil {
		return
	}
	for _, e := range gone {
		c.onEvict(e.key, e.value)
	}
}
