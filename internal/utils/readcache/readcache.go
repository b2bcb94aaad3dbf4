// Package readcache is a read-through cache scoped to one request. A Cache is
// attached to the request context and dropped with it; mutations invalidate the
// keys they affect.
package readcache

import (
	"context"
	"sync"
)

type ctxKey struct{}

// Cache holds loaded values by key. Failed loads are not cached.
type Cache struct {
	mu      sync.Mutex
	entries map[string]any
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string]any)}
}

// WithCache returns a copy of ctx carrying c.
func WithCache(ctx context.Context, c *Cache) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// FromContext returns the cache attached to ctx, or nil.
func FromContext(ctx context.Context) *Cache {
	c, _ := ctx.Value(ctxKey{}).(*Cache)
	return c
}

// Get returns the cached value for key or calls load and caches its result.
// Without a cache in ctx it always calls load.
func Get[T any](ctx context.Context, key string, load func(context.Context) (T, error)) (T, error) {
	c := FromContext(ctx)
	if c == nil {
		return load(ctx)
	}

	c.mu.Lock()
	if v, ok := c.entries[key]; ok {
		c.mu.Unlock()
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	} else {
		c.mu.Unlock()
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}

	c.mu.Lock()
	c.entries[key] = v
	c.mu.Unlock()
	return v, nil
}

// Invalidate drops keys from the cache attached to ctx, if any.
func Invalidate(ctx context.Context, keys ...string) {
	c := FromContext(ctx)
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
