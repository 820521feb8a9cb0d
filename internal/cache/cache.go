// Package cache provides a size- and time-bounded key/value cache with a
// pluggable backing provider. It holds ephemeral session handles outside
// the pool hierarchy so hot lookups skip the full ownership-chain walk.
package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// ProviderMemory is the in-memory LRU provider.
	ProviderMemory = "memory"
)

var (
	// ErrCacheMiss is returned when a key is absent or its entry expired.
	ErrCacheMiss = errors.New("cache entry not found")
	// ErrUnknownProvider is returned at construction for an unrecognised
	// provider name.
	ErrUnknownProvider = errors.New("unknown cache provider")
)

// Cache is a generic TTL cache. Entries expire after a fixed TTL; when the
// cache is full the least-recently-used entry is evicted first.
type Cache[V any] interface {
	Get(key string) (V, error)
	Set(key string, value V)
	Delete(key string)
	Len() int
}

// Options configures cache construction.
type Options struct {
	Provider string        // Backing provider name, ProviderMemory by default
	MaxItems int           // Capacity bound (0 = unbounded)
	TTL      time.Duration // Per-entry time to live
}

// New constructs a cache for the configured provider. Unknown providers
// fail fast here rather than at first use.
func New[V any](opts Options) (Cache[V], error) {
	switch opts.Provider {
	case "", ProviderMemory:
		return &memoryCache[V]{
			lru: expirable.NewLRU[string, V](opts.MaxItems, nil, opts.TTL),
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, opts.Provider)
	}
}

// memoryCache is the in-memory provider on top of an expirable LRU.
type memoryCache[V any] struct {
	lru *expirable.LRU[string, V]
}

func (c *memoryCache[V]) Get(key string) (V, error) {
	v, ok := c.lru.Get(key)
	if !ok {
		var zero V
		return zero, fmt.Errorf("%w: %q", ErrCacheMiss, key)
	}
	return v, nil
}

func (c *memoryCache[V]) Set(key string, value V) {
	c.lru.Add(key, value)
}

func (c *memoryCache[V]) Delete(key string) {
	c.lru.Remove(key)
}

func (c *memoryCache[V]) Len() int {
	return c.lru.Len()
}
