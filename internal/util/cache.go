package util

import (
	"context"
	"sync"
	"time"
)

type Cache[V any] interface {
	// Get a value from the cache and return true if found
	Get(key string) (V, bool)

	// Set a value into the cache with a cache expiration
	Set(key string, val V, expires time.Duration)

	// Len returns the number of entries, expired entries not yet swept included
	Len() int

	// Close will shutdown the cache
	Close() error
}

type entry[V any] struct {
	object  V
	expires time.Time
}

type inMemoryCache[V any] struct {
	ctx         context.Context
	cancel      context.CancelFunc
	cache       map[string]*entry[V]
	mutex       sync.RWMutex
	waitGroup   sync.WaitGroup
	once        sync.Once
	expiryCheck time.Duration
}

var _ Cache[string] = (*inMemoryCache[string])(nil)

func (c *inMemoryCache[V]) Get(key string) (V, bool) {
	var zero V
	c.mutex.RLock()
	val, ok := c.cache[key]
	c.mutex.RUnlock()
	if !ok {
		return zero, false
	}
	if val.expires.Before(time.Now()) {
		c.mutex.Lock()
		delete(c.cache, key)
		c.mutex.Unlock()
		return zero, false
	}
	return val.object, true
}

func (c *inMemoryCache[V]) Set(key string, val V, expires time.Duration) {
	c.mutex.Lock()
	c.cache[key] = &entry[V]{val, time.Now().Add(expires)}
	c.mutex.Unlock()
}

func (c *inMemoryCache[V]) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.cache)
}

func (c *inMemoryCache[V]) Close() error {
	c.once.Do(func() {
		c.cancel()
		c.waitGroup.Wait()
	})
	return nil
}

func (c *inMemoryCache[V]) sweep(now time.Time) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	for key, val := range c.cache {
		if val.expires.Before(now) {
			delete(c.cache, key)
		}
	}
}

func (c *inMemoryCache[V]) run() {
	defer c.waitGroup.Done()
	timer := time.NewTicker(c.expiryCheck)
	defer timer.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case now := <-timer.C:
			c.sweep(now)
		}
	}
}

// NewCache returns a new in memory Cache which removes expired entries every expiryCheck
func NewCache[V any](parent context.Context, expiryCheck time.Duration) Cache[V] {
	ctx, cancel := context.WithCancel(parent)
	c := &inMemoryCache[V]{
		ctx:         ctx,
		cancel:      cancel,
		cache:       make(map[string]*entry[V]),
		expiryCheck: expiryCheck,
	}
	c.waitGroup.Add(1)
	go c.run()
	return c
}
