// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is an in-process cache suitable for single-instance
// deployments.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	maxSize int
	closed  bool
	stop    chan struct{}
}

// NewMemoryCache creates a memory cache holding at most maxSize entries.
// A background goroutine evicts expired entries every minute.
func NewMemoryCache(maxSize int) *MemoryCache {
	c := &MemoryCache{
		entries: make(map[string]memoryEntry),
		maxSize: maxSize,
		stop:    make(chan struct{}),
	}
	go c.janitor()
	return c
}

func (c *MemoryCache) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.evictExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *MemoryCache) evictExpired() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrCacheClosed
	}
	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, ErrCacheMiss
	}
	// Copy so callers cannot mutate the cached value.
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

// Set implements Cache. When the cache is full an arbitrary entry is
// evicted to make room.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCacheClosed
	}
	if _, exists := c.entries[key]; !exists && c.maxSize > 0 && len(c.entries) >= c.maxSize {
		for k := range c.entries {
			delete(c.entries, k)
			break
		}
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	c.entries[key] = memoryEntry{value: stored, expiresAt: time.Now().Add(ttl)}
	return nil
}

// Delete implements Cache.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCacheClosed
	}
	delete(c.entries, key)
	return nil
}

// Clear implements Cache.
func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCacheClosed
	}
	c.entries = make(map[string]memoryEntry)
	return nil
}

// Close implements Cache.
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.stop)
	c.entries = nil
	return nil
}
