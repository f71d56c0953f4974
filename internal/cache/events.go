// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// EventListCache caches serialized event-list responses keyed by a
// normalized form of the request's query parameters.
type EventListCache struct {
	cache Cache
	ttl   time.Duration
}

// NewEventListCache wraps a Cache for event-list responses.
func NewEventListCache(c Cache, ttl time.Duration) *EventListCache {
	return &EventListCache{cache: c, ttl: ttl}
}

// Key derives a stable cache key from query parameters. Parameter order
// does not matter; empty values are ignored.
func (c *EventListCache) Key(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
		b.WriteByte('&')
	}
	sum := sha256.Sum256([]byte(b.String()))
	return "events:list:" + hex.EncodeToString(sum[:16])
}

// Get returns a cached response body, or ErrCacheMiss.
func (c *EventListCache) Get(ctx context.Context, key string) ([]byte, error) {
	return c.cache.Get(ctx, key)
}

// Set stores a response body under the key.
func (c *EventListCache) Set(ctx context.Context, key string, body []byte) error {
	return c.cache.Set(ctx, key, body, c.ttl)
}

// Invalidate drops all cached event lists. Called on any event write
// since list membership can change for many filter combinations at once.
func (c *EventListCache) Invalidate(ctx context.Context) error {
	return c.cache.Clear(ctx)
}
