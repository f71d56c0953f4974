// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"bytes"
	"context"
	"testing"
	"time"
)

func TestMemoryCacheBasics(t *testing.T) {
	c := NewMemoryCache(100)
	defer c.Close()
	ctx := context.Background()

	if _, err := c.Get(ctx, "missing"); err != ErrCacheMiss {
		t.Errorf("Get missing = %v, want ErrCacheMiss", err)
	}

	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, []byte("v")) {
		t.Errorf("Get = %q, want %q", got, "v")
	}

	// Mutating the returned slice must not affect the cached value.
	got[0] = 'x'
	again, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(again, []byte("v")) {
		t.Errorf("cached value mutated: %q", again)
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := c.Get(ctx, "k"); err != ErrCacheMiss {
		t.Errorf("Get after delete = %v, want ErrCacheMiss", err)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(100)
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), -time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := c.Get(ctx, "k"); err != ErrCacheMiss {
		t.Errorf("Get expired = %v, want ErrCacheMiss", err)
	}
}

func TestMemoryCacheMaxSize(t *testing.T) {
	c := NewMemoryCache(2)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "a", []byte("1"), time.Minute)
	c.Set(ctx, "b", []byte("2"), time.Minute)
	c.Set(ctx, "c", []byte("3"), time.Minute)

	present := 0
	for _, k := range []string{"a", "b", "c"} {
		if _, err := c.Get(ctx, k); err == nil {
			present++
		}
	}
	if present != 2 {
		t.Errorf("entries after overflow = %d, want 2", present)
	}
}

func TestMemoryCacheClosed(t *testing.T) {
	c := NewMemoryCache(10)
	c.Close()
	ctx := context.Background()

	if _, err := c.Get(ctx, "k"); err != ErrCacheClosed {
		t.Errorf("Get after close = %v, want ErrCacheClosed", err)
	}
	if err := c.Set(ctx, "k", nil, time.Minute); err != ErrCacheClosed {
		t.Errorf("Set after close = %v, want ErrCacheClosed", err)
	}
	// Double close is safe.
	if err := c.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
}

func TestEventListCacheKey(t *testing.T) {
	elc := NewEventListCache(NewMemoryCache(10), 30*time.Second)

	a := elc.Key(map[string]string{"category": "music", "page": "1"})
	b := elc.Key(map[string]string{"page": "1", "category": "music"})
	if a != b {
		t.Error("key depends on parameter order")
	}

	c := elc.Key(map[string]string{"category": "music", "page": "2"})
	if a == c {
		t.Error("different params produced the same key")
	}

	// Empty values do not contribute.
	d := elc.Key(map[string]string{"category": "music", "page": "1", "q": ""})
	if a != d {
		t.Error("empty value changed the key")
	}
}

func TestEventListCacheInvalidate(t *testing.T) {
	mem := NewMemoryCache(10)
	defer mem.Close()
	elc := NewEventListCache(mem, 30*time.Second)
	ctx := context.Background()

	key := elc.Key(map[string]string{"page": "1"})
	if err := elc.Set(ctx, key, []byte(`{"data":[]}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := elc.Get(ctx, key); err != nil {
		t.Fatalf("Get: %v", err)
	}

	if err := elc.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, err := elc.Get(ctx, key); err != ErrCacheMiss {
		t.Errorf("Get after invalidate = %v, want ErrCacheMiss", err)
	}
}
