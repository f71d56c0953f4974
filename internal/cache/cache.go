// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cache provides a byte-oriented cache with in-memory and
// Redis backends.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned when a key is not present in the cache.
var ErrCacheMiss = errors.New("cache: key not found")

// ErrCacheClosed is returned when operating on a closed cache.
var ErrCacheClosed = errors.New("cache: closed")

// Cache stores byte values under string keys with per-entry TTLs.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Close() error
}
