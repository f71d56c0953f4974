// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterCache tracks per-key rate limiters and evicts idle entries.
type limiterCache[K comparable] struct {
	mu      sync.Mutex
	entries map[K]*limiterEntry
	rps     rate.Limit
	burst   int
	maxIdle time.Duration
	stop    chan struct{}
}

func newLimiterCache[K comparable](rps rate.Limit, burst int, maxIdle time.Duration) *limiterCache[K] {
	c := &limiterCache[K]{
		entries: make(map[K]*limiterEntry),
		rps:     rps,
		burst:   burst,
		maxIdle: maxIdle,
		stop:    make(chan struct{}),
	}
	go c.cleanup()
	return c
}

func (c *limiterCache[K]) get(key K) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(c.rps, c.burst)}
		c.entries[key] = e
	}
	e.lastSeen = time.Now()
	return e.limiter
}

func (c *limiterCache[K]) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-c.maxIdle)
			c.mu.Lock()
			for k, e := range c.entries {
				if e.lastSeen.Before(cutoff) {
					delete(c.entries, k)
				}
			}
			c.mu.Unlock()
		case <-c.stop:
			return
		}
	}
}

func (c *limiterCache[K]) Close() {
	close(c.stop)
}

// RateLimiter limits requests per client IP.
type RateLimiter struct {
	limiters *limiterCache[string]
}

// NewRateLimiter creates a per-IP rate limiter.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: newLimiterCache[string](rate.Limit(rps), burst, 10*time.Minute),
	}
}

// Handler rejects requests exceeding the per-IP limit with 429.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !rl.limiters.get(ip).Allow() {
			w.Header().Set("Retry-After", "1")
			writeJSONError(w, http.StatusTooManyRequests, "rate_limited", "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Close stops the limiter's background cleanup.
func (rl *RateLimiter) Close() {
	rl.limiters.Close()
}
