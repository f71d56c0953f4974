// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Login protection parameters.
const (
	loginRPS            = 0.5
	loginBurst          = 3
	maxFailedAttempts   = 5
	lockoutDuration     = 15 * time.Minute
	failureWindowExpiry = 30 * time.Minute
)

type failureRecord struct {
	count       int
	lastFailure time.Time
	lockedUntil time.Time
}

// LoginProtection throttles login attempts per IP and locks out IPs
// after repeated failures.
type LoginProtection struct {
	mu       sync.Mutex
	limiters *limiterCache[string]
	failures map[string]*failureRecord
	stop     chan struct{}
}

// NewLoginProtection creates a login protector with background cleanup
// of stale failure records.
func NewLoginProtection() *LoginProtection {
	lp := &LoginProtection{
		limiters: newLimiterCache[string](rate.Limit(loginRPS), loginBurst, failureWindowExpiry),
		failures: make(map[string]*failureRecord),
		stop:     make(chan struct{}),
	}
	go lp.cleanup()
	return lp
}

func (lp *LoginProtection) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-failureWindowExpiry)
			lp.mu.Lock()
			for ip, rec := range lp.failures {
				if rec.lastFailure.Before(cutoff) && time.Now().After(rec.lockedUntil) {
					delete(lp.failures, ip)
				}
			}
			lp.mu.Unlock()
		case <-lp.stop:
			return
		}
	}
}

// Allow reports whether a login attempt from ip may proceed, and the
// remaining lockout if not.
func (lp *LoginProtection) Allow(ip string) (bool, time.Duration) {
	lp.mu.Lock()
	if rec, ok := lp.failures[ip]; ok && time.Now().Before(rec.lockedUntil) {
		remaining := time.Until(rec.lockedUntil)
		lp.mu.Unlock()
		return false, remaining
	}
	lp.mu.Unlock()

	if !lp.limiters.get(ip).Allow() {
		return false, time.Second
	}
	return true, 0
}

// RecordFailure registers a failed login from ip. After repeated
// failures the IP is locked out with exponential growth.
func (lp *LoginProtection) RecordFailure(ip string) {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	rec, ok := lp.failures[ip]
	if !ok {
		rec = &failureRecord{}
		lp.failures[ip] = rec
	}
	rec.count++
	rec.lastFailure = time.Now()

	if rec.count >= maxFailedAttempts {
		// Each lockout past the threshold doubles the previous one.
		multiplier := time.Duration(1) << uint(rec.count-maxFailedAttempts)
		if multiplier > 8 {
			multiplier = 8
		}
		rec.lockedUntil = time.Now().Add(lockoutDuration * multiplier)
	}
}

// RecordSuccess clears failure state for ip after a successful login.
func (lp *LoginProtection) RecordSuccess(ip string) {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	delete(lp.failures, ip)
}

// Close stops background cleanup.
func (lp *LoginProtection) Close() {
	close(lp.stop)
	lp.limiters.Close()
}
