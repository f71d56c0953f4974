// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/olegiv/pipol-go/internal/model"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func withUser(r *http.Request, u model.User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), UserContextKey, u))
}

func TestRequireAuth(t *testing.T) {
	h := RequireAuth(okHandler())

	t.Run("anonymous", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
	})

	t.Run("authenticated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := withUser(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil), model.User{ID: 1, Role: model.RoleUser})
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})
}

func TestRequireAdmin(t *testing.T) {
	h := RequireAdmin(okHandler())

	tests := []struct {
		name string
		user *model.User
		want int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"regular user", &model.User{ID: 1, Role: model.RoleUser}, http.StatusForbidden},
		{"admin", &model.User{ID: 2, Role: model.RoleAdmin}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/webhooks", nil)
			if tt.user != nil {
				req = withUser(req, *tt.user)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	defer rl.Close()
	h := rl.Handler(okHandler())

	statuses := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
		req.RemoteAddr = "203.0.113.5:12345"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		statuses = append(statuses, rec.Code)
	}

	if statuses[0] != http.StatusOK || statuses[1] != http.StatusOK {
		t.Errorf("burst requests = %v, want first two OK", statuses)
	}
	if statuses[3] != http.StatusTooManyRequests {
		t.Errorf("fourth request = %d, want 429", statuses[3])
	}

	// A different IP is unaffected.
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.RemoteAddr = "198.51.100.7:9999"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("other IP status = %d, want 200", rec.Code)
	}
}

func TestLoginProtectionLockout(t *testing.T) {
	lp := NewLoginProtection()
	defer lp.Close()
	ip := "203.0.113.99"

	for i := 0; i < maxFailedAttempts; i++ {
		lp.RecordFailure(ip)
	}

	ok, remaining := lp.Allow(ip)
	if ok {
		t.Fatal("Allow = true after lockout threshold")
	}
	if remaining <= 0 {
		t.Errorf("remaining lockout = %v, want > 0", remaining)
	}

	// Success clears the record.
	lp.RecordSuccess(ip)
	if ok, _ := lp.Allow(ip); !ok {
		t.Error("Allow = false after RecordSuccess")
	}
}

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders(okHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
	} {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
	if csp := rec.Header().Get("Content-Security-Policy"); !strings.Contains(csp, "default-src 'none'") {
		t.Errorf("CSP = %q", csp)
	}
}

func TestStripTrailingSlash(t *testing.T) {
	h := StripTrailingSlash(okHandler())

	t.Run("get redirects", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events/?page=2", nil))
		if rec.Code != http.StatusMovedPermanently {
			t.Fatalf("status = %d, want 301", rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != "/api/events?page=2" {
			t.Errorf("Location = %q", loc)
		}
	})

	t.Run("post rewrites in place", func(t *testing.T) {
		var gotPath string
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
		})
		rec := httptest.NewRecorder()
		StripTrailingSlash(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/events/", nil))
		if gotPath != "/api/events" {
			t.Errorf("path = %q, want /api/events", gotPath)
		}
	})

	t.Run("root untouched", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://app.pipol.example"})(okHandler())

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
		req.Header.Set("Origin", "https://app.pipol.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.pipol.example" {
			t.Errorf("Allow-Origin = %q", got)
		}
		if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
			t.Errorf("Allow-Credentials = %q", got)
		}
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/events", nil)
		req.Header.Set("Origin", "https://app.pipol.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Errorf("preflight status = %d, want 204", rec.Code)
		}
	})

	t.Run("disallowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
		req.Header.Set("Origin", "https://evil.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Allow-Origin = %q for disallowed origin", got)
		}
	})
}

func TestTimeout(t *testing.T) {
	t.Run("fast handler passes", func(t *testing.T) {
		h := Timeout(time.Second)(okHandler())
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("slow handler times out", func(t *testing.T) {
		slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		})
		h := Timeout(20 * time.Millisecond)(slow)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", rec.Code)
		}
	})
}

func TestStaticCache(t *testing.T) {
	h := StaticCache(24 * time.Hour)(okHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/x.jpg", nil))
	if got := rec.Header().Get("Cache-Control"); got != "public, max-age=86400, immutable" {
		t.Errorf("Cache-Control = %q", got)
	}
}

func TestCSRFTrustedOrigins(t *testing.T) {
	hosts := CSRFTrustedOrigins([]string{"https://app.pipol.example", "not a url"}, true)
	found := false
	for _, h := range hosts {
		if h == "app.pipol.example" {
			found = true
		}
	}
	if !found {
		t.Errorf("hosts = %v, want app.pipol.example included", hosts)
	}
	if hosts[len(hosts)-1] != "127.0.0.1:8080" {
		t.Errorf("dev hosts missing: %v", hosts)
	}
}
