// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net/http"
	"net/url"

	"filippo.io/csrf/gorilla"
)

// CSRFConfig holds configuration for CSRF protection.
type CSRFConfig struct {
	// AuthKey is a 32-byte key used to authenticate the CSRF token.
	AuthKey []byte

	// TrustedOrigins lists origins allowed to make cross-origin
	// requests, host-only form. The configured CORS origins and
	// localhost in development belong here.
	TrustedOrigins []string
}

// CSRFTrustedOrigins converts full origin URLs to the host-only form
// the csrf library expects.
func CSRFTrustedOrigins(origins []string, isDev bool) []string {
	var hosts []string
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			hosts = append(hosts, u.Host)
		}
	}
	if isDev {
		hosts = append(hosts, "localhost:8080", "127.0.0.1:8080")
	}
	return hosts
}

// CSRF returns cross-site request forgery protection based on Fetch
// metadata headers rather than cookies.
func CSRF(cfg CSRFConfig) func(http.Handler) http.Handler {
	opts := []csrf.Option{
		csrf.ErrorHandler(http.HandlerFunc(csrfErrorHandler)),
	}
	if len(cfg.TrustedOrigins) > 0 {
		opts = append(opts, csrf.TrustedOrigins(cfg.TrustedOrigins))
	}
	return csrf.Protect(cfg.AuthKey, opts...)
}

func csrfErrorHandler(w http.ResponseWriter, r *http.Request) {
	reasonStr := "unknown"
	if reason := csrf.FailureReason(r); reason != nil {
		reasonStr = reason.Error()
	}
	slog.Warn("CSRF validation failed",
		"reason", reasonStr,
		"method", r.Method,
		"path", r.URL.Path,
		"origin", r.Header.Get("Origin"),
		"sec_fetch_site", r.Header.Get("Sec-Fetch-Site"),
	)
	writeJSONError(w, http.StatusForbidden, "csrf_failed", "CSRF validation failed")
}
