// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"strings"
)

// StripTrailingSlash redirects GET requests with a trailing slash to
// the canonical path. Non-GET requests are rewritten in place so API
// clients are not bounced through a redirect.
func StripTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Path
		if len(p) > 1 && strings.HasSuffix(p, "/") {
			trimmed := strings.TrimRight(p, "/")
			if r.Method == http.MethodGet {
				target := trimmed
				if r.URL.RawQuery != "" {
					target += "?" + r.URL.RawQuery
				}
				http.Redirect(w, r, target, http.StatusMovedPermanently)
				return
			}
			r.URL.Path = trimmed
		}
		next.ServeHTTP(w, r)
	})
}
