// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"
	"testing"
)

func TestHealthEndpoints(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/health", "/health/live", "/health/ready"} {
		rec := app.do(http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", path, rec.Code)
		}
	}
}
