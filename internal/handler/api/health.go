// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"
	"time"

	"github.com/olegiv/pipol-go/internal/version"
)

// Health handles GET /health: liveness plus a database round trip.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := h.db.PingContext(r.Context()); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	WriteJSON(w, code, map[string]string{
		"status":  status,
		"version": version.Version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Live handles GET /health/live: the process is up.
func (h *Handler) Live(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles GET /health/ready: dependencies are reachable.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
