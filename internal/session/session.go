// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session configures the server-side session manager.
package session

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/postgresstore"
	"github.com/alexedwards/scs/v2"
)

// Manager wraps the scs session manager.
type Manager struct {
	*scs.SessionManager
}

// NewManager creates a session manager backed by the sessions table.
// Cookies are HttpOnly and SameSite=Lax; the Secure flag is set outside
// development.
func NewManager(db *sql.DB, isDevelopment bool) *Manager {
	sm := scs.New()
	sm.Store = postgresstore.New(db)
	sm.Lifetime = 24 * time.Hour
	sm.Cookie.Name = "pipol_session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = !isDevelopment

	return &Manager{SessionManager: sm}
}

// NewMemoryManager creates a session manager backed by the default
// in-memory store. Intended for tests.
func NewMemoryManager() *Manager {
	sm := scs.New()
	sm.Lifetime = 24 * time.Hour
	sm.Cookie.Name = "pipol_session"
	sm.Cookie.HttpOnly = true

	return &Manager{SessionManager: sm}
}
