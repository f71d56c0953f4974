// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/olegiv/pipol-go/internal/model"
	"github.com/olegiv/pipol-go/internal/session"
	"github.com/olegiv/pipol-go/internal/store"
)

// ContextKey is the type for request context keys set by middleware.
type ContextKey string

// UserContextKey holds the authenticated model.User.
const UserContextKey ContextKey = "user"

// SessionKeyUserID is the session key storing the logged-in user's ID.
const SessionKeyUserID = "user_id"

// UserFromContext returns the authenticated user, if any.
func UserFromContext(ctx context.Context) (model.User, bool) {
	u, ok := ctx.Value(UserContextKey).(model.User)
	return u, ok
}

// LoadUser resolves the session's user ID into a model.User and stores
// it on the request context. Requests without a session pass through
// unchanged; a stale session pointing at a deleted user is destroyed.
func LoadUser(sm *session.Manager, queries *store.Queries) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := sm.GetInt64(r.Context(), SessionKeyUserID)
			if userID == 0 {
				next.ServeHTTP(w, r)
				return
			}

			u, err := queries.GetUserByID(r.Context(), userID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					_ = sm.Destroy(r.Context())
				} else {
					slog.Error("loading session user", "error", err, "user_id", userID)
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, store.UserToModel(u))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects requests without an authenticated user.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); !ok {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests from non-admin users. Denied attempts
// are logged for the audit trail.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := UserFromContext(r.Context())
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
			return
		}
		if !u.IsAdmin() {
			slog.Warn("admin endpoint denied", "user_id", u.ID, "ip", r.RemoteAddr, "path", r.URL.Path)
			writeJSONError(w, http.StatusForbidden, "forbidden", "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
