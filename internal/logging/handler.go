// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logging provides a slog handler that mirrors warnings and
// errors into the audit_log table.
package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/olegiv/pipol-go/internal/model"
	"github.com/olegiv/pipol-go/internal/store"
)

// AuditLogHandler wraps another slog handler and persists records at
// WARN level and above to the audit log.
type AuditLogHandler struct {
	inner   slog.Handler
	queries *store.Queries
}

// NewAuditLogHandler creates an AuditLogHandler wrapping inner.
func NewAuditLogHandler(inner slog.Handler, queries *store.Queries) *AuditLogHandler {
	return &AuditLogHandler{inner: inner, queries: queries}
}

// Enabled implements slog.Handler.
func (h *AuditLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler. Records below WARN pass through to
// the inner handler only.
func (h *AuditLogHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}
	if r.Level < slog.LevelWarn {
		return nil
	}

	var userID sql.NullInt64
	var ipAddress string
	attrs := make(map[string]interface{})
	r.Attrs(func(a slog.Attr) bool {
		switch a.Key {
		case "user_id":
			if id, ok := a.Value.Any().(int64); ok {
				userID = sql.NullInt64{Int64: id, Valid: true}
			}
		case "ip":
			ipAddress = a.Value.String()
		default:
			attrs[a.Key] = a.Value.Any()
		}
		return true
	})

	var metadata string
	if len(attrs) > 0 {
		if b, err := json.Marshal(attrs); err == nil {
			metadata = string(b)
		}
	}

	// Audit writes must not fail the caller's log call.
	_ = h.queries.CreateAuditLog(context.WithoutCancel(ctx), store.CreateAuditLogParams{
		Level:     levelToAudit(r.Level),
		Category:  inferCategory(r.Message),
		Message:   r.Message,
		UserID:    userID,
		IPAddress: ipAddress,
		Metadata:  metadata,
	})
	return nil
}

// WithAttrs implements slog.Handler.
func (h *AuditLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AuditLogHandler{inner: h.inner.WithAttrs(attrs), queries: h.queries}
}

// WithGroup implements slog.Handler.
func (h *AuditLogHandler) WithGroup(name string) slog.Handler {
	return &AuditLogHandler{inner: h.inner.WithGroup(name), queries: h.queries}
}

func levelToAudit(level slog.Level) string {
	if level >= slog.LevelError {
		return model.AuditLevelError
	}
	return model.AuditLevelWarning
}

// inferCategory guesses the audit category from the message text.
func inferCategory(msg string) string {
	m := strings.ToLower(msg)
	switch {
	case strings.Contains(m, "login") || strings.Contains(m, "password") || strings.Contains(m, "auth"):
		return model.AuditCategoryAuth
	case strings.Contains(m, "attend") || strings.Contains(m, "payment"):
		return model.AuditCategoryAttendee
	case strings.Contains(m, "event"):
		return model.AuditCategoryEvent
	case strings.Contains(m, "media") || strings.Contains(m, "upload") || strings.Contains(m, "image"):
		return model.AuditCategoryMedia
	case strings.Contains(m, "webhook"):
		return model.AuditCategoryWebhook
	case strings.Contains(m, "user") || strings.Contains(m, "profile"):
		return model.AuditCategoryUser
	default:
		return model.AuditCategorySystem
	}
}
