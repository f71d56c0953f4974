// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Audit log levels.
const (
	AuditLevelInfo    = "info"
	AuditLevelWarning = "warning"
	AuditLevelError   = "error"
)

// Audit log categories.
const (
	AuditCategoryAuth     = "auth"
	AuditCategoryUser     = "user"
	AuditCategoryEvent    = "event"
	AuditCategoryAttendee = "attendee"
	AuditCategoryMedia    = "media"
	AuditCategoryWebhook  = "webhook"
	AuditCategorySystem   = "system"
)

// AuditEntry is a persisted audit log record.
type AuditEntry struct {
	ID        int64     `json:"id"`
	Level     string    `json:"level"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	UserID    *int64    `json:"user_id,omitempty"`
	IP        string    `json:"ip,omitempty"`
	Metadata  string    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
