// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

// AuditLogEntry is a database row from the audit_log table.
type AuditLogEntry struct {
	ID        int64
	Level     string
	Category  string
	Message   string
	UserID    sql.NullInt64
	IPAddress string
	Metadata  string
	CreatedAt time.Time
}

// CreateAuditLogParams holds the fields for an audit log entry.
type CreateAuditLogParams struct {
	Level     string
	Category  string
	Message   string
	UserID    sql.NullInt64
	IPAddress string
	Metadata  string
}

const createAuditLog = `
INSERT INTO audit_log (level, category, message, user_id, ip_address, metadata)
VALUES ($1, $2, $3, $4, $5, $6)`

// CreateAuditLog inserts an audit log entry.
func (q *Queries) CreateAuditLog(ctx context.Context, arg CreateAuditLogParams) error {
	_, err := q.db.ExecContext(ctx, createAuditLog,
		arg.Level,
		arg.Category,
		arg.Message,
		arg.UserID,
		arg.IPAddress,
		arg.Metadata,
	)
	return err
}

const listAuditLog = `
SELECT id, level, category, message, user_id, ip_address, metadata, created_at
FROM audit_log ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`

// ListAuditLog returns audit entries newest first.
func (q *Queries) ListAuditLog(ctx context.Context, limit, offset int64) ([]AuditLogEntry, error) {
	rows, err := q.db.QueryContext(ctx, listAuditLog, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []AuditLogEntry
	for rows.Next() {
		var e AuditLogEntry
		if err := rows.Scan(&e.ID, &e.Level, &e.Category, &e.Message, &e.UserID, &e.IPAddress, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

const pruneAuditLog = `
DELETE FROM audit_log WHERE created_at < $1`

// PruneAuditLog removes audit entries older than the cutoff and returns
// the number of rows deleted.
func (q *Queries) PruneAuditLog(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, pruneAuditLog, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
