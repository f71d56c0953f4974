// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"database/sql"
	"strconv"
	"time"
)

// NullInt64FromPtr converts a pointer to int64 into sql.NullInt64.
// Returns a valid NullInt64 if the pointer is non-nil, otherwise returns an invalid one.
func NullInt64FromPtr(ptr *int64) sql.NullInt64 {
	if ptr != nil {
		return sql.NullInt64{Int64: *ptr, Valid: true}
	}
	return sql.NullInt64{}
}

// NullInt64ToPtr converts sql.NullInt64 back to a pointer.
func NullInt64ToPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

// ParseNullInt64 parses a string into sql.NullInt64.
// Returns an invalid NullInt64 if the string is empty, "0", or cannot be parsed.
func ParseNullInt64(s string) sql.NullInt64 {
	if s == "" || s == "0" {
		return sql.NullInt64{}
	}
	if val, err := strconv.ParseInt(s, 10, 64); err == nil {
		return sql.NullInt64{Int64: val, Valid: true}
	}
	return sql.NullInt64{}
}

// NullStringFromValue creates a sql.NullString from a string value.
// Returns a valid NullString if the string is non-empty, otherwise returns an invalid one.
func NullStringFromValue(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// NullTimeFromPtr converts a pointer to time.Time into sql.NullTime.
func NullTimeFromPtr(ptr *time.Time) sql.NullTime {
	if ptr != nil {
		return sql.NullTime{Time: *ptr, Valid: true}
	}
	return sql.NullTime{}
}

// NullTimeToPtr converts sql.NullTime back to a pointer.
func NullTimeToPtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}
