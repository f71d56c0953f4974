// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines the core domain types for Pipol: users, events,
// media attachments, attendance records, webhooks and audit entries.
package model

import (
	"regexp"
	"strings"
	"time"
)

// User roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// roleLevel maps roles to privilege levels for comparisons.
var roleLevel = map[string]int{
	RoleUser:  1,
	RoleAdmin: 2,
}

// Username constraints.
const (
	UsernameMinLen = 3
	UsernameMaxLen = 30
)

// PasswordMinLen is the minimum accepted password length.
const PasswordMinLen = 8

var usernameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// User represents a registered account.
type User struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Name         string     `json:"name"`
	Bio          string     `json:"bio"`
	AvatarURL    string     `json:"avatar_url"`
	Role         string     `json:"role"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// UserSummary is the public profile shape embedded in event and
// attendee responses.
type UserSummary struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// Summary returns the public profile fields of the user.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:        u.ID,
		Username:  u.Username,
		Name:      u.Name,
		AvatarURL: u.AvatarURL,
	}
}

// HasRole reports whether the user's role is at least the required role.
func (u *User) HasRole(required string) bool {
	return roleLevel[u.Role] >= roleLevel[required]
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ValidRole reports whether s is a known role.
func ValidRole(s string) bool {
	_, ok := roleLevel[s]
	return ok
}

// NormalizeEmail lowercases and trims an email address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail performs a light-weight shape check on an email address.
// Real validation happens when mail is delivered; this only rejects
// obvious garbage.
func ValidEmail(email string) bool {
	at := strings.Index(email, "@")
	if at < 1 || at == len(email)-1 {
		return false
	}
	domain := email[at+1:]
	return strings.Contains(domain, ".") && !strings.ContainsAny(email, " \t\n")
}

// ValidUsername reports whether s is an acceptable username:
// 3-30 chars, lowercase alphanumeric with hyphens/underscores,
// starting with a letter or digit.
func ValidUsername(s string) bool {
	if len(s) < UsernameMinLen || len(s) > UsernameMaxLen {
		return false
	}
	return usernameRegex.MatchString(s)
}
