// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

// User is a database row from the users table.
type User struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash string
	Name         string
	Bio          string
	AvatarURL    string
	Role         string
	LastLoginAt  sql.NullTime
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const userColumns = `id, email, username, password_hash, name, bio, avatar_url, role, last_login_at, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.PasswordHash,
		&u.Name,
		&u.Bio,
		&u.AvatarURL,
		&u.Role,
		&u.LastLoginAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

// CreateUserParams holds the fields for creating a user.
type CreateUserParams struct {
	Email        string
	Username     string
	PasswordHash string
	Name         string
}

const createUser = `
INSERT INTO users (email, username, password_hash, name)
VALUES ($1, $2, $3, $4)
RETURNING ` + userColumns

// CreateUser inserts a new user and returns the created row.
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser,
		arg.Email,
		arg.Username,
		arg.PasswordHash,
		arg.Name,
	)
	return scanUser(row)
}

const getUserByID = `
SELECT ` + userColumns + ` FROM users WHERE id = $1`

// GetUserByID fetches a user by primary key.
func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByID, id))
}

const getUserByEmail = `
SELECT ` + userColumns + ` FROM users WHERE email = $1`

// GetUserByEmail fetches a user by email address.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByEmail, email))
}

const getUserByUsername = `
SELECT ` + userColumns + ` FROM users WHERE username = $1`

// GetUserByUsername fetches a user by username.
func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByUsername, username))
}

// UpdateUserProfileParams holds the mutable profile fields.
type UpdateUserProfileParams struct {
	ID       int64
	Name     string
	Bio      string
	Username string
}

const updateUserProfile = `
UPDATE users SET name = $1, bio = $2, username = $3, updated_at = $4 WHERE id = $5`

// UpdateUserProfile updates a user's display name, bio and username.
func (q *Queries) UpdateUserProfile(ctx context.Context, arg UpdateUserProfileParams) error {
	_, err := q.db.ExecContext(ctx, updateUserProfile, arg.Name, arg.Bio, arg.Username, time.Now().UTC(), arg.ID)
	return err
}

const updateUserPassword = `
UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`

// UpdateUserPassword replaces a user's password hash.
func (q *Queries) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	_, err := q.db.ExecContext(ctx, updateUserPassword, passwordHash, time.Now().UTC(), id)
	return err
}

const updateUserAvatar = `
UPDATE users SET avatar_url = $1, updated_at = $2 WHERE id = $3`

// UpdateUserAvatar sets a user's avatar URL.
func (q *Queries) UpdateUserAvatar(ctx context.Context, id int64, avatarURL string) error {
	_, err := q.db.ExecContext(ctx, updateUserAvatar, avatarURL, time.Now().UTC(), id)
	return err
}

const updateUserLastLogin = `
UPDATE users SET last_login_at = $1 WHERE id = $2`

// UpdateUserLastLogin records a successful login.
func (q *Queries) UpdateUserLastLogin(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, updateUserLastLogin, time.Now().UTC(), id)
	return err
}

const countUsers = `
SELECT COUNT(*) FROM users`

// CountUsers returns the total number of users.
func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countUsers).Scan(&n)
	return n, err
}

const getUserInterests = `
SELECT category FROM user_interests WHERE user_id = $1 ORDER BY category`

// GetUserInterests returns the categories a user follows.
func (q *Queries) GetUserInterests(ctx context.Context, userID int64) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, getUserInterests, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var interests []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		interests = append(interests, c)
	}
	return interests, rows.Err()
}

const deleteUserInterests = `
DELETE FROM user_interests WHERE user_id = $1`

const insertUserInterest = `
INSERT INTO user_interests (user_id, category) VALUES ($1, $2)`

// ReplaceUserInterests replaces the full set of a user's interest categories.
func (q *Queries) ReplaceUserInterests(ctx context.Context, userID int64, categories []string) error {
	if _, err := q.db.ExecContext(ctx, deleteUserInterests, userID); err != nil {
		return err
	}
	for _, c := range categories {
		if _, err := q.db.ExecContext(ctx, insertUserInterest, userID, c); err != nil {
			return err
		}
	}
	return nil
}
