// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/mileusna/useragent"

	"github.com/olegiv/pipol-go/internal/auth"
	"github.com/olegiv/pipol-go/internal/middleware"
	"github.com/olegiv/pipol-go/internal/model"
	"github.com/olegiv/pipol-go/internal/service"
	"github.com/olegiv/pipol-go/internal/store"
)

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Register creates a new account.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := DecodeJSON(r, &req); err != nil {
		BadRequest(w, "Invalid JSON body")
		return
	}

	req.Email = model.NormalizeEmail(req.Email)
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))

	details := make(map[string]string)
	if !model.ValidEmail(req.Email) {
		details["email"] = "invalid email address"
	}
	if !model.ValidUsername(req.Username) {
		details["username"] = "must be 3-30 characters: lowercase letters, digits, hyphen, underscore"
	}
	if len(req.Password) < model.PasswordMinLen {
		details["password"] = "must be at least 8 characters"
	}
	if len(details) > 0 {
		ValidationError(w, "Registration failed validation", details)
		return
	}

	if _, err := h.queries.GetUserByEmail(r.Context(), req.Email); err == nil {
		Conflict(w, "Email is already registered")
		return
	}
	if _, err := h.queries.GetUserByUsername(r.Context(), req.Username); err == nil {
		Conflict(w, "Username is already taken")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		InternalError(w, err)
		return
	}

	u, err := h.queries.CreateUser(r.Context(), store.CreateUserParams{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hash,
		Name:         strings.TrimSpace(req.Name),
	})
	if err != nil {
		InternalError(w, err)
		return
	}

	if err := h.sessions.RenewToken(r.Context()); err != nil {
		InternalError(w, err)
		return
	}
	h.sessions.Put(r.Context(), middleware.SessionKeyUserID, u.ID)

	slog.Info("user registered", "user_id", u.ID, "username", u.Username)
	Created(w, store.UserToModel(u))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates a user and starts a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ip := ClientIP(r)
	if ok, retry := h.loginProt.Allow(ip); !ok {
		w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
		Error(w, http.StatusTooManyRequests, "rate_limited", "Too many login attempts")
		return
	}

	var req loginRequest
	if err := DecodeJSON(r, &req); err != nil {
		BadRequest(w, "Invalid JSON body")
		return
	}

	u, err := h.queries.GetUserByEmail(r.Context(), model.NormalizeEmail(req.Email))
	if err != nil {
		h.loginProt.RecordFailure(ip)
		slog.Warn("login failed", "ip", ip, "reason", "unknown email")
		Unauthorized(w, "Invalid email or password")
		return
	}

	ok, err := auth.CheckPassword(req.Password, u.PasswordHash)
	if err != nil || !ok {
		h.loginProt.RecordFailure(ip)
		slog.Warn("login failed", "ip", ip, "user_id", u.ID, "reason", "bad password")
		Unauthorized(w, "Invalid email or password")
		return
	}
	h.loginProt.RecordSuccess(ip)

	// Upgrade hashes written with older parameters.
	if auth.NeedsRehash(u.PasswordHash) {
		if newHash, err := auth.HashPassword(req.Password); err == nil {
			_ = h.queries.UpdateUserPassword(r.Context(), u.ID, newHash)
		}
	}

	if err := h.sessions.RenewToken(r.Context()); err != nil {
		InternalError(w, err)
		return
	}
	h.sessions.Put(r.Context(), middleware.SessionKeyUserID, u.ID)
	_ = h.queries.UpdateUserLastLogin(r.Context(), u.ID)

	ua := useragent.Parse(r.UserAgent())
	country := h.lookupIP(ip).CountryCode
	slog.Info("user logged in",
		"user_id", u.ID,
		"ip", ip,
		"country", country,
		"browser", ua.Name,
		"os", ua.OS,
		"mobile", ua.Mobile,
	)

	Success(w, store.UserToModel(u))
}

// Logout destroys the current session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Destroy(r.Context()); err != nil {
		InternalError(w, err)
		return
	}
	NoContent(w)
}

type meResponse struct {
	model.User
	Interests []string `json:"interests"`
}

// Me returns the authenticated user's profile with interests.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, _ := middleware.UserFromContext(r.Context())
	interests, err := h.queries.GetUserInterests(r.Context(), u.ID)
	if err != nil {
		InternalError(w, err)
		return
	}
	if interests == nil {
		interests = []string{}
	}
	Success(w, meResponse{User: u, Interests: interests})
}

type updateProfileRequest struct {
	Name     *string `json:"name"`
	Bio      *string `json:"bio"`
	Username *string `json:"username"`
}

// UpdateMe updates the authenticated user's profile fields.
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	u, _ := middleware.UserFromContext(r.Context())

	var req updateProfileRequest
	if err := DecodeJSON(r, &req); err != nil {
		BadRequest(w, "Invalid JSON body")
		return
	}

	name := u.Name
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
	}
	bio := u.Bio
	if req.Bio != nil {
		bio = strings.TrimSpace(*req.Bio)
	}
	username := u.Username
	if req.Username != nil {
		username = strings.ToLower(strings.TrimSpace(*req.Username))
		if !model.ValidUsername(username) {
			ValidationError(w, "Profile failed validation", map[string]string{
				"username": "must be 3-30 characters: lowercase letters, digits, hyphen, underscore",
			})
			return
		}
		if username != u.Username {
			if _, err := h.queries.GetUserByUsername(r.Context(), username); err == nil {
				Conflict(w, "Username is already taken")
				return
			} else if !errors.Is(err, sql.ErrNoRows) {
				InternalError(w, err)
				return
			}
		}
	}

	if err := h.queries.UpdateUserProfile(r.Context(), store.UpdateUserProfileParams{
		ID:       u.ID,
		Name:     name,
		Bio:      bio,
		Username: username,
	}); err != nil {
		InternalError(w, err)
		return
	}

	updated, err := h.queries.GetUserByID(r.Context(), u.ID)
	if err != nil {
		InternalError(w, err)
		return
	}
	Success(w, store.UserToModel(updated))
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword replaces the authenticated user's password.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	u, _ := middleware.UserFromContext(r.Context())

	var req changePasswordRequest
	if err := DecodeJSON(r, &req); err != nil {
		BadRequest(w, "Invalid JSON body")
		return
	}
	if len(req.NewPassword) < model.PasswordMinLen {
		ValidationError(w, "Password change failed validation", map[string]string{
			"new_password": "must be at least 8 characters",
		})
		return
	}

	stored, err := h.queries.GetUserByID(r.Context(), u.ID)
	if err != nil {
		InternalError(w, err)
		return
	}
	ok, err := auth.CheckPassword(req.CurrentPassword, stored.PasswordHash)
	if err != nil || !ok {
		slog.Warn("password change rejected", "user_id", u.ID, "ip", ClientIP(r))
		Unauthorized(w, "Current password is incorrect")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		InternalError(w, err)
		return
	}
	if err := h.queries.UpdateUserPassword(r.Context(), u.ID, hash); err != nil {
		InternalError(w, err)
		return
	}

	// Invalidate other sessions for this login by rotating the token.
	if err := h.sessions.RenewToken(r.Context()); err != nil {
		InternalError(w, err)
		return
	}
	NoContent(w)
}

type interestsRequest struct {
	Interests []string `json:"interests"`
}

// UpdateInterests replaces the user's interest categories.
func (h *Handler) UpdateInterests(w http.ResponseWriter, r *http.Request) {
	u, _ := middleware.UserFromContext(r.Context())

	var req interestsRequest
	if err := DecodeJSON(r, &req); err != nil {
		BadRequest(w, "Invalid JSON body")
		return
	}

	seen := make(map[string]bool, len(req.Interests))
	cleaned := make([]string, 0, len(req.Interests))
	for _, c := range req.Interests {
		c = strings.ToLower(strings.TrimSpace(c))
		if !model.ValidCategory(c) {
			ValidationError(w, "Unknown interest category", map[string]string{"interests": c})
			return
		}
		if !seen[c] {
			seen[c] = true
			cleaned = append(cleaned, c)
		}
	}

	if err := h.queries.ReplaceUserInterests(r.Context(), u.ID, cleaned); err != nil {
		InternalError(w, err)
		return
	}
	Success(w, map[string][]string{"interests": cleaned})
}

// UploadAvatar stores a new profile image from a multipart form.
func (h *Handler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	u, _ := middleware.UserFromContext(r.Context())

	file, header, err := r.FormFile("avatar")
	if err != nil {
		BadRequest(w, "Missing avatar file")
		return
	}
	defer file.Close()

	url, err := h.media.SaveAvatar(file, header.Filename, header.Size)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrFileTooLarge):
			PayloadTooLarge(w, "Avatar exceeds the upload size limit")
		case errors.Is(err, service.ErrUnsupportedMedia):
			ValidationError(w, "Avatar must be an image", nil)
		default:
			InternalError(w, err)
		}
		return
	}

	if err := h.queries.UpdateUserAvatar(r.Context(), u.ID, url); err != nil {
		InternalError(w, err)
		return
	}
	Success(w, map[string]string{"avatar_url": url})
}

// userSummary converts a stored user row to the public profile shape.
func userSummary(u store.User) model.UserSummary {
	m := store.UserToModel(u)
	return m.Summary()
}
