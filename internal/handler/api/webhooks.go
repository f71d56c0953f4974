// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/pipol-go/internal/middleware"
	"github.com/olegiv/pipol-go/internal/model"
	"github.com/olegiv/pipol-go/internal/store"
)

type webhookRequest struct {
	Name     string   `json:"name"`
	URL      string   `json:"url"`
	Secret   string   `json:"secret"`
	Events   []string `json:"events"`
	IsActive *bool    `json:"is_active"`
}

func (h *Handler) validateWebhookRequest(req webhookRequest) map[string]string {
	details := make(map[string]string)
	if strings.TrimSpace(req.Name) == "" {
		details["name"] = "required"
	}
	if err := h.validateHookURL(req.URL); err != nil {
		details["url"] = err.Error()
	}
	if len(req.Events) == 0 {
		details["events"] = "at least one topic is required"
	}
	for _, t := range req.Events {
		if !model.ValidTopic(t) {
			details["events"] = "unknown topic: " + t
			break
		}
	}
	if len(details) == 0 {
		return nil
	}
	return details
}

func generateWebhookSecret() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}

type webhookCreatedResponse struct {
	model.Webhook
	// Secret is returned once at creation time so the caller can store it.
	Secret string `json:"secret"`
}

// CreateWebhook handles POST /api/admin/webhooks. A missing secret is
// generated server-side and returned once in the response.
func (h *Handler) CreateWebhook(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())

	var req webhookRequest
	if err := DecodeJSON(r, &req); err != nil {
		BadRequest(w, "Invalid JSON body")
		return
	}
	if details := h.validateWebhookRequest(req); details != nil {
		ValidationError(w, "Webhook failed validation", details)
		return
	}
	if req.Secret == "" {
		req.Secret = generateWebhookSecret()
	}

	row, err := h.queries.CreateWebhook(r.Context(), store.CreateWebhookParams{
		Name:   strings.TrimSpace(req.Name),
		URL:    req.URL,
		Secret: req.Secret,
		Events: strings.Join(req.Events, ","),
	})
	if err != nil {
		InternalError(w, err)
		return
	}

	slog.Info("webhook registered", "user_id", user.ID, "webhook_id", row.ID, "url", row.URL)
	Created(w, webhookCreatedResponse{Webhook: store.WebhookToModel(row), Secret: row.Secret})
}

// ListWebhooks handles GET /api/admin/webhooks.
func (h *Handler) ListWebhooks(w http.ResponseWriter, r *http.Request) {
	rows, err := h.queries.ListWebhooks(r.Context())
	if err != nil {
		InternalError(w, err)
		return
	}
	out := make([]model.Webhook, 0, len(rows))
	for _, row := range rows {
		out = append(out, store.WebhookToModel(row))
	}
	Success(w, out)
}

// GetWebhook handles GET /api/admin/webhooks/{webhookID}.
func (h *Handler) GetWebhook(w http.ResponseWriter, r *http.Request) {
	row, ok := h.webhookFromRequest(w, r)
	if !ok {
		return
	}
	Success(w, store.WebhookToModel(row))
}

// UpdateWebhook handles PUT /api/admin/webhooks/{webhookID}. Omitted
// fields keep their stored values; the secret can be rotated but never
// read back.
func (h *Handler) UpdateWebhook(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())

	row, ok := h.webhookFromRequest(w, r)
	if !ok {
		return
	}

	var req webhookRequest
	if err := DecodeJSON(r, &req); err != nil {
		BadRequest(w, "Invalid JSON body")
		return
	}

	if req.Name == "" {
		req.Name = row.Name
	}
	if req.URL == "" {
		req.URL = row.URL
	}
	if req.Secret == "" {
		req.Secret = row.Secret
	}
	if req.Events == nil {
		req.Events = strings.Split(row.Events, ",")
	}
	isActive := row.IsActive
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	if details := h.validateWebhookRequest(req); details != nil {
		ValidationError(w, "Webhook failed validation", details)
		return
	}

	if err := h.queries.UpdateWebhook(r.Context(), store.UpdateWebhookParams{
		ID:       row.ID,
		Name:     strings.TrimSpace(req.Name),
		URL:      req.URL,
		Secret:   req.Secret,
		Events:   strings.Join(req.Events, ","),
		IsActive: isActive,
	}); err != nil {
		InternalError(w, err)
		return
	}

	updated, err := h.queries.GetWebhookByID(r.Context(), row.ID)
	if err != nil {
		InternalError(w, err)
		return
	}
	slog.Info("webhook updated", "user_id", user.ID, "webhook_id", row.ID)
	Success(w, store.WebhookToModel(updated))
}

// DeleteWebhook handles DELETE /api/admin/webhooks/{webhookID}.
func (h *Handler) DeleteWebhook(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())

	row, ok := h.webhookFromRequest(w, r)
	if !ok {
		return
	}
	if err := h.queries.DeleteWebhook(r.Context(), row.ID); err != nil {
		InternalError(w, err)
		return
	}
	slog.Info("webhook deleted", "user_id", user.ID, "webhook_id", row.ID)
	NoContent(w)
}

// ListWebhookDeliveries handles GET /api/admin/webhooks/{webhookID}/deliveries.
func (h *Handler) ListWebhookDeliveries(w http.ResponseWriter, r *http.Request) {
	row, ok := h.webhookFromRequest(w, r)
	if !ok {
		return
	}

	page, perPage := ParsePagination(r)
	rows, err := h.queries.ListWebhookDeliveries(r.Context(), row.ID, perPage, (page-1)*perPage)
	if err != nil {
		InternalError(w, err)
		return
	}

	total, err := h.queries.CountWebhookDeliveries(r.Context(), row.ID)
	if err != nil {
		InternalError(w, err)
		return
	}

	out := make([]model.WebhookDelivery, 0, len(rows))
	for _, d := range rows {
		out = append(out, store.WebhookDeliveryToModel(d))
	}
	SuccessMeta(w, out, NewPageMeta(page, perPage, total))
}

// ListAuditLog handles GET /api/admin/audit-log.
func (h *Handler) ListAuditLog(w http.ResponseWriter, r *http.Request) {
	page, perPage := ParsePagination(r)
	rows, err := h.queries.ListAuditLog(r.Context(), perPage, (page-1)*perPage)
	if err != nil {
		InternalError(w, err)
		return
	}

	out := make([]model.AuditEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, store.AuditLogToModel(row))
	}
	Success(w, out)
}

func (h *Handler) webhookFromRequest(w http.ResponseWriter, r *http.Request) (store.Webhook, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "webhookID"), 10, 64)
	if err != nil {
		BadRequest(w, "Invalid webhook id")
		return store.Webhook{}, false
	}
	row, err := h.queries.GetWebhookByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			NotFound(w, "Webhook not found")
			return store.Webhook{}, false
		}
		InternalError(w, err)
		return store.Webhook{}, false
	}
	return row, true
}
