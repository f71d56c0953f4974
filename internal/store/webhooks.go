// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

// Webhook is a database row from the webhooks table. Events holds a
// comma-separated topic list.
type Webhook struct {
	ID        int64
	Name      string
	URL       string
	Secret    string
	Events    string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

const webhookColumns = `id, name, url, secret, events, is_active, created_at, updated_at`

func scanWebhook(row interface{ Scan(...interface{}) error }) (Webhook, error) {
	var w Webhook
	err := row.Scan(&w.ID, &w.Name, &w.URL, &w.Secret, &w.Events, &w.IsActive, &w.CreatedAt, &w.UpdatedAt)
	return w, err
}

// CreateWebhookParams holds the fields for registering a webhook.
type CreateWebhookParams struct {
	Name   string
	URL    string
	Secret string
	Events string
}

const createWebhook = `
INSERT INTO webhooks (name, url, secret, events)
VALUES ($1, $2, $3, $4)
RETURNING ` + webhookColumns

// CreateWebhook registers a new webhook endpoint.
func (q *Queries) CreateWebhook(ctx context.Context, arg CreateWebhookParams) (Webhook, error) {
	row := q.db.QueryRowContext(ctx, createWebhook, arg.Name, arg.URL, arg.Secret, arg.Events)
	return scanWebhook(row)
}

const getWebhookByID = `
SELECT ` + webhookColumns + ` FROM webhooks WHERE id = $1`

// GetWebhookByID fetches a webhook by primary key.
func (q *Queries) GetWebhookByID(ctx context.Context, id int64) (Webhook, error) {
	return scanWebhook(q.db.QueryRowContext(ctx, getWebhookByID, id))
}

const listWebhooks = `
SELECT ` + webhookColumns + ` FROM webhooks ORDER BY id ASC`

// ListWebhooks returns all registered webhooks.
func (q *Queries) ListWebhooks(ctx context.Context) ([]Webhook, error) {
	rows, err := q.db.QueryContext(ctx, listWebhooks)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var webhooks []Webhook
	for rows.Next() {
		w, err := scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		webhooks = append(webhooks, w)
	}
	return webhooks, rows.Err()
}

const listActiveWebhooks = `
SELECT ` + webhookColumns + ` FROM webhooks WHERE is_active = TRUE ORDER BY id ASC`

// ListActiveWebhooks returns webhooks eligible for delivery.
func (q *Queries) ListActiveWebhooks(ctx context.Context) ([]Webhook, error) {
	rows, err := q.db.QueryContext(ctx, listActiveWebhooks)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var webhooks []Webhook
	for rows.Next() {
		w, err := scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		webhooks = append(webhooks, w)
	}
	return webhooks, rows.Err()
}

// UpdateWebhookParams holds the mutable webhook fields.
type UpdateWebhookParams struct {
	ID       int64
	Name     string
	URL      string
	Secret   string
	Events   string
	IsActive bool
}

const updateWebhook = `
UPDATE webhooks SET name = $1, url = $2, secret = $3, events = $4, is_active = $5, updated_at = $6 WHERE id = $7`

// UpdateWebhook updates a webhook's configuration.
func (q *Queries) UpdateWebhook(ctx context.Context, arg UpdateWebhookParams) error {
	_, err := q.db.ExecContext(ctx, updateWebhook,
		arg.Name, arg.URL, arg.Secret, arg.Events, arg.IsActive, time.Now().UTC(), arg.ID)
	return err
}

const deleteWebhook = `
DELETE FROM webhooks WHERE id = $1`

// DeleteWebhook removes a webhook. Delivery history cascades.
func (q *Queries) DeleteWebhook(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteWebhook, id)
	return err
}

// WebhookDelivery is a database row from the webhook_deliveries table.
type WebhookDelivery struct {
	ID          int64
	WebhookID   int64
	Event       string
	Payload     string
	Status      string
	StatusCode  sql.NullInt64
	Attempts    int64
	Error       string
	CompletedAt sql.NullTime
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const webhookDeliveryColumns = `id, webhook_id, event, payload, status, status_code, attempts, error, completed_at, created_at, updated_at`

func scanWebhookDelivery(row interface{ Scan(...interface{}) error }) (WebhookDelivery, error) {
	var d WebhookDelivery
	err := row.Scan(&d.ID, &d.WebhookID, &d.Event, &d.Payload, &d.Status, &d.StatusCode, &d.Attempts, &d.Error, &d.CompletedAt, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

// CreateWebhookDeliveryParams holds the fields for recording a delivery.
type CreateWebhookDeliveryParams struct {
	WebhookID int64
	Event     string
	Payload   string
}

const createWebhookDelivery = `
INSERT INTO webhook_deliveries (webhook_id, event, payload, status)
VALUES ($1, $2, $3, 'pending')
RETURNING id`

// CreateWebhookDelivery records a pending delivery attempt and returns its ID.
func (q *Queries) CreateWebhookDelivery(ctx context.Context, arg CreateWebhookDeliveryParams) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createWebhookDelivery, arg.WebhookID, arg.Event, arg.Payload).Scan(&id)
	return id, err
}

// UpdateWebhookDeliveryParams holds the result of a delivery attempt.
type UpdateWebhookDeliveryParams struct {
	ID          int64
	Status      string
	StatusCode  sql.NullInt64
	Attempts    int64
	Error       string
	CompletedAt sql.NullTime
}

const updateWebhookDelivery = `
UPDATE webhook_deliveries SET status = $1, status_code = $2, attempts = $3, error = $4, completed_at = $5, updated_at = $6 WHERE id = $7`

// UpdateWebhookDelivery records the outcome of a delivery attempt.
func (q *Queries) UpdateWebhookDelivery(ctx context.Context, arg UpdateWebhookDeliveryParams) error {
	_, err := q.db.ExecContext(ctx, updateWebhookDelivery,
		arg.Status, arg.StatusCode, arg.Attempts, arg.Error, arg.CompletedAt, time.Now().UTC(), arg.ID)
	return err
}

const listWebhookDeliveries = `
SELECT ` + webhookDeliveryColumns + `
FROM webhook_deliveries WHERE webhook_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`

// ListWebhookDeliveries returns delivery history for a webhook, newest first.
func (q *Queries) ListWebhookDeliveries(ctx context.Context, webhookID, limit, offset int64) ([]WebhookDelivery, error) {
	rows, err := q.db.QueryContext(ctx, listWebhookDeliveries, webhookID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deliveries []WebhookDelivery
	for rows.Next() {
		d, err := scanWebhookDelivery(rows)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}

const countWebhookDeliveries = `
SELECT COUNT(*) FROM webhook_deliveries WHERE webhook_id = $1`

// CountWebhookDeliveries returns the total delivery count for a webhook.
func (q *Queries) CountWebhookDeliveries(ctx context.Context, webhookID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countWebhookDeliveries, webhookID).Scan(&n)
	return n, err
}

const pruneWebhookDeliveries = `
DELETE FROM webhook_deliveries WHERE created_at < $1`

// PruneWebhookDeliveries removes delivery records older than the cutoff.
func (q *Queries) PruneWebhookDeliveries(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, pruneWebhookDeliveries, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
