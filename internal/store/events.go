// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Event is a database row from the events table. JSON columns are kept
// raw here and decoded by the conversion layer.
type Event struct {
	ID                   int64
	Slug                 string
	OrganizerID          int64
	Title                string
	Description          string
	DescriptionHTML      string
	Category             string
	StartsAt             time.Time
	Lat                  float64
	Lon                  float64
	LocationName         string
	Address              string
	City                 string
	Country              string
	PrivacyType          string
	PaymentType          string
	PriceCents           int64
	Currency             string
	ApplicationQuestions []byte
	MaxAttendees         sql.NullInt64
	MediaItems           []byte
	MainMediaURL         string
	MainMediaType        string
	Canceled             bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

const eventColumns = `id, slug, organizer_id, title, description, description_html, category, starts_at, lat, lon, location_name, address, city, country, privacy_type, payment_type, price_cents, currency, application_questions, max_attendees, media_items, main_media_url, main_media_type, canceled, created_at, updated_at`

func scanEvent(row interface{ Scan(...interface{}) error }) (Event, error) {
	var e Event
	err := row.Scan(
		&e.ID,
		&e.Slug,
		&e.OrganizerID,
		&e.Title,
		&e.Description,
		&e.DescriptionHTML,
		&e.Category,
		&e.StartsAt,
		&e.Lat,
		&e.Lon,
		&e.LocationName,
		&e.Address,
		&e.City,
		&e.Country,
		&e.PrivacyType,
		&e.PaymentType,
		&e.PriceCents,
		&e.Currency,
		&e.ApplicationQuestions,
		&e.MaxAttendees,
		&e.MediaItems,
		&e.MainMediaURL,
		&e.MainMediaType,
		&e.Canceled,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	return e, err
}

// CreateEventParams holds the fields for creating an event.
type CreateEventParams struct {
	Slug                 string
	OrganizerID          int64
	Title                string
	Description          string
	DescriptionHTML      string
	Category             string
	StartsAt             time.Time
	Lat                  float64
	Lon                  float64
	LocationName         string
	Address              string
	City                 string
	Country              string
	PrivacyType          string
	PaymentType          string
	PriceCents           int64
	Currency             string
	ApplicationQuestions []byte
	MaxAttendees         sql.NullInt64
	MediaItems           []byte
	MainMediaURL         string
	MainMediaType        string
}

const createEvent = `
INSERT INTO events (
	slug, organizer_id, title, description, description_html, category,
	starts_at, lat, lon, location_name, address, city, country,
	privacy_type, payment_type, price_cents, currency,
	application_questions, max_attendees, media_items,
	main_media_url, main_media_type
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
	$15, $16, $17, $18, $19, $20, $21, $22
)
RETURNING ` + eventColumns

// CreateEvent inserts a new event and returns the created row.
func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) (Event, error) {
	row := q.db.QueryRowContext(ctx, createEvent,
		arg.Slug,
		arg.OrganizerID,
		arg.Title,
		arg.Description,
		arg.DescriptionHTML,
		arg.Category,
		arg.StartsAt,
		arg.Lat,
		arg.Lon,
		arg.LocationName,
		arg.Address,
		arg.City,
		arg.Country,
		arg.PrivacyType,
		arg.PaymentType,
		arg.PriceCents,
		arg.Currency,
		arg.ApplicationQuestions,
		arg.MaxAttendees,
		arg.MediaItems,
		arg.MainMediaURL,
		arg.MainMediaType,
	)
	return scanEvent(row)
}

const getEventByID = `
SELECT ` + eventColumns + ` FROM events WHERE id = $1`

// GetEventByID fetches an event by primary key.
func (q *Queries) GetEventByID(ctx context.Context, id int64) (Event, error) {
	return scanEvent(q.db.QueryRowContext(ctx, getEventByID, id))
}

const getEventBySlug = `
SELECT ` + eventColumns + ` FROM events WHERE slug = $1`

// GetEventBySlug fetches an event by its URL slug.
func (q *Queries) GetEventBySlug(ctx context.Context, slug string) (Event, error) {
	return scanEvent(q.db.QueryRowContext(ctx, getEventBySlug, slug))
}

const slugExists = `
SELECT COUNT(*) FROM events WHERE slug = $1`

// SlugExists reports whether an event slug is already taken.
func (q *Queries) SlugExists(ctx context.Context, slug string) (bool, error) {
	var n int64
	if err := q.db.QueryRowContext(ctx, slugExists, slug).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateEventParams holds the full mutable field set of an event.
type UpdateEventParams struct {
	ID                   int64
	Title                string
	Description          string
	DescriptionHTML      string
	Category             string
	StartsAt             time.Time
	Lat                  float64
	Lon                  float64
	LocationName         string
	Address              string
	City                 string
	Country              string
	PrivacyType          string
	PaymentType          string
	PriceCents           int64
	Currency             string
	ApplicationQuestions []byte
	MaxAttendees         sql.NullInt64
}

const updateEvent = `
UPDATE events SET
	title = $1, description = $2, description_html = $3, category = $4,
	starts_at = $5, lat = $6, lon = $7, location_name = $8, address = $9,
	city = $10, country = $11, privacy_type = $12, payment_type = $13,
	price_cents = $14, currency = $15, application_questions = $16,
	max_attendees = $17, updated_at = $18
WHERE id = $19`

// UpdateEvent updates the core fields of an event.
func (q *Queries) UpdateEvent(ctx context.Context, arg UpdateEventParams) error {
	_, err := q.db.ExecContext(ctx, updateEvent,
		arg.Title,
		arg.Description,
		arg.DescriptionHTML,
		arg.Category,
		arg.StartsAt,
		arg.Lat,
		arg.Lon,
		arg.LocationName,
		arg.Address,
		arg.City,
		arg.Country,
		arg.PrivacyType,
		arg.PaymentType,
		arg.PriceCents,
		arg.Currency,
		arg.ApplicationQuestions,
		arg.MaxAttendees,
		time.Now().UTC(),
		arg.ID,
	)
	return err
}

const updateEventMedia = `
UPDATE events SET media_items = $1, main_media_url = $2, main_media_type = $3, updated_at = $4 WHERE id = $5`

// UpdateEventMedia replaces the media collection and the denormalized
// main media mirror columns.
func (q *Queries) UpdateEventMedia(ctx context.Context, id int64, mediaItems []byte, mainURL, mainType string) error {
	_, err := q.db.ExecContext(ctx, updateEventMedia, mediaItems, mainURL, mainType, time.Now().UTC(), id)
	return err
}

const cancelEvent = `
UPDATE events SET canceled = TRUE, updated_at = $1 WHERE id = $2`

// CancelEvent marks an event as canceled. Canceling an already canceled
// event is a no-op.
func (q *Queries) CancelEvent(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, cancelEvent, time.Now().UTC(), id)
	return err
}

const deleteEvent = `
DELETE FROM events WHERE id = $1`

// DeleteEvent removes an event. Attendee rows cascade.
func (q *Queries) DeleteEvent(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteEvent, id)
	return err
}

// EventFilter holds the optional list filters. Zero values mean the
// filter is not applied.
type EventFilter struct {
	Category    string
	PrivacyType string
	PaymentType string
	Status      string // upcoming|past|canceled
	OrganizerID int64
	Query       string // case-insensitive title/description substring
	MinLat      float64
	MaxLat      float64
	MinLon      float64
	MaxLon      float64
	HasBounds   bool
	From        time.Time
	To          time.Time
	Interests   []string
	MemberID    int64 // events the user organizes or attends
	Now         time.Time
	Limit       int64
	Offset      int64
}

// buildEventWhere assembles the WHERE clause for ListEvents/CountEvents.
// Placeholders are numbered in argument order so the same SQL runs under
// both postgres and sqlite.
func buildEventWhere(f EventFilter, args []interface{}) (string, []interface{}) {
	var conds []string
	add := func(cond string, vals ...interface{}) {
		n := len(args)
		ph := make([]interface{}, len(vals))
		for i := range vals {
			ph[i] = fmt.Sprintf("$%d", n+i+1)
		}
		conds = append(conds, fmt.Sprintf(cond, ph...))
		args = append(args, vals...)
	}

	if f.Category != "" {
		add("category = %s", f.Category)
	}
	if f.PrivacyType != "" {
		add("privacy_type = %s", f.PrivacyType)
	}
	if f.PaymentType != "" {
		add("payment_type = %s", f.PaymentType)
	}
	now := f.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	switch f.Status {
	case "upcoming":
		add("canceled = FALSE AND starts_at > %s", now)
	case "past":
		add("canceled = FALSE AND starts_at <= %s", now)
	case "canceled":
		conds = append(conds, "canceled = TRUE")
	}
	if f.OrganizerID != 0 {
		add("organizer_id = %s", f.OrganizerID)
	}
	if f.Query != "" {
		pattern := "%" + strings.ToLower(f.Query) + "%"
		add("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s)", pattern, pattern)
	}
	if f.HasBounds {
		add("lat >= %s AND lat <= %s AND lon >= %s AND lon <= %s",
			f.MinLat, f.MaxLat, f.MinLon, f.MaxLon)
	}
	if !f.From.IsZero() {
		add("starts_at >= %s", f.From)
	}
	if !f.To.IsZero() {
		add("starts_at <= %s", f.To)
	}
	if len(f.Interests) > 0 {
		ph := make([]string, len(f.Interests))
		for i, c := range f.Interests {
			ph[i] = fmt.Sprintf("$%d", len(args)+1)
			args = append(args, c)
		}
		conds = append(conds, fmt.Sprintf("category IN (%s)", strings.Join(ph, ", ")))
	}
	if f.MemberID != 0 {
		add("(organizer_id = %s OR id IN (SELECT event_id FROM event_attendees WHERE user_id = %s AND status = 'approved'))",
			f.MemberID, f.MemberID)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListEvents returns events matching the filter ordered by start time.
// Upcoming events list soonest first; past and canceled list most recent
// first.
func (q *Queries) ListEvents(ctx context.Context, f EventFilter) ([]Event, error) {
	where, args := buildEventWhere(f, nil)

	order := ` ORDER BY starts_at ASC, id ASC`
	if f.Status == "past" || f.Status == "canceled" {
		order = ` ORDER BY starts_at DESC, id DESC`
	}
	query := `SELECT ` + eventColumns + ` FROM events` + where + order
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// CountEvents returns the number of events matching the filter.
func (q *Queries) CountEvents(ctx context.Context, f EventFilter) (int64, error) {
	where, args := buildEventWhere(f, nil)

	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`+where, args...).Scan(&n)
	return n, err
}
